// Package security はアプリケーションのセキュリティ機能を提供する。
//
// UGCSanitizerService はユーザー投稿の自由記述テキスト（自己紹介、評価コメント、
// 視聴メモ）をサニタイズし、格納値にHTMLタグが混入することを防ぐ。
// bluemondayのStrictPolicyにより全タグを除去し、プレーンテキストのみを残す。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// UGCSanitizerService はユーザー投稿テキストのサニタイズ機能のインターフェースを定義する。
// 各サービス層が格納前に使用する。
type UGCSanitizerService interface {
	// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
	// 前後の空白もトリムする。空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// ugcSanitizer はUGCSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type ugcSanitizer struct {
	policy *bluemonday.Policy
}

// NewUGCSanitizer はUGCSanitizerServiceの新しいインスタンスを生成する。
// 格納対象はプレーンテキストのみのため、タグを一切許可しないStrictPolicyを使う。
func NewUGCSanitizer() *ugcSanitizer {
	return &ugcSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
func (s *ugcSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ UGCSanitizerService = (*ugcSanitizer)(nil)
