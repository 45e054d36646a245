// Package model はドメインモデルを定義する。
package model

import "time"

// FeedItem は評価レコードの非正規化コピーで、受信者ごとのフィードパーティションに格納される。
// ファンアウトエンジンのみが書き込み、クライアントが直接変更することはない。
// アンフォローしても配信済みアイテムは取り消されない（フィードは履歴として残る）。
type FeedItem struct {
	ID        string
	UserID    string // 受信者（フォロワー）のID
	RatingID  string
	AuthorID  string // 評価を投稿したユーザーのID
	ShowID    string
	Rating    int
	Comment   string
	RatedAt   time.Time
	CreatedAt time.Time
}

// FeedEntry はフィード読み出し時のエントリで、投稿者情報をベストエフォートで付加したもの。
// 投稿者のユーザーレコードが見つからない場合、AuthorNameとAuthorUsernameは空のままになる。
type FeedEntry struct {
	FeedItem
	AuthorName     string
	AuthorUsername string
}
