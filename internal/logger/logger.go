// Package logger はJSON構造化ログのセットアップを提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup はJSONハンドラーのslog.Loggerを生成する。
// ログ収集基盤での取り込みを前提に、1行1JSONで出力する。
func Setup(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// SetupDefault はSetupで生成したロガーをプロセス全体の
// デフォルトロガーとして登録する。本番ではwにos.Stdoutを渡す想定。
func SetupDefault(w io.Writer) {
	slog.SetDefault(Setup(w))
}
