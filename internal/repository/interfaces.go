// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/teli-app/teli/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// username/emailの一意性違反はUNIQUE制約で検出し、
	// USERNAME_TAKEN / EMAIL_TAKEN のAPIErrorとして返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Exists は指定IDのユーザーが存在するかを返す。
	Exists(ctx context.Context, id string) (bool, error)

	// List は全ユーザーを作成日時昇順で返す。
	List(ctx context.Context) ([]*model.User, error)
}

// FollowRepository はフォロー関係の永続化インターフェース。
type FollowRepository interface {
	// Create はフォローエッジを作成する。
	// 既にエッジが存在する場合は何もせずcreated=falseを返す（冪等）。
	Create(ctx context.Context, follow *model.Follow) (created bool, err error)

	// DeleteEdges は指定の(follower, followee)に一致するエッジを全て削除し、
	// 削除件数を返す。重複エッジ混入に対する防御として全件削除する。
	DeleteEdges(ctx context.Context, followerID, followeeID string) (int64, error)

	// ListFollowerIDs は指定ユーザーをフォローしている全ユーザーIDを返す。
	// ファンアウトの宛先解決に使うため件数上限は設けない。
	ListFollowerIDs(ctx context.Context, followeeID string) ([]string, error)

	// ListFolloweeIDs は指定ユーザーがフォローしている全ユーザーIDを返す。
	ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error)
}

// RatingRepository は番組評価の永続化インターフェース。
type RatingRepository interface {
	// Upsert は自然キー(user_id, show_id)で評価をUPSERTする。
	// ON CONFLICT ... DO UPDATE によりチェックと書き込みはストア側で原子的に行われ、
	// 既存レコードのIDとwasNewビットを返す。
	Upsert(ctx context.Context, rating *model.Rating) (id string, wasNew bool, err error)

	// ListByUser はユーザーの全評価を返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Rating, error)

	// ListByShow は番組の全評価を返す。
	ListByShow(ctx context.Context, showID string) ([]*model.Rating, error)

	// ListRecentByUser はユーザーの評価をタイムスタンプ降順で最大limit件返す。
	// フォロー時のフィードバックフィルに使う。
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.Rating, error)

	// CountByShowSince はsince以降の評価を番組ごとに集計し、件数降順で最大limit件返す。
	CountByShowSince(ctx context.Context, since time.Time, limit int) ([]model.ShowRatingCount, error)

	// CountDistinctShowsSince はsince以降に評価が付いた番組の総数を返す。
	CountDistinctShowsSince(ctx context.Context, since time.Time) (int, error)
}

// EpisodeRatingRepository はエピソード評価の永続化インターフェース。
type EpisodeRatingRepository interface {
	// Upsert は4フィールドの複合自然キーで評価をUPSERTする。
	Upsert(ctx context.Context, rating *model.EpisodeRating) (id string, wasNew bool, err error)

	// ListBySeason はユーザー・番組・シーズンの全エピソード評価を返す。
	ListBySeason(ctx context.Context, userID, showID string, seasonNumber int) ([]*model.EpisodeRating, error)

	// FindByEpisode は特定エピソードの評価を取得する。見つからない場合はnilを返す。
	FindByEpisode(ctx context.Context, userID, showID string, seasonNumber, episodeNumber int) (*model.EpisodeRating, error)
}

// WatchStatusRepository は視聴ステータスとウォッチリストの永続化インターフェース。
type WatchStatusRepository interface {
	// Upsert は自然キー(user_id, show_id)で視聴ステータスをUPSERTする。
	// created=trueは新規作成（HTTP 201）、falseは上書き更新（HTTP 200）を意味する。
	Upsert(ctx context.Context, status *model.WatchStatus) (id string, created bool, err error)

	// Find は指定ユーザー・番組の視聴ステータスを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, userID, showID string) (*model.WatchStatus, error)

	// ListByStatus は指定ステータスの視聴レコードを返す。
	ListByStatus(ctx context.Context, userID string, kind model.WatchStatusKind) ([]*model.WatchStatus, error)

	// Delete は指定ユーザー・番組の視聴ステータスを削除する。
	// 削除対象がなかった場合はfalseを返す。
	Delete(ctx context.Context, userID, showID string) (bool, error)

	// AddToWatchlist はウォッチリストにエントリを追加する。
	AddToWatchlist(ctx context.Context, entry *model.WatchlistEntry) error
}

// FeedRepository はフィードアイテムの永続化インターフェース。
// 書き込みはファンアウトエンジンのみが行う。
type FeedRepository interface {
	// InsertItems は複数のフィードアイテムを単一トランザクションで挿入する。
	// 1回の呼び出しが1バッチに相当する。バッチサイズの上限管理は呼び出し側の責務。
	InsertItems(ctx context.Context, items []*model.FeedItem) error

	// ListByRecipient は受信者のフィードをタイムスタンプ降順で最大limit件返す。
	// beforeが指定された場合はそれより厳密に古いアイテムのみを返す（排他的カーソル）。
	// 各エントリには投稿者の表示名・ユーザー名を読み出し時にベストエフォートで付加する。
	ListByRecipient(ctx context.Context, userID string, before *time.Time, limit int) ([]*model.FeedEntry, error)
}
