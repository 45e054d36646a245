package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teli-app/teli/internal/model"
)

// PostgresFeedRepo はPostgreSQLを使用したフィードアイテムリポジトリ。
type PostgresFeedRepo struct {
	db *sql.DB
}

// NewPostgresFeedRepo はPostgresFeedRepoを生成する。
func NewPostgresFeedRepo(db *sql.DB) *PostgresFeedRepo {
	return &PostgresFeedRepo{db: db}
}

// InsertItems は複数のフィードアイテムを単一トランザクションで挿入する。
// トランザクションが1バッチに相当し、バッチ内はアトミック、バッチ間の原子性はない。
// 空スライスの場合は何もしない。
func (r *PostgresFeedRepo) InsertItems(ctx context.Context, items []*model.FeedItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO feed_items (id, user_id, rating_id, author_id, show_id, rating, comment, rated_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare feed insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		_, err := stmt.ExecContext(ctx,
			item.ID, item.UserID, item.RatingID, item.AuthorID, item.ShowID,
			item.Rating, item.Comment, item.RatedAt, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert feed item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feed batch: %w", err)
	}

	return nil
}

// ListByRecipient は受信者のフィードをタイムスタンプ降順で最大limit件返す。
// beforeが指定された場合はそれより厳密に古いアイテムのみを返す。
// 投稿者情報はLEFT JOINで読み出し時に付加する（非正規化はしない）。
// 投稿者のユーザーレコードが存在しない場合、名前フィールドは空のままになる。
func (r *PostgresFeedRepo) ListByRecipient(ctx context.Context, userID string, before *time.Time, limit int) ([]*model.FeedEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT fi.id, fi.user_id, fi.rating_id, fi.author_id, fi.show_id,
		        fi.rating, fi.comment, fi.rated_at, fi.created_at,
		        COALESCE(u.name, ''), COALESCE(u.username, '')
		 FROM feed_items fi
		 LEFT JOIN users u ON u.id = fi.author_id
		 WHERE fi.user_id = $1
		   AND ($2::timestamptz IS NULL OR fi.rated_at < $2)
		 ORDER BY fi.rated_at DESC
		 LIMIT $3`,
		userID, before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed items: %w", err)
	}
	defer rows.Close()

	var entries []*model.FeedEntry
	for rows.Next() {
		entry := &model.FeedEntry{}
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.RatingID, &entry.AuthorID, &entry.ShowID,
			&entry.Rating, &entry.Comment, &entry.RatedAt, &entry.CreatedAt,
			&entry.AuthorName, &entry.AuthorUsername); err != nil {
			return nil, fmt.Errorf("failed to scan feed item: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feed items: %w", err)
	}

	return entries, nil
}

// compile-time interface check
var _ FeedRepository = (*PostgresFeedRepo)(nil)
