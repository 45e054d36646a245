package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/teli-app/teli/internal/model"
)

// PostgresWatchStatusRepo はPostgreSQLを使用した視聴ステータスリポジトリ。
type PostgresWatchStatusRepo struct {
	db *sql.DB
}

// NewPostgresWatchStatusRepo はPostgresWatchStatusRepoを生成する。
func NewPostgresWatchStatusRepo(db *sql.DB) *PostgresWatchStatusRepo {
	return &PostgresWatchStatusRepo{db: db}
}

// Upsert は自然キー(user_id, show_id)で視聴ステータスをUPSERTする。
// createdビットはHTTPレスポンスの201/200の使い分けに対応する。
func (r *PostgresWatchStatusRepo) Upsert(ctx context.Context, status *model.WatchStatus) (string, bool, error) {
	var (
		id      string
		created bool
	)
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO watch_status (id, user_id, show_id, status, current_season, current_episode, notes, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT ON CONSTRAINT watch_status_user_show_key
		 DO UPDATE SET status = EXCLUDED.status,
		               current_season = EXCLUDED.current_season,
		               current_episode = EXCLUDED.current_episode,
		               notes = EXCLUDED.notes,
		               updated_at = EXCLUDED.updated_at
		 RETURNING id, (xmax = 0)`,
		status.ID, status.UserID, status.ShowID, string(status.Status),
		status.CurrentSeason, status.CurrentEpisode, status.Notes, status.UpdatedAt,
	).Scan(&id, &created)
	if err != nil {
		return "", false, fmt.Errorf("failed to upsert watch status: %w", err)
	}

	return id, created, nil
}

// Find は指定ユーザー・番組の視聴ステータスを取得する。見つからない場合はnilを返す。
func (r *PostgresWatchStatusRepo) Find(ctx context.Context, userID, showID string) (*model.WatchStatus, error) {
	status := &model.WatchStatus{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, show_id, status, current_season, current_episode, notes, updated_at
		 FROM watch_status WHERE user_id = $1 AND show_id = $2`,
		userID, showID,
	).Scan(&status.ID, &status.UserID, &status.ShowID, &status.Status,
		&status.CurrentSeason, &status.CurrentEpisode, &status.Notes, &status.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find watch status: %w", err)
	}

	return status, nil
}

// ListByStatus は指定ステータスの視聴レコードを更新日時降順で返す。
func (r *PostgresWatchStatusRepo) ListByStatus(ctx context.Context, userID string, kind model.WatchStatusKind) ([]*model.WatchStatus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, show_id, status, current_season, current_episode, notes, updated_at
		 FROM watch_status
		 WHERE user_id = $1 AND status = $2
		 ORDER BY updated_at DESC`,
		userID, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*model.WatchStatus
	for rows.Next() {
		status := &model.WatchStatus{}
		if err := rows.Scan(&status.ID, &status.UserID, &status.ShowID, &status.Status,
			&status.CurrentSeason, &status.CurrentEpisode, &status.Notes, &status.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watch status: %w", err)
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watch statuses: %w", err)
	}

	return statuses, nil
}

// Delete は指定ユーザー・番組の視聴ステータスを削除する。
func (r *PostgresWatchStatusRepo) Delete(ctx context.Context, userID, showID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM watch_status WHERE user_id = $1 AND show_id = $2`,
		userID, showID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete watch status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddToWatchlist はウォッチリストにエントリを追加する。
func (r *PostgresWatchStatusRepo) AddToWatchlist(ctx context.Context, entry *model.WatchlistEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watchlists (id, user_id, show_id, added_at) VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.UserID, entry.ShowID, entry.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert watchlist entry: %w", err)
	}
	return nil
}

// compile-time interface check
var _ WatchStatusRepository = (*PostgresWatchStatusRepo)(nil)
