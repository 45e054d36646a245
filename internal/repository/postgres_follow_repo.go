package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/teli-app/teli/internal/model"
)

// PostgresFollowRepo はPostgreSQLを使用したフォロー関係リポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// Create はフォローエッジを作成する。
// ON CONFLICT DO NOTHING により既存エッジとの競合はストア側で原子的に解決され、
// 二重フォローは挿入0件（created=false）として観測される。
func (r *PostgresFollowRepo) Create(ctx context.Context, follow *model.Follow) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (id, follower_id, followee_id, followed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT ON CONSTRAINT follows_edge_key DO NOTHING`,
		follow.ID, follow.FollowerID, follow.FolloweeID, follow.FollowedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert follow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteEdges は指定の(follower, followee)に一致するエッジを全て削除し、削除件数を返す。
func (r *PostgresFollowRepo) DeleteEdges(ctx context.Context, followerID, followeeID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete follows: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// ListFollowerIDs は指定ユーザーをフォローしている全ユーザーIDを返す。
func (r *PostgresFollowRepo) ListFollowerIDs(ctx context.Context, followeeID string) ([]string, error) {
	return r.listEdgeIDs(ctx,
		`SELECT follower_id FROM follows WHERE followee_id = $1 ORDER BY followed_at`,
		followeeID,
	)
}

// ListFolloweeIDs は指定ユーザーがフォローしている全ユーザーIDを返す。
func (r *PostgresFollowRepo) ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error) {
	return r.listEdgeIDs(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = $1 ORDER BY followed_at`,
		followerID,
	)
}

func (r *PostgresFollowRepo) listEdgeIDs(ctx context.Context, query, id string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow edges: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var edgeID string
		if err := rows.Scan(&edgeID); err != nil {
			return nil, fmt.Errorf("failed to scan follow edge: %w", err)
		}
		ids = append(ids, edgeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follow edges: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
