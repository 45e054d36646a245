package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teli-app/teli/internal/model"
)

// PostgresRatingRepo はPostgreSQLを使用した番組評価リポジトリ。
type PostgresRatingRepo struct {
	db *sql.DB
}

// NewPostgresRatingRepo はPostgresRatingRepoを生成する。
func NewPostgresRatingRepo(db *sql.DB) *PostgresRatingRepo {
	return &PostgresRatingRepo{db: db}
}

// Upsert は自然キー(user_id, show_id)で評価をUPSERTする。
// チェックと書き込みを分けると並行投稿で重複レコードが生まれるため、
// ON CONFLICT ... DO UPDATE で原子的に行う。更新時は既存行のIDが維持される。
// (xmax = 0) は挿入された行でのみ真になるため、wasNewビットとして返す。
func (r *PostgresRatingRepo) Upsert(ctx context.Context, rating *model.Rating) (string, bool, error) {
	var (
		id     string
		wasNew bool
	)
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO ratings (id, user_id, show_id, rating, comment, rated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT ON CONSTRAINT ratings_user_show_key
		 DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, rated_at = EXCLUDED.rated_at
		 RETURNING id, (xmax = 0)`,
		rating.ID, rating.UserID, rating.ShowID, rating.Rating, rating.Comment, rating.RatedAt,
	).Scan(&id, &wasNew)
	if err != nil {
		return "", false, fmt.Errorf("failed to upsert rating: %w", err)
	}

	return id, wasNew, nil
}

// ListByUser はユーザーの全評価をタイムスタンプ降順で返す。
func (r *PostgresRatingRepo) ListByUser(ctx context.Context, userID string) ([]*model.Rating, error) {
	return r.queryRatings(ctx,
		`SELECT id, user_id, show_id, rating, comment, rated_at
		 FROM ratings WHERE user_id = $1 ORDER BY rated_at DESC`,
		userID,
	)
}

// ListByShow は番組の全評価をタイムスタンプ降順で返す。
func (r *PostgresRatingRepo) ListByShow(ctx context.Context, showID string) ([]*model.Rating, error) {
	return r.queryRatings(ctx,
		`SELECT id, user_id, show_id, rating, comment, rated_at
		 FROM ratings WHERE show_id = $1 ORDER BY rated_at DESC`,
		showID,
	)
}

// ListRecentByUser はユーザーの評価をタイムスタンプ降順で最大limit件返す。
func (r *PostgresRatingRepo) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.Rating, error) {
	return r.queryRatings(ctx,
		`SELECT id, user_id, show_id, rating, comment, rated_at
		 FROM ratings WHERE user_id = $1 ORDER BY rated_at DESC LIMIT $2`,
		userID, limit,
	)
}

// CountByShowSince はsince以降の評価を番組ごとに集計し、件数降順で最大limit件返す。
func (r *PostgresRatingRepo) CountByShowSince(ctx context.Context, since time.Time, limit int) ([]model.ShowRatingCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT show_id, COUNT(*) AS rating_count
		 FROM ratings
		 WHERE rated_at >= $1
		 GROUP BY show_id
		 ORDER BY rating_count DESC, show_id
		 LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count ratings by show: %w", err)
	}
	defer rows.Close()

	var counts []model.ShowRatingCount
	for rows.Next() {
		var c model.ShowRatingCount
		if err := rows.Scan(&c.ShowID, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan rating count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rating counts: %w", err)
	}

	return counts, nil
}

// CountDistinctShowsSince はsince以降に評価が付いた番組の総数を返す。
func (r *PostgresRatingRepo) CountDistinctShowsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT show_id) FROM ratings WHERE rated_at >= $1`,
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct shows: %w", err)
	}

	return count, nil
}

func (r *PostgresRatingRepo) queryRatings(ctx context.Context, query string, args ...any) ([]*model.Rating, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*model.Rating
	for rows.Next() {
		rating := &model.Rating{}
		if err := rows.Scan(&rating.ID, &rating.UserID, &rating.ShowID, &rating.Rating, &rating.Comment, &rating.RatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ratings: %w", err)
	}

	return ratings, nil
}

// compile-time interface check
var _ RatingRepository = (*PostgresRatingRepo)(nil)
