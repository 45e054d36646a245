package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/teli-app/teli/internal/model"
)

// PostgresEpisodeRatingRepo はPostgreSQLを使用したエピソード評価リポジトリ。
type PostgresEpisodeRatingRepo struct {
	db *sql.DB
}

// NewPostgresEpisodeRatingRepo はPostgresEpisodeRatingRepoを生成する。
func NewPostgresEpisodeRatingRepo(db *sql.DB) *PostgresEpisodeRatingRepo {
	return &PostgresEpisodeRatingRepo{db: db}
}

// Upsert は4フィールドの複合自然キーで評価をUPSERTする。
// 番組評価と同じく (xmax = 0) でwasNewビットを取得する。
func (r *PostgresEpisodeRatingRepo) Upsert(ctx context.Context, rating *model.EpisodeRating) (string, bool, error) {
	var (
		id     string
		wasNew bool
	)
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO episode_ratings (id, user_id, show_id, season_number, episode_number, rating, comment, rated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT ON CONSTRAINT episode_ratings_natural_key
		 DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, rated_at = EXCLUDED.rated_at
		 RETURNING id, (xmax = 0)`,
		rating.ID, rating.UserID, rating.ShowID, rating.SeasonNumber, rating.EpisodeNumber,
		rating.Rating, rating.Comment, rating.RatedAt,
	).Scan(&id, &wasNew)
	if err != nil {
		return "", false, fmt.Errorf("failed to upsert episode rating: %w", err)
	}

	return id, wasNew, nil
}

// ListBySeason はユーザー・番組・シーズンの全エピソード評価をエピソード番号昇順で返す。
func (r *PostgresEpisodeRatingRepo) ListBySeason(ctx context.Context, userID, showID string, seasonNumber int) ([]*model.EpisodeRating, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, show_id, season_number, episode_number, rating, comment, rated_at
		 FROM episode_ratings
		 WHERE user_id = $1 AND show_id = $2 AND season_number = $3
		 ORDER BY episode_number`,
		userID, showID, seasonNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list episode ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*model.EpisodeRating
	for rows.Next() {
		rating := &model.EpisodeRating{}
		if err := rows.Scan(&rating.ID, &rating.UserID, &rating.ShowID, &rating.SeasonNumber,
			&rating.EpisodeNumber, &rating.Rating, &rating.Comment, &rating.RatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan episode rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate episode ratings: %w", err)
	}

	return ratings, nil
}

// FindByEpisode は特定エピソードの評価を取得する。見つからない場合はnilを返す。
func (r *PostgresEpisodeRatingRepo) FindByEpisode(ctx context.Context, userID, showID string, seasonNumber, episodeNumber int) (*model.EpisodeRating, error) {
	rating := &model.EpisodeRating{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, show_id, season_number, episode_number, rating, comment, rated_at
		 FROM episode_ratings
		 WHERE user_id = $1 AND show_id = $2 AND season_number = $3 AND episode_number = $4`,
		userID, showID, seasonNumber, episodeNumber,
	).Scan(&rating.ID, &rating.UserID, &rating.ShowID, &rating.SeasonNumber,
		&rating.EpisodeNumber, &rating.Rating, &rating.Comment, &rating.RatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find episode rating: %w", err)
	}

	return rating, nil
}

// compile-time interface check
var _ EpisodeRatingRepository = (*PostgresEpisodeRatingRepo)(nil)
