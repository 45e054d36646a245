// Package rating は番組・エピソード評価のドメインロジックを提供する。
package rating

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teli-app/teli/internal/feed"
	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/repository"
	"github.com/teli-app/teli/internal/security"
	"github.com/teli-app/teli/internal/tmdb"
)

// ShowDetailFetcher は人気番組の詳細付加に使うメタデータ取得インターフェース。
type ShowDetailFetcher interface {
	ShowDetail(ctx context.Context, showID string) (*tmdb.ShowDetail, error)
}

// Service は評価管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	ratingRepo  repository.RatingRepository
	episodeRepo repository.EpisodeRatingRepository
	sanitizer   security.UGCSanitizerService
	fanout      *feed.Engine
	showDetails ShowDetailFetcher
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// showDetailsは人気番組エンドポイントの詳細付加にのみ使われ、nilの場合は付加をスキップする。
func NewService(
	userRepo repository.UserRepository,
	ratingRepo repository.RatingRepository,
	episodeRepo repository.EpisodeRatingRepository,
	sanitizer security.UGCSanitizerService,
	fanout *feed.Engine,
	showDetails ShowDetailFetcher,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepo:    userRepo,
		ratingRepo:  ratingRepo,
		episodeRepo: episodeRepo,
		sanitizer:   sanitizer,
		fanout:      fanout,
		showDetails: showDetails,
		logger:      logger,
	}
}

// SubmitInput は番組評価の入力。
type SubmitInput struct {
	UserID  string
	ShowID  string
	Rating  int
	Comment string
}

// Submit は番組評価をUPSERTし、保存されたレコードのIDを返す。
// 同一(user_id, show_id)への再投稿は既存レコードの上書き更新になり、
// フィードへの再配信は行わない。新規評価の場合のみフォロワーへファンアウトする。
// ファンアウトの失敗は主書き込みの成功に影響しない。
func (s *Service) Submit(ctx context.Context, input SubmitInput) (string, error) {
	exists, err := s.userRepo.Exists(ctx, input.UserID)
	if err != nil {
		return "", fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	if !exists {
		return "", model.NewUserNotFoundError(input.UserID)
	}

	// 新規挿入時の主キー。競合時は既存行のIDがRETURNINGで返る。
	r := &model.Rating{
		ID:      uuid.NewString(),
		UserID:  input.UserID,
		ShowID:  input.ShowID,
		Rating:  input.Rating,
		Comment: s.sanitizer.Sanitize(input.Comment),
		RatedAt: time.Now().UTC(),
	}

	id, wasNew, err := s.ratingRepo.Upsert(ctx, r)
	if err != nil {
		return "", fmt.Errorf("評価の保存に失敗しました: %w", err)
	}

	// 更新は配信済みアイテムの重複を避けるためファンアウトしない
	if wasNew {
		s.fanout.DistributeRating(ctx, r, id)
	}

	return id, nil
}

// SubmitEpisodeInput はエピソード評価の入力。
type SubmitEpisodeInput struct {
	UserID        string
	ShowID        string
	SeasonNumber  int
	EpisodeNumber int
	Rating        int
	Comment       string
}

// SubmitEpisode はエピソード評価をUPSERTし、保存されたレコードのIDを返す。
// 番組評価と同じ上書き更新セマンティクスを持つが、フィードへのファンアウトは行わない。
func (s *Service) SubmitEpisode(ctx context.Context, input SubmitEpisodeInput) (string, error) {
	exists, err := s.userRepo.Exists(ctx, input.UserID)
	if err != nil {
		return "", fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	if !exists {
		return "", model.NewUserNotFoundError(input.UserID)
	}

	r := &model.EpisodeRating{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		ShowID:        input.ShowID,
		SeasonNumber:  input.SeasonNumber,
		EpisodeNumber: input.EpisodeNumber,
		Rating:        input.Rating,
		Comment:       s.sanitizer.Sanitize(input.Comment),
		RatedAt:       time.Now().UTC(),
	}

	id, _, err := s.episodeRepo.Upsert(ctx, r)
	if err != nil {
		return "", fmt.Errorf("エピソード評価の保存に失敗しました: %w", err)
	}

	return id, nil
}

// ListByUser は指定ユーザーの全番組評価を返す。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*model.Rating, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ratings, err := s.ratingRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("評価一覧の取得に失敗しました: %w", err)
	}
	return ratings, nil
}

// ListByShow は指定番組に付いた全評価を返す。
func (s *Service) ListByShow(ctx context.Context, showID string) ([]*model.Rating, error) {
	ratings, err := s.ratingRepo.ListByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("評価一覧の取得に失敗しました: %w", err)
	}
	return ratings, nil
}

// ListEpisodesBySeason は指定ユーザー・番組・シーズンの全エピソード評価を返す。
func (s *Service) ListEpisodesBySeason(ctx context.Context, userID, showID string, seasonNumber int) ([]*model.EpisodeRating, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ratings, err := s.episodeRepo.ListBySeason(ctx, userID, showID, seasonNumber)
	if err != nil {
		return nil, fmt.Errorf("エピソード評価一覧の取得に失敗しました: %w", err)
	}
	return ratings, nil
}

// GetEpisodeRating は特定エピソードの評価を取得する。
// 存在しない場合はEPISODE_RATING_NOT_FOUNDを返す。
func (s *Service) GetEpisodeRating(ctx context.Context, userID, showID string, seasonNumber, episodeNumber int) (*model.EpisodeRating, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	r, err := s.episodeRepo.FindByEpisode(ctx, userID, showID, seasonNumber, episodeNumber)
	if err != nil {
		return nil, fmt.Errorf("エピソード評価の取得に失敗しました: %w", err)
	}
	if r == nil {
		return nil, model.NewEpisodeRatingNotFoundError()
	}
	return r, nil
}

// PopularShow は集計期間内で人気だった番組1件分の結果を表す。
type PopularShow struct {
	Detail        *tmdb.ShowDetail
	RatingCount   int
	TimeframeDays int
}

// PopularShowsResult は人気番組集計の結果を表す。
type PopularShowsResult struct {
	Shows           []PopularShow
	TimeframeDays   int
	TotalShowsFound int
	NumMostPopular  int
}

// maxPopularShows はnum_most_popularの上限。
const maxPopularShows = 100

// PopularShows は指定期間内の評価件数で番組をランキングする。
// 各番組の詳細はメタデータプロキシからベストエフォートで付加し、
// 取得に失敗した番組は結果から除外する。
func (s *Service) PopularShows(ctx context.Context, timeframeDays, numMostPopular int) (*PopularShowsResult, error) {
	if timeframeDays < 1 {
		return nil, model.NewInvalidParameterError("timeframe", "1以上の整数を指定してください")
	}
	if numMostPopular < 1 {
		numMostPopular = 10
	} else if numMostPopular > maxPopularShows {
		numMostPopular = maxPopularShows
	}

	since := time.Now().UTC().AddDate(0, 0, -timeframeDays)

	counts, err := s.ratingRepo.CountByShowSince(ctx, since, maxPopularShows)
	if err != nil {
		return nil, fmt.Errorf("評価の集計に失敗しました: %w", err)
	}

	// 総数はランキングの取得上限に関係なく、期間内に評価が付いた全番組を数える
	totalFound, err := s.ratingRepo.CountDistinctShowsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("評価の集計に失敗しました: %w", err)
	}

	if len(counts) > numMostPopular {
		counts = counts[:numMostPopular]
	}

	result := &PopularShowsResult{
		Shows:           make([]PopularShow, 0, len(counts)),
		TimeframeDays:   timeframeDays,
		TotalShowsFound: totalFound,
		NumMostPopular:  numMostPopular,
	}

	for _, c := range counts {
		if s.showDetails == nil {
			continue
		}
		detail, err := s.showDetails.ShowDetail(ctx, c.ShowID)
		if err != nil {
			// 詳細が取れない番組はスキップして続行する
			s.logger.Warn("人気番組の詳細取得に失敗しました",
				slog.String("show_id", c.ShowID),
				slog.String("error", err.Error()))
			continue
		}
		result.Shows = append(result.Shows, PopularShow{
			Detail:        detail,
			RatingCount:   c.Count,
			TimeframeDays: timeframeDays,
		})
	}

	return result, nil
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	if !exists {
		return model.NewUserNotFoundError(userID)
	}
	return nil
}
