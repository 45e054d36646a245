// Package feed はアクティビティフィードのファンアウトと読み出しを提供する。
//
// ファンアウトは書き込み時分散（fan-out on write）方式で、新規評価を
// フォロワーごとのフィードパーティションへ非正規化コピーする。
// 配信はベストエフォートであり、失敗してもトリガ元の書き込みは成功のまま返る。
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teli-app/teli/internal/metrics"
	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/repository"
)

const (
	// defaultBatchSize は1トランザクションあたりの最大ミューテーション数。
	// ストアのバッチ書き込み上限に合わせる。
	defaultBatchSize = 500
	// defaultBackfillLimit はフォロー時にバックフィルする評価の最大件数。
	defaultBackfillLimit = 20
)

// Engine はフィードのファンアウトエンジン。
// FeedItemの唯一の書き込み主体で、他のコンポーネントはフィードに書き込まない。
type Engine struct {
	followRepo repository.FollowRepository
	ratingRepo repository.RatingRepository
	feedRepo   repository.FeedRepository
	collector  metrics.MetricsCollector
	logger     *slog.Logger

	batchSize     int
	backfillLimit int
}

// EngineConfig はEngineの調整パラメータ。ゼロ値はデフォルトに置き換えられる。
type EngineConfig struct {
	BatchSize     int
	BackfillLimit int
}

// NewEngine はEngineの新しいインスタンスを生成する。
func NewEngine(
	followRepo repository.FollowRepository,
	ratingRepo repository.RatingRepository,
	feedRepo repository.FeedRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	cfg EngineConfig,
) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BackfillLimit <= 0 {
		cfg.BackfillLimit = defaultBackfillLimit
	}
	return &Engine{
		followRepo:    followRepo,
		ratingRepo:    ratingRepo,
		feedRepo:      feedRepo,
		collector:     collector,
		logger:        logger,
		batchSize:     cfg.BatchSize,
		backfillLimit: cfg.BackfillLimit,
	}
}

// DistributeRating は新規作成された評価を投稿者の全フォロワーのフィードへ配信する。
//
// 契約:
//   - 呼び出し側は新規評価（wasNew=true）の場合のみ呼ぶこと。更新の再配信はしない。
//   - フォロワー一覧は件数無制限に取得し、batchSizeごとのトランザクションに分割して
//     順次コミットする。各バッチ内はアトミックだが、バッチ間の原子性はない。
//     途中で失敗した場合、評価は一部のフォロワーにのみ配信された状態で残る。
//   - 失敗はログとメトリクスに記録して握りつぶす。フィード配信の失敗が
//     トリガ元の書き込みを失敗させることはない。
func (e *Engine) DistributeRating(ctx context.Context, rating *model.Rating, ratingID string) {
	followerIDs, err := e.followRepo.ListFollowerIDs(ctx, rating.UserID)
	if err != nil {
		e.collector.RecordFanoutFailure()
		e.logger.Error("フォロワー一覧の取得に失敗したためファンアウトを中止します",
			slog.String("author_id", rating.UserID),
			slog.String("rating_id", ratingID),
			slog.String("error", err.Error()),
		)
		return
	}

	if len(followerIDs) == 0 {
		return
	}

	now := time.Now().UTC()
	items := make([]*model.FeedItem, len(followerIDs))
	for i, followerID := range followerIDs {
		items[i] = &model.FeedItem{
			ID:        uuid.NewString(),
			UserID:    followerID,
			RatingID:  ratingID,
			AuthorID:  rating.UserID,
			ShowID:    rating.ShowID,
			Rating:    rating.Rating,
			Comment:   rating.Comment,
			RatedAt:   rating.RatedAt,
			CreatedAt: now,
		}
	}

	delivered := 0
	for start := 0; start < len(items); start += e.batchSize {
		end := start + e.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		if err := e.feedRepo.InsertItems(ctx, batch); err != nil {
			// 残りのバッチは諦める。配信済みバッチはロールバックしない
			e.collector.RecordFanoutFailure()
			e.logger.Error("フィードのバッチコミットに失敗しました",
				slog.String("author_id", rating.UserID),
				slog.String("rating_id", ratingID),
				slog.Int("delivered", delivered),
				slog.Int("remaining", len(items)-delivered),
				slog.String("error", err.Error()),
			)
			return
		}

		delivered += len(batch)
		e.collector.RecordFanoutBatchCommit()
	}

	e.collector.RecordFanoutDelivered(delivered)
	e.logger.Info("評価をフォロワーのフィードへ配信しました",
		slog.String("author_id", rating.UserID),
		slog.String("rating_id", ratingID),
		slog.Int("follower_count", delivered),
	)
}

// BackfillOnFollow は新規フォロー成立時に、フォロイーの直近の評価を
// フォロワーのフィードへコピーする。
//
// 固定サイズの一括コピーであり継続購読ではない。backfillLimitを超えて古い評価は
// このフォロワーには二度と配信されない。失敗はログとメトリクスに記録して握りつぶす。
func (e *Engine) BackfillOnFollow(ctx context.Context, followerID, followeeID string) {
	ratings, err := e.ratingRepo.ListRecentByUser(ctx, followeeID, e.backfillLimit)
	if err != nil {
		e.collector.RecordFanoutFailure()
		e.logger.Error("バックフィル対象の評価取得に失敗しました",
			slog.String("follower_id", followerID),
			slog.String("followee_id", followeeID),
			slog.String("error", err.Error()),
		)
		return
	}

	if len(ratings) == 0 {
		return
	}

	now := time.Now().UTC()
	items := make([]*model.FeedItem, len(ratings))
	for i, rating := range ratings {
		items[i] = &model.FeedItem{
			ID:        uuid.NewString(),
			UserID:    followerID,
			RatingID:  rating.ID,
			AuthorID:  rating.UserID,
			ShowID:    rating.ShowID,
			Rating:    rating.Rating,
			Comment:   rating.Comment,
			RatedAt:   rating.RatedAt,
			CreatedAt: now,
		}
	}

	// バックフィルは高々backfillLimit件のため常に1バッチで収まる
	if err := e.feedRepo.InsertItems(ctx, items); err != nil {
		e.collector.RecordFanoutFailure()
		e.logger.Error("バックフィルのバッチコミットに失敗しました",
			slog.String("follower_id", followerID),
			slog.String("followee_id", followeeID),
			slog.String("error", err.Error()),
		)
		return
	}

	e.collector.RecordBackfillDelivered(len(items))
}
