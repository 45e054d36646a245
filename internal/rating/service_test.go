package rating

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/teli-app/teli/internal/feed"
	"github.com/teli-app/teli/internal/metrics"
	"github.com/teli-app/teli/internal/model"
	"github.com/teli-app/teli/internal/tmdb"
)

// --- モック ---

type mockUserRepo struct {
	existsFn func(ctx context.Context, id string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return true, nil
}
func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) { return nil, nil }

type mockRatingRepo struct {
	upsertFn                  func(ctx context.Context, rating *model.Rating) (string, bool, error)
	listByUserFn              func(ctx context.Context, userID string) ([]*model.Rating, error)
	listByShowFn              func(ctx context.Context, showID string) ([]*model.Rating, error)
	countByShowSinceFn        func(ctx context.Context, since time.Time, limit int) ([]model.ShowRatingCount, error)
	countDistinctShowsSinceFn func(ctx context.Context, since time.Time) (int, error)
}

func (m *mockRatingRepo) Upsert(ctx context.Context, rating *model.Rating) (string, bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, rating)
	}
	return "rating-1", false, nil
}
func (m *mockRatingRepo) ListByUser(ctx context.Context, userID string) ([]*model.Rating, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockRatingRepo) ListByShow(ctx context.Context, showID string) ([]*model.Rating, error) {
	if m.listByShowFn != nil {
		return m.listByShowFn(ctx, showID)
	}
	return nil, nil
}
func (m *mockRatingRepo) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.Rating, error) {
	return nil, nil
}
func (m *mockRatingRepo) CountByShowSince(ctx context.Context, since time.Time, limit int) ([]model.ShowRatingCount, error) {
	if m.countByShowSinceFn != nil {
		return m.countByShowSinceFn(ctx, since, limit)
	}
	return nil, nil
}
func (m *mockRatingRepo) CountDistinctShowsSince(ctx context.Context, since time.Time) (int, error) {
	if m.countDistinctShowsSinceFn != nil {
		return m.countDistinctShowsSinceFn(ctx, since)
	}
	return 0, nil
}

type mockEpisodeRepo struct {
	upsertFn        func(ctx context.Context, rating *model.EpisodeRating) (string, bool, error)
	listBySeasonFn  func(ctx context.Context, userID, showID string, seasonNumber int) ([]*model.EpisodeRating, error)
	findByEpisodeFn func(ctx context.Context, userID, showID string, seasonNumber, episodeNumber int) (*model.EpisodeRating, error)
}

func (m *mockEpisodeRepo) Upsert(ctx context.Context, rating *model.EpisodeRating) (string, bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, rating)
	}
	return "episode-rating-1", true, nil
}
func (m *mockEpisodeRepo) ListBySeason(ctx context.Context, userID, showID string, seasonNumber int) ([]*model.EpisodeRating, error) {
	if m.listBySeasonFn != nil {
		return m.listBySeasonFn(ctx, userID, showID, seasonNumber)
	}
	return nil, nil
}
func (m *mockEpisodeRepo) FindByEpisode(ctx context.Context, userID, showID string, seasonNumber, episodeNumber int) (*model.EpisodeRating, error) {
	if m.findByEpisodeFn != nil {
		return m.findByEpisodeFn(ctx, userID, showID, seasonNumber, episodeNumber)
	}
	return nil, nil
}

type mockFollowRepo struct {
	listFollowerIDsFn func(ctx context.Context, followeeID string) ([]string, error)
}

func (m *mockFollowRepo) Create(ctx context.Context, follow *model.Follow) (bool, error) {
	return true, nil
}
func (m *mockFollowRepo) DeleteEdges(ctx context.Context, followerID, followeeID string) (int64, error) {
	return 0, nil
}
func (m *mockFollowRepo) ListFollowerIDs(ctx context.Context, followeeID string) ([]string, error) {
	if m.listFollowerIDsFn != nil {
		return m.listFollowerIDsFn(ctx, followeeID)
	}
	return nil, nil
}
func (m *mockFollowRepo) ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error) {
	return nil, nil
}

type mockFeedRepo struct {
	insertItemsFn func(ctx context.Context, items []*model.FeedItem) error
}

func (m *mockFeedRepo) InsertItems(ctx context.Context, items []*model.FeedItem) error {
	if m.insertItemsFn != nil {
		return m.insertItemsFn(ctx, items)
	}
	return nil
}
func (m *mockFeedRepo) ListByRecipient(ctx context.Context, userID string, before *time.Time, limit int) ([]*model.FeedEntry, error) {
	return nil, nil
}

type mockSanitizer struct{}

func (mockSanitizer) Sanitize(raw string) string { return raw }

type mockShowDetailFetcher struct {
	showDetailFn func(ctx context.Context, showID string) (*tmdb.ShowDetail, error)
}

func (m *mockShowDetailFetcher) ShowDetail(ctx context.Context, showID string) (*tmdb.ShowDetail, error) {
	return m.showDetailFn(ctx, showID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(
	userRepo *mockUserRepo,
	ratingRepo *mockRatingRepo,
	episodeRepo *mockEpisodeRepo,
	followRepo *mockFollowRepo,
	feedRepo *mockFeedRepo,
	fetcher ShowDetailFetcher,
) *Service {
	engine := feed.NewEngine(followRepo, ratingRepo, feedRepo, metrics.NopCollector{}, testLogger(), feed.EngineConfig{})
	return NewService(userRepo, ratingRepo, episodeRepo, mockSanitizer{}, engine, fetcher, testLogger())
}

// --- テスト ---

// TestService_Submit_NewRatingFansOut は新規評価のみが
// フォロワーのフィードへ配信されることを検証する。
func TestService_Submit_NewRatingFansOut(t *testing.T) {
	var inserted []*model.FeedItem

	ratingRepo := &mockRatingRepo{
		upsertFn: func(ctx context.Context, rating *model.Rating) (string, bool, error) {
			return "rating-1", true, nil
		},
	}
	followRepo := &mockFollowRepo{
		listFollowerIDsFn: func(ctx context.Context, followeeID string) ([]string, error) {
			return []string{"follower-1", "follower-2"}, nil
		},
	}
	feedRepo := &mockFeedRepo{
		insertItemsFn: func(ctx context.Context, items []*model.FeedItem) error {
			inserted = items
			return nil
		},
	}

	service := newTestService(&mockUserRepo{}, ratingRepo, &mockEpisodeRepo{}, followRepo, feedRepo, nil)

	id, err := service.Submit(context.Background(), SubmitInput{
		UserID: "author-1", ShowID: "show-1", Rating: 9, Comment: "最高だった",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "rating-1" {
		t.Errorf("returned id = %q, want rating-1", id)
	}
	if len(inserted) != 2 {
		t.Fatalf("fanned-out item count = %d, want 2", len(inserted))
	}
	if inserted[0].RatingID != "rating-1" {
		t.Errorf("rating_id = %q, want rating-1", inserted[0].RatingID)
	}
}

// TestService_Submit_UpdateDoesNotFanOut は既存評価の上書き更新で
// 再配信されないことを検証する。
func TestService_Submit_UpdateDoesNotFanOut(t *testing.T) {
	fanoutQueried := false

	ratingRepo := &mockRatingRepo{
		upsertFn: func(ctx context.Context, rating *model.Rating) (string, bool, error) {
			return "rating-1", false, nil
		},
	}
	followRepo := &mockFollowRepo{
		listFollowerIDsFn: func(ctx context.Context, followeeID string) ([]string, error) {
			fanoutQueried = true
			return nil, nil
		},
	}

	service := newTestService(&mockUserRepo{}, ratingRepo, &mockEpisodeRepo{}, followRepo, &mockFeedRepo{}, nil)

	_, err := service.Submit(context.Background(), SubmitInput{
		UserID: "author-1", ShowID: "show-1", Rating: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fanoutQueried {
		t.Error("fanout should not run for a rating update")
	}
}

// TestService_Submit_FanoutFailureDoesNotFailWrite はファンアウトの失敗が
// 評価の保存を失敗させないことを検証する。
func TestService_Submit_FanoutFailureDoesNotFailWrite(t *testing.T) {
	ratingRepo := &mockRatingRepo{
		upsertFn: func(ctx context.Context, rating *model.Rating) (string, bool, error) {
			return "rating-1", true, nil
		},
	}
	followRepo := &mockFollowRepo{
		listFollowerIDsFn: func(ctx context.Context, followeeID string) ([]string, error) {
			return []string{"follower-1"}, nil
		},
	}
	feedRepo := &mockFeedRepo{
		insertItemsFn: func(ctx context.Context, items []*model.FeedItem) error {
			return errors.New("db error")
		},
	}

	service := newTestService(&mockUserRepo{}, ratingRepo, &mockEpisodeRepo{}, followRepo, feedRepo, nil)

	_, err := service.Submit(context.Background(), SubmitInput{
		UserID: "author-1", ShowID: "show-1", Rating: 9,
	})
	if err != nil {
		t.Errorf("fanout failure should not fail the submit: %v", err)
	}
}

// TestService_Submit_UserNotFound は存在しないユーザーの評価投稿が
// 拒否されることを検証する。
func TestService_Submit_UserNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		existsFn: func(ctx context.Context, id string) (bool, error) { return false, nil },
	}

	service := newTestService(userRepo, &mockRatingRepo{}, &mockEpisodeRepo{}, &mockFollowRepo{}, &mockFeedRepo{}, nil)

	_, err := service.Submit(context.Background(), SubmitInput{UserID: "ghost", ShowID: "show-1", Rating: 5})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// TestService_Submit_AssignsRecordID は新規評価が主キーIDを
// 採番された状態でリポジトリに渡ることを検証する。
func TestService_Submit_AssignsRecordID(t *testing.T) {
	var stored *model.Rating

	ratingRepo := &mockRatingRepo{
		upsertFn: func(ctx context.Context, rating *model.Rating) (string, bool, error) {
			stored = rating
			return rating.ID, true, nil
		},
	}

	service := newTestService(&mockUserRepo{}, ratingRepo, &mockEpisodeRepo{}, &mockFollowRepo{}, &mockFeedRepo{}, nil)

	id, err := service.Submit(context.Background(), SubmitInput{
		UserID: "author-1", ShowID: "show-1", Rating: 7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil {
		t.Fatal("rating was not stored")
	}
	if stored.ID == "" {
		t.Fatal("rating reached the repository with an empty ID")
	}
	if id != stored.ID {
		t.Errorf("returned id = %q, want %q", id, stored.ID)
	}
}

// TestService_SubmitEpisode_NoFanout はエピソード評価が保存され、
// フィードへは配信されないことを検証する。
func TestService_SubmitEpisode_NoFanout(t *testing.T) {
	var stored *model.EpisodeRating
	fanoutQueried := false

	episodeRepo := &mockEpisodeRepo{
		upsertFn: func(ctx context.Context, rating *model.EpisodeRating) (string, bool, error) {
			stored = rating
			return "episode-rating-1", true, nil
		},
	}
	followRepo := &mockFollowRepo{
		listFollowerIDsFn: func(ctx context.Context, followeeID string) ([]string, error) {
			fanoutQueried = true
			return nil, nil
		},
	}

	service := newTestService(&mockUserRepo{}, &mockRatingRepo{}, episodeRepo, followRepo, &mockFeedRepo{}, nil)

	id, err := service.SubmitEpisode(context.Background(), SubmitEpisodeInput{
		UserID: "user-1", ShowID: "show-1", SeasonNumber: 2, EpisodeNumber: 5, Rating: 8,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "episode-rating-1" {
		t.Errorf("returned id = %q, want episode-rating-1", id)
	}
	if stored == nil {
		t.Fatal("episode rating was not stored")
	}
	if stored.ID == "" {
		t.Error("episode rating reached the repository with an empty ID")
	}
	if stored.SeasonNumber != 2 || stored.EpisodeNumber != 5 {
		t.Errorf("stored S%dE%d, want S2E5", stored.SeasonNumber, stored.EpisodeNumber)
	}
	if fanoutQueried {
		t.Error("episode ratings should not fan out to feeds")
	}
}

// TestService_GetEpisodeRating_NotFound は評価未登録のエピソードで
// EPISODE_RATING_NOT_FOUNDが返ることを検証する。
func TestService_GetEpisodeRating_NotFound(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockRatingRepo{}, &mockEpisodeRepo{}, &mockFollowRepo{}, &mockFeedRepo{}, nil)

	_, err := service.GetEpisodeRating(context.Background(), "user-1", "show-1", 1, 1)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeEpisodeRatingNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeEpisodeRatingNotFound)
	}
}

// TestService_PopularShows は期間内の評価集計と詳細付加を検証する。
func TestService_PopularShows(t *testing.T) {
	var gotLimit int

	ratingRepo := &mockRatingRepo{
		countByShowSinceFn: func(ctx context.Context, since time.Time, limit int) ([]model.ShowRatingCount, error) {
			gotLimit = limit
			return []model.ShowRatingCount{
				{ShowID: "show-1", Count: 30},
				{ShowID: "show-2", Count: 20},
				{ShowID: "show-3", Count: 10},
			}, nil
		},
		countDistinctShowsSinceFn: func(ctx context.Context, since time.Time) (int, error) {
			return 3, nil
		},
	}
	fetcher := &mockShowDetailFetcher{
		showDetailFn: func(ctx context.Context, showID string) (*tmdb.ShowDetail, error) {
			return &tmdb.ShowDetail{}, nil
		},
	}

	service := newTestService(&mockUserRepo{}, ratingRepo, &mockEpisodeRepo{}, &mockFollowRepo{}, &mockFeedRepo{}, fetcher)

	result, err := service.PopularShows(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 100 {
		t.Errorf("aggregation limit = %d, want 100", gotLimit)
	}
	if result.TotalShowsFound != 3 {
		t.Errorf("TotalShowsFound = %d, want 3", result.TotalShowsFound)
	}
	if len(result.Shows) != 2 {
		t.Fatalf("show count = %d, want 2 (truncated)", len(result.Shows))
	}
	if result.Shows[0].RatingCount != 30 {
		t.Errorf("top show rating count = %d, want 30", result.Shows[0].RatingCount)
	}
	if result.TimeframeDays != 7 {
		t.Errorf("TimeframeDays = %d, want 7", result.TimeframeDays)
	}
}

// TestService_PopularShows_SkipsFailedEnrichment は詳細取得に失敗した番組が
// 結果から除外されることを検証する。
func TestService_PopularShows_SkipsFailedEnrichment(t *testing.T) {
	ratingRepo := &mockRatingRepo{
		countByShowSinceFn: func(ctx context.Context, since time.Time, limit int) ([]model.ShowRatingCount, error) {
			return []model.ShowRatingCount{
				{ShowID: "show-1", Count: 30},
				{ShowID: "show-2", Count: 20},
			}, nil
		},
		countDistinctShowsSinceFn: func(ctx context.Context, since time.Time) (int, error) {
			return 2, nil
		},
	}
	fetcher := &mockShowDetailFetcher{
		showDetailFn: func(ctx context.Context, showID string) (*tmdb.ShowDetail, error) {
			if showID == "show-1" {
				return nil, errors.New("upstream error")
			}
			return &tmdb.ShowDetail{}, nil
		},
	}

	service := newTestService(&mockUserRepo{}, ratingRepo, &mockEpisodeRepo{}, &mockFollowRepo{}, &mockFeedRepo{}, fetcher)

	result, err := service.PopularShows(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Shows) != 1 {
		t.Fatalf("show count = %d, want 1 (failed show skipped)", len(result.Shows))
	}
	if result.Shows[0].RatingCount != 20 {
		t.Errorf("surviving show rating count = %d, want 20", result.Shows[0].RatingCount)
	}
	if result.TotalShowsFound != 2 {
		t.Errorf("TotalShowsFound = %d, want 2", result.TotalShowsFound)
	}
}

// TestService_PopularShows_TotalNotCappedByRankingLimit は番組総数が
// ランキングの取得上限(100件)を超えても正しく報告されることを検証する。
func TestService_PopularShows_TotalNotCappedByRankingLimit(t *testing.T) {
	ratingRepo := &mockRatingRepo{
		countByShowSinceFn: func(ctx context.Context, since time.Time, limit int) ([]model.ShowRatingCount, error) {
			return []model.ShowRatingCount{{ShowID: "show-1", Count: 30}}, nil
		},
		countDistinctShowsSinceFn: func(ctx context.Context, since time.Time) (int, error) {
			return 150, nil
		},
	}
	fetcher := &mockShowDetailFetcher{
		showDetailFn: func(ctx context.Context, showID string) (*tmdb.ShowDetail, error) {
			return &tmdb.ShowDetail{}, nil
		},
	}

	service := newTestService(&mockUserRepo{}, ratingRepo, &mockEpisodeRepo{}, &mockFollowRepo{}, &mockFeedRepo{}, fetcher)

	result, err := service.PopularShows(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalShowsFound != 150 {
		t.Errorf("TotalShowsFound = %d, want 150", result.TotalShowsFound)
	}
}

// TestService_PopularShows_ParamBounds はtimeframeの下限と
// num_most_popularのクランプを検証する。
func TestService_PopularShows_ParamBounds(t *testing.T) {
	ratingRepo := &mockRatingRepo{
		countByShowSinceFn: func(ctx context.Context, since time.Time, limit int) ([]model.ShowRatingCount, error) {
			return nil, nil
		},
	}
	service := newTestService(&mockUserRepo{}, ratingRepo, &mockEpisodeRepo{}, &mockFollowRepo{}, &mockFeedRepo{}, nil)

	// timeframe < 1 は不正
	_, err := service.PopularShows(context.Background(), 0, 10)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidParameter {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidParameter)
	}

	// num_most_popular は1未満でデフォルト10、上限100でクランプ
	result, err := service.PopularShows(context.Background(), 7, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NumMostPopular != 10 {
		t.Errorf("NumMostPopular = %d, want 10", result.NumMostPopular)
	}

	result, err = service.PopularShows(context.Background(), 7, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NumMostPopular != 100 {
		t.Errorf("NumMostPopular = %d, want 100", result.NumMostPopular)
	}
}
