package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teli-app/teli/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// リクエスト検証
	Validator RequestValidator

	// ドメインサービス
	UserService        UserServiceInterface
	FollowService      FollowServiceInterface
	RatingService      RatingServiceInterface
	WatchStatusService WatchStatusServiceInterface
	FeedService        FeedServiceInterface
	ShowService        ShowServiceInterface

	// Prometheusメトリクスエンドポイント
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → RateLimit
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(deps.RateLimiter.Middleware())

	userHandler := NewUserHandler(deps.UserService, deps.Validator)
	followHandler := NewFollowHandler(deps.FollowService, deps.Validator)
	ratingHandler := NewRatingHandler(deps.RatingService, deps.Validator)
	watchHandler := NewWatchStatusHandler(deps.WatchStatusService, deps.Validator)
	feedHandler := NewFeedHandler(deps.FeedService)
	showHandler := NewShowHandler(deps.ShowService)

	// 動作確認用
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Hello from Teli!"})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// ユーザー管理
	r.Post("/add_user", userHandler.AddUser)
	r.Get("/user/{id}", userHandler.GetUser)
	r.Get("/get_users", userHandler.ListUsers)

	// フォロー管理
	r.Post("/follow", followHandler.Follow)
	r.Post("/unfollow", followHandler.Unfollow)

	// 評価
	r.Post("/ratings", ratingHandler.AddRating)
	r.Post("/episode_ratings", ratingHandler.AddEpisodeRating)

	// 視聴ステータス
	r.Post("/update_watch_status", watchHandler.UpdateWatchStatus)
	r.Post("/delete_watch_status", watchHandler.DeleteWatchStatus)
	r.Post("/add_to_watchlist", watchHandler.AddToWatchlist)

	// ユーザー配下のリソース
	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/feed", feedHandler.GetFeed)
		r.Get("/ratings", ratingHandler.ListUserRatings)
		r.Get("/following", followHandler.ListFollowing)
		r.Get("/followers", followHandler.ListFollowers)
		r.Get("/currently_watching", watchHandler.ListCurrentlyWatching)
		r.Get("/want_to_watch", watchHandler.ListWantToWatch)
		r.Get("/watch_status/{show_id}", watchHandler.GetWatchStatus)
		r.Get("/shows/{show_id}/season/{season_number}/ratings", ratingHandler.ListEpisodeRatings)
	})

	// 番組メタデータプロキシと集計
	r.Route("/shows", func(r chi.Router) {
		r.Get("/search", showHandler.SearchShows)
		r.Get("/filter", showHandler.FilterShows)
		r.Get("/popular", ratingHandler.PopularShows)
		r.Get("/content-ratings/{show_id}", showHandler.GetContentRatings)

		r.Route("/{show_id}", func(r chi.Router) {
			r.Get("/", showHandler.GetShowDetail)
			r.Get("/ratings", ratingHandler.ListShowRatings)
			r.Get("/season/{season_number}", showHandler.GetSeasonDetail)
			r.Get("/season/{season_number}/episode/{episode_number}", showHandler.GetEpisodeDetail)
		})
	})

	r.Get("/genres", showHandler.ListGenres)
	r.Get("/languages", showHandler.ListLanguages)
	r.Get("/countries", showHandler.ListCountries)

	return r
}
