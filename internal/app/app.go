// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/teli-app/teli/internal/config"
	"github.com/teli-app/teli/internal/database"
	"github.com/teli-app/teli/internal/feed"
	"github.com/teli-app/teli/internal/follow"
	"github.com/teli-app/teli/internal/handler"
	"github.com/teli-app/teli/internal/logger"
	"github.com/teli-app/teli/internal/metrics"
	"github.com/teli-app/teli/internal/middleware"
	"github.com/teli-app/teli/internal/rating"
	"github.com/teli-app/teli/internal/repository"
	"github.com/teli-app/teli/internal/security"
	"github.com/teli-app/teli/internal/tmdb"
	"github.com/teli-app/teli/internal/user"
	"github.com/teli-app/teli/internal/validation"
	"github.com/teli-app/teli/internal/watchstatus"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("tmdb_enabled", cfg.TMDBEnabled()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	followRepo := repository.NewPostgresFollowRepo(db)
	ratingRepo := repository.NewPostgresRatingRepo(db)
	episodeRepo := repository.NewPostgresEpisodeRatingRepo(db)
	watchRepo := repository.NewPostgresWatchStatusRepo(db)
	feedRepo := repository.NewPostgresFeedRepo(db)

	// 4. セキュリティサービスとTMDBクライアントの初期化
	sanitizer := security.NewUGCSanitizer()

	// TMDBトークンが未設定の場合、プロキシ系エンドポイントは503を返す
	tmdbClient := tmdb.NewClient(
		cfg.TMDBBaseURL, cfg.TMDBToken, cfg.TMDBTimeout,
		collector, slog.Default(),
	)

	// 5. フィードファンアウトエンジンの初期化
	fanoutEngine := feed.NewEngine(
		followRepo, ratingRepo, feedRepo,
		collector, slog.Default(),
		feed.EngineConfig{
			BatchSize:     cfg.FanoutBatchSize,
			BackfillLimit: cfg.BackfillLimit,
		},
	)

	// 6. ドメインサービスの初期化
	userService := user.NewService(userRepo, sanitizer)
	followService := follow.NewService(userRepo, followRepo, fanoutEngine)
	ratingService := rating.NewService(
		userRepo, ratingRepo, episodeRepo,
		sanitizer, fanoutEngine, tmdbClient, slog.Default(),
	)
	watchService := watchstatus.NewService(userRepo, watchRepo, sanitizer)
	feedService := feed.NewService(userRepo, feedRepo, cfg.FeedPageSize)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	rateLimiterCfg.Rate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.Burst = cfg.RateLimitGeneral
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		Validator: validation.New(),

		UserService:        userService,
		FollowService:      followService,
		RatingService:      ratingService,
		WatchStatusService: watchService,
		FeedService:        feedService,
		ShowService:        tmdbClient,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
