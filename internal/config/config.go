// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// TMDB
	// TMDBTokenが空の場合、メタデータプロキシの全エンドポイントは503を返す
	// （プロセスはクラッシュさせない）。
	TMDBToken   string
	TMDBBaseURL string
	TMDBTimeout time.Duration

	// Feed
	FanoutBatchSize int
	FeedPageSize    int
	BackfillLimit   int

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// defaultTMDBBaseURL はTMDB APIの本番エンドポイント。
const defaultTMDBBaseURL = "https://api.themoviedb.org/3"

// Load は.envファイルと環境変数からConfigを読み込む。
// .envはカレントディレクトリに存在する場合のみ読み込む（本番では環境変数を直接使う）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envがあれば読み込む。既存の環境変数は上書きしない。
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TMDBToken = os.Getenv("TMDB_API_TOKEN")
	cfg.TMDBBaseURL = getEnvString("TMDB_BASE_URL", defaultTMDBBaseURL)
	cfg.TMDBTimeout = getEnvDuration("TMDB_TIMEOUT", 10*time.Second)
	cfg.FanoutBatchSize = getEnvInt("FANOUT_BATCH_SIZE", 500)
	cfg.FeedPageSize = getEnvInt("FEED_PAGE_SIZE", 50)
	cfg.BackfillLimit = getEnvInt("BACKFILL_LIMIT", 20)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// TMDBEnabled はメタデータプロキシが利用可能かどうかを返す。
func (c *Config) TMDBEnabled() bool {
	return c.TMDBToken != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
