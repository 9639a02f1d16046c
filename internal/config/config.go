package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort        string
	CORSAllowedOrigin string

	// Fetch
	FetchTimeout time.Duration
	FetchMaxSize int64

	// Sources
	SourcesCSVURL   string // 空の場合は静的デフォルトリストのみ使用
	SourcesCacheTTL time.Duration

	// Translation
	DeepLAPIKey         string // 空の場合は翻訳ステージをスキップ
	DeepLAPIURL         string
	TranslateMaxItems   int
	TranslateMaxSummary int
	TranslateCacheTTL   time.Duration

	// Response window
	DefaultHours int
	MaxHours     int

	// HTTP cache hints
	CacheMaxAge               time.Duration
	CacheStaleWhileRevalidate time.Duration

	// Rate Limit (req/min per client IP)
	RateLimitGeneral int
}

// Load は環境変数からConfigを読み込む。
// 必須の環境変数はない。翻訳APIキーとリモートソースURLは未設定なら
// 該当機能を無効化するだけで、起動は常に成功する。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 15*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)

	cfg.SourcesCSVURL = os.Getenv("SOURCES_CSV_URL")
	cfg.SourcesCacheTTL = getEnvDuration("SOURCES_CACHE_TTL", 10*time.Minute)

	cfg.DeepLAPIKey = os.Getenv("DEEPL_API_KEY")
	cfg.DeepLAPIURL = getEnvString("DEEPL_API_URL", "https://api-free.deepl.com/v2/translate")
	cfg.TranslateMaxItems = getEnvInt("TRANSLATE_MAX_ITEMS", 40)
	cfg.TranslateMaxSummary = getEnvInt("TRANSLATE_MAX_SUMMARY", 400)
	cfg.TranslateCacheTTL = getEnvDuration("TRANSLATE_CACHE_TTL", 6*time.Hour)

	cfg.DefaultHours = getEnvInt("DEFAULT_HOURS", 24)
	cfg.MaxHours = getEnvInt("MAX_HOURS", 72)

	cfg.CacheMaxAge = getEnvDuration("CACHE_MAX_AGE", 300*time.Second)
	cfg.CacheStaleWhileRevalidate = getEnvDuration("CACHE_STALE_WHILE_REVALIDATE", 600*time.Second)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)

	return cfg, nil
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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
