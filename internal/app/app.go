// Package app はアプリケーションの初期化・依存関係のワイヤリング・起動を行う。
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

	"github.com/packageemoji/music-news-24h-web/internal/config"
	"github.com/packageemoji/music-news-24h-web/internal/feed"
	"github.com/packageemoji/music-news-24h-web/internal/genre"
	"github.com/packageemoji/music-news-24h-web/internal/handler"
	"github.com/packageemoji/music-news-24h-web/internal/logger"
	"github.com/packageemoji/music-news-24h-web/internal/metrics"
	"github.com/packageemoji/music-news-24h-web/internal/middleware"
	"github.com/packageemoji/music-news-24h-web/internal/security"
	"github.com/packageemoji/music-news-24h-web/internal/source"
	"github.com/packageemoji/music-news-24h-web/internal/translate"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	logger.SetupDefault(w)

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
		slog.Bool("translation_enabled", cfg.DeepLAPIKey != ""),
		slog.Bool("remote_sources_enabled", cfg.SourcesCSVURL != ""),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. セキュリティサービス
	ssrfGuard := security.NewSSRFGuard()
	extractor := security.NewTextExtractor()

	// 3. フィードソースプロバイダ
	var sources handler.SourceProvider
	if cfg.SourcesCSVURL != "" {
		sources = source.NewRemoteCSVProvider(
			cfg.SourcesCSVURL,
			ssrfGuard.NewSafeClient(cfg.FetchTimeout, cfg.FetchMaxSize),
			log,
			cfg.SourcesCacheTTL,
			source.DefaultDescriptors(),
		)
	} else {
		sources = source.NewStaticProvider(source.DefaultDescriptors())
	}

	// 4. 集約パイプライン
	fetcher := feed.NewFetcher(ssrfGuard, log, cfg.FetchTimeout, cfg.FetchMaxSize)
	normalizer := feed.NewNormalizer(extractor)
	aggregator := feed.NewAggregator(fetcher, normalizer, log, collector)

	classifier := genre.NewClassifier(genre.DefaultRules())

	// 5. 翻訳ステージ（APIキー未設定の場合はno-op）
	var translator translate.Translator
	if cfg.DeepLAPIKey != "" {
		translator = translate.NewClient(
			&http.Client{Timeout: cfg.FetchTimeout},
			log,
			cfg.DeepLAPIURL,
			cfg.DeepLAPIKey,
		)
	}
	translationCache := translate.NewCache(cfg.TranslateCacheTTL)
	gateway := translate.NewGateway(
		translator, translationCache, log, collector,
		cfg.TranslateMaxItems, cfg.TranslateMaxSummary,
	)

	// 6. ハンドラーとルーター
	newsHandler := handler.NewNewsHandler(
		sources, aggregator, classifier, gateway, log,
		handler.NewsHandlerConfig{
			DefaultHours:              cfg.DefaultHours,
			MaxHours:                  cfg.MaxHours,
			CacheMaxAge:               cfg.CacheMaxAge,
			CacheStaleWhileRevalidate: cfg.CacheStaleWhileRevalidate,
		},
	)

	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		StatusRecorder:    collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		NewsHandler:       newsHandler,
		Gatherer:          registry,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // フェッチ込みのパイプライン実行時間を許容する
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

// runHealthcheck はローカルサーバーの/healthzを1回叩いて結果を終了コードで返す。
// Dockerのdistrolessイメージにはcurl等がないため、バイナリ自身で代替する。
func runHealthcheck(port string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:" + port + "/healthz")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}
