// Package feed はフィードの取得・正規化・集約のドメインロジックを提供する。
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Fetcher は個別フィードのHTTPフェッチとパースを行う。
// SSRF検証、タイムアウト・ボディサイズ制限付きのHTTP GET、
// gofeedによるパースを実行する。1フィードの失敗は呼び出し元で
// 隔離される前提で、FeedUnavailableエラーとして返す。
type Fetcher struct {
	ssrfGuard   SSRFValidator
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(ssrfGuard SSRFValidator, logger *slog.Logger, timeout time.Duration, maxBodySize int64) *Fetcher {
	return &Fetcher{
		ssrfGuard:   ssrfGuard,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Fetch はディスクリプタのフィードを取得し、パース済みエントリ列を返す。
// ネットワーク・パースエラー時はFEED_UNAVAILABLEエラーを返す。
func (f *Fetcher) Fetch(ctx context.Context, descriptor model.FeedDescriptor) ([]*gofeed.Item, error) {
	start := time.Now()

	// SSRF検証
	if err := f.ssrfGuard.ValidateURL(descriptor.URL); err != nil {
		return nil, model.NewFeedUnavailableError(descriptor.Source, fmt.Errorf("SSRF検証に失敗: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, descriptor.URL, nil)
	if err != nil {
		return nil, model.NewFeedUnavailableError(descriptor.Source, fmt.Errorf("リクエスト作成に失敗: %w", err))
	}

	req.Header.Set("User-Agent", "music-news-24h/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, model.NewFeedUnavailableError(descriptor.Source, fmt.Errorf("HTTPリクエスト失敗: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewFeedUnavailableError(descriptor.Source,
			fmt.Errorf("フィードがステータス %d を返しました", resp.StatusCode))
	}

	// レスポンスボディを読み込み（最大サイズ制限付き）
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, model.NewFeedUnavailableError(descriptor.Source, fmt.Errorf("レスポンス読み取り失敗: %w", err))
	}

	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, model.NewFeedUnavailableError(descriptor.Source, fmt.Errorf("フィードのパースに失敗: %w", err))
	}

	f.logger.Debug("フィードフェッチが完了しました",
		slog.String("source", descriptor.Source),
		slog.String("feed_url", descriptor.URL),
		slog.Int("entry_count", len(parsedFeed.Items)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return parsedFeed.Items, nil
}
