package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// FeedFetcher は単一フィード取得のインターフェース。
// テスト時にモックに差し替え可能。
type FeedFetcher interface {
	Fetch(ctx context.Context, descriptor model.FeedDescriptor) ([]*gofeed.Item, error)
}

// MetricsRecorder は集約ステージのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordFetchSuccess(source string)
	RecordFetchFailure(source string)
	RecordFetchLatency(duration time.Duration)
	RecordItemsAggregated(count int)
}

// Aggregator は全ディスクリプタの並行フェッチ・正規化・重複排除・整列を行う。
// 各フェッチは独立に完了し（all-settled）、1フィードの失敗は他のフィードを
// 中断しない。失敗したソースの寄与は0件となり、ログとメトリクスにのみ残る。
type Aggregator struct {
	fetcher    FeedFetcher
	normalizer *Normalizer
	logger     *slog.Logger
	metrics    MetricsRecorder
}

// NewAggregator はAggregatorの新しいインスタンスを生成する。
func NewAggregator(fetcher FeedFetcher, normalizer *Normalizer, logger *slog.Logger, metrics MetricsRecorder) *Aggregator {
	return &Aggregator{
		fetcher:    fetcher,
		normalizer: normalizer,
		logger:     logger,
		metrics:    metrics,
	}
}

// Aggregate は全ディスクリプタを並行フェッチし、時間窓を通過した
// 正規化済みItemの重複排除・整列済み列を返す。
//   - 整列: 公開日時の降順。同時刻はソース名の昇順で安定化する
//   - 重複排除: URL単位。整列後の先頭（最新）の出現を残す
func (a *Aggregator) Aggregate(ctx context.Context, descriptors []model.FeedDescriptor, since time.Time) []model.Item {
	results := make([][]model.Item, len(descriptors))

	var wg sync.WaitGroup
	for i, descriptor := range descriptors {
		wg.Add(1)
		go func(i int, descriptor model.FeedDescriptor) {
			defer wg.Done()
			results[i] = a.fetchOne(ctx, descriptor, since)
		}(i, descriptor)
	}
	wg.Wait()

	var items []model.Item
	for _, part := range results {
		items = append(items, part...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].PublishedAt.Equal(items[j].PublishedAt) {
			return items[i].PublishedAt.After(items[j].PublishedAt)
		}
		return items[i].Source < items[j].Source
	})

	deduped := dedupeByURL(items)

	a.metrics.RecordItemsAggregated(len(deduped))
	a.logger.Info("フィード集約が完了しました",
		slog.Int("feed_count", len(descriptors)),
		slog.Int("item_count", len(deduped)),
		slog.Time("since", since),
	)

	return deduped
}

// fetchOne は1ディスクリプタのフェッチと正規化を行う。
// 失敗はログ・メトリクスに記録して空列を返す（他フィードへ波及させない）。
func (a *Aggregator) fetchOne(ctx context.Context, descriptor model.FeedDescriptor, since time.Time) []model.Item {
	start := time.Now()

	entries, err := a.fetcher.Fetch(ctx, descriptor)
	a.metrics.RecordFetchLatency(time.Since(start))

	if err != nil {
		a.metrics.RecordFetchFailure(descriptor.Source)
		a.logger.Warn("フィードの取得に失敗したためスキップします",
			slog.String("source", descriptor.Source),
			slog.String("feed_url", descriptor.URL),
			slog.String("error", err.Error()),
		)
		return nil
	}

	a.metrics.RecordFetchSuccess(descriptor.Source)

	var items []model.Item
	for _, entry := range entries {
		if item, ok := a.normalizer.Normalize(entry, descriptor, since); ok {
			items = append(items, item)
		}
	}
	return items
}

// dedupeByURL はURL単位の重複を除去し、先頭の出現を残す。
func dedupeByURL(items []model.Item) []model.Item {
	seen := make(map[string]bool, len(items))
	deduped := make([]model.Item, 0, len(items))
	for _, item := range items {
		if seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		deduped = append(deduped, item)
	}
	return deduped
}
