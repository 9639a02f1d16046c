package feed

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// fakeFetcher はディスクリプタURLごとに固定の結果を返すテストダブル。
type fakeFetcher struct {
	entries map[string][]*gofeed.Item
	errs    map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, d model.FeedDescriptor) ([]*gofeed.Item, error) {
	if err, ok := f.errs[d.URL]; ok {
		return nil, err
	}
	return f.entries[d.URL], nil
}

// nopMetrics は集約メトリクスのno-opテストダブル。
type nopMetrics struct {
	fetchFailures int
}

func (m *nopMetrics) RecordFetchSuccess(string)        {}
func (m *nopMetrics) RecordFetchFailure(string)        { m.fetchFailures++ }
func (m *nopMetrics) RecordFetchLatency(time.Duration) {}
func (m *nopMetrics) RecordItemsAggregated(int)        {}

func newTestAggregator(fetcher FeedFetcher) (*Aggregator, *nopMetrics) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := &nopMetrics{}
	return NewAggregator(fetcher, NewNormalizer(plainExtractor{}), logger, m), m
}

func entryAt(title, link string, published time.Time) *gofeed.Item {
	return &gofeed.Item{
		Title:           title,
		Link:            link,
		PublishedParsed: timePtr(published),
	}
}

func TestAggregator_Aggregate_SortsNewestFirst(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{entries: map[string][]*gofeed.Item{
		"https://a.example/feed": {
			entryAt("Older", "https://a.example/1", now.Add(-3*time.Hour)),
			entryAt("Newest", "https://a.example/2", now.Add(-1*time.Hour)),
			entryAt("Middle", "https://a.example/3", now.Add(-2*time.Hour)),
		},
	}}
	agg, _ := newTestAggregator(fetcher)

	descriptors := []model.FeedDescriptor{{Source: "A", URL: "https://a.example/feed"}}
	items := agg.Aggregate(context.Background(), descriptors, now.Add(-24*time.Hour))

	if len(items) != 3 {
		t.Fatalf("記事数 = %d, want 3", len(items))
	}
	wantOrder := []string{"Newest", "Middle", "Older"}
	for i, want := range wantOrder {
		if items[i].Title != want {
			t.Errorf("items[%d].Title = %q, want %q", i, items[i].Title, want)
		}
	}
}

func TestAggregator_Aggregate_DedupeKeepsNewest(t *testing.T) {
	now := time.Now()
	url := "https://shared.example/article"
	fetcher := &fakeFetcher{entries: map[string][]*gofeed.Item{
		"https://a.example/feed": {entryAt("From A", url, now.Add(-2*time.Hour))},
		"https://b.example/feed": {entryAt("From B", url, now.Add(-1*time.Hour))},
	}}
	agg, _ := newTestAggregator(fetcher)

	descriptors := []model.FeedDescriptor{
		{Source: "A", URL: "https://a.example/feed"},
		{Source: "B", URL: "https://b.example/feed"},
	}
	items := agg.Aggregate(context.Background(), descriptors, now.Add(-24*time.Hour))

	if len(items) != 1 {
		t.Fatalf("記事数 = %d, want 1（URL重複排除）", len(items))
	}
	// 整列後の先頭＝新しい方が残る
	if items[0].Source != "B" {
		t.Errorf("残った記事のソース = %q, want B（より新しい方）", items[0].Source)
	}
}

func TestAggregator_Aggregate_TieBreakBySource(t *testing.T) {
	now := time.Now()
	same := now.Add(-time.Hour)
	fetcher := &fakeFetcher{entries: map[string][]*gofeed.Item{
		"https://b.example/feed": {entryAt("B item", "https://b.example/1", same)},
		"https://a.example/feed": {entryAt("A item", "https://a.example/1", same)},
	}}
	agg, _ := newTestAggregator(fetcher)

	descriptors := []model.FeedDescriptor{
		{Source: "Beta", URL: "https://b.example/feed"},
		{Source: "Alpha", URL: "https://a.example/feed"},
	}
	items := agg.Aggregate(context.Background(), descriptors, now.Add(-24*time.Hour))

	if len(items) != 2 {
		t.Fatalf("記事数 = %d, want 2", len(items))
	}
	// 同時刻はソース名の昇順
	if items[0].Source != "Alpha" || items[1].Source != "Beta" {
		t.Errorf("同時刻の並び = [%s, %s], want [Alpha, Beta]", items[0].Source, items[1].Source)
	}
}

func TestAggregator_Aggregate_PartialFailureIsolated(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{
		entries: map[string][]*gofeed.Item{
			"https://ok.example/feed": {entryAt("Survivor", "https://ok.example/1", now.Add(-time.Hour))},
		},
		errs: map[string]error{
			"https://down.example/feed": errors.New("connection refused"),
		},
	}
	agg, m := newTestAggregator(fetcher)

	descriptors := []model.FeedDescriptor{
		{Source: "OK", URL: "https://ok.example/feed"},
		{Source: "Down", URL: "https://down.example/feed"},
	}
	items := agg.Aggregate(context.Background(), descriptors, now.Add(-24*time.Hour))

	// 失敗したフィードは0件寄与で、他のフィードの結果は残る
	if len(items) != 1 {
		t.Fatalf("記事数 = %d, want 1", len(items))
	}
	if items[0].Title != "Survivor" {
		t.Errorf("Title = %q, want Survivor", items[0].Title)
	}
	if m.fetchFailures != 1 {
		t.Errorf("フェッチ失敗記録数 = %d, want 1", m.fetchFailures)
	}
}

func TestAggregator_Aggregate_AllFeedsFail(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"https://a.example/feed": errors.New("down"),
		"https://b.example/feed": errors.New("down"),
	}}
	agg, _ := newTestAggregator(fetcher)

	descriptors := []model.FeedDescriptor{
		{Source: "A", URL: "https://a.example/feed"},
		{Source: "B", URL: "https://b.example/feed"},
	}
	items := agg.Aggregate(context.Background(), descriptors, time.Now().Add(-24*time.Hour))

	if len(items) != 0 {
		t.Errorf("記事数 = %d, want 0（全フィード失敗でも空で継続）", len(items))
	}
}

func TestAggregator_Aggregate_WindowFilterApplied(t *testing.T) {
	now := time.Now()
	fetcher := &fakeFetcher{entries: map[string][]*gofeed.Item{
		"https://a.example/feed": {
			entryAt("New Techno EP", "https://a.example/1", now.Add(-1*time.Hour)),
		},
		"https://b.example/feed": {
			entryAt("Quiet jazz release", "https://b.example/1", now.Add(-30*time.Hour)),
		},
	}}
	agg, _ := newTestAggregator(fetcher)

	descriptors := []model.FeedDescriptor{
		{Source: "Feed A", URL: "https://a.example/feed"},
		{Source: "Feed B", URL: "https://b.example/feed"},
	}
	items := agg.Aggregate(context.Background(), descriptors, now.Add(-24*time.Hour))

	if len(items) != 1 {
		t.Fatalf("記事数 = %d, want 1（24時間窓）", len(items))
	}
	if items[0].Title != "New Techno EP" {
		t.Errorf("Title = %q, want New Techno EP", items[0].Title)
	}
}
