// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// SourceProvider はフィードソース定義供給のインターフェース。
type SourceProvider interface {
	Load(ctx context.Context) []model.FeedDescriptor
}

// ItemAggregator はフィード集約のインターフェース。
type ItemAggregator interface {
	Aggregate(ctx context.Context, descriptors []model.FeedDescriptor, since time.Time) []model.Item
}

// GenreClassifier はジャンル分類のインターフェース。
type GenreClassifier interface {
	Classify(item model.Item) string
}

// TranslationApplier は翻訳適用のインターフェース。
type TranslationApplier interface {
	ApplyTranslations(ctx context.Context, items []model.Item)
}

// NewsHandlerConfig はニュースハンドラーの設定パラメータ。
type NewsHandlerConfig struct {
	// DefaultHours はhoursパラメータ省略・不正時のデフォルト時間窓。
	DefaultHours int
	// MaxHours はhoursパラメータの上限。下限は常に1。
	MaxHours int
	// CacheMaxAge は中間キャッシュ向けのフレッシュネス期間。
	CacheMaxAge time.Duration
	// CacheStaleWhileRevalidate は再検証中にステイル応答を許容する期間。
	CacheStaleWhileRevalidate time.Duration
}

// NewsHandler はGET /api/newsのHTTPハンドラー。
// ソース供給 → 並行フェッチ・集約 → 分類 → 翻訳 → レスポンス組み立ての
// パイプラインをリクエストごとに1回実行する。
type NewsHandler struct {
	sources    SourceProvider
	aggregator ItemAggregator
	classifier GenreClassifier
	translator TranslationApplier
	logger     *slog.Logger
	config     NewsHandlerConfig
	now        func() time.Time // テスト用に差し替え可能
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(
	sources SourceProvider,
	aggregator ItemAggregator,
	classifier GenreClassifier,
	translator TranslationApplier,
	logger *slog.Logger,
	config NewsHandlerConfig,
) *NewsHandler {
	return &NewsHandler{
		sources:    sources,
		aggregator: aggregator,
		classifier: classifier,
		translator: translator,
		logger:     logger,
		config:     config,
		now:        time.Now,
	}
}

// GetNews は時間窓内の記事をジャンル別にグループ化したJSONを返す。
// GET /api/news?hours=<int>
// hoursは[1, MaxHours]にクランプされ、省略・非数値の場合はDefaultHoursになる。
// フィードや翻訳の部分的な失敗はパイプライン内で吸収されるため、
// このハンドラーは常にベストエフォートの200を返す。
func (h *NewsHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	hours := h.clampHours(r.URL.Query().Get("hours"))

	now := h.now()
	since := now.Add(-time.Duration(hours) * time.Hour)

	descriptors := h.sources.Load(r.Context())

	items := h.aggregator.Aggregate(r.Context(), descriptors, since)

	// 分類は翻訳前のタイトル・ソースに対して行う
	genres := make([]string, len(items))
	for i, item := range items {
		genres[i] = h.classifier.Classify(item)
	}

	h.translator.ApplyTranslations(r.Context(), items)

	response := model.NewsResponse{
		GeneratedAt: now.UTC(),
		Hours:       hours,
		Genres:      groupByGenre(items, genres),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
		int(h.config.CacheMaxAge.Seconds()), int(h.config.CacheStaleWhileRevalidate.Seconds())))

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンスの書き込みに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// clampHours はhoursクエリパラメータを[1, MaxHours]に正規化する。
// 省略・非数値はDefaultHoursを返す（リクエストを拒否しない）。
func (h *NewsHandler) clampHours(raw string) int {
	if raw == "" {
		return h.config.DefaultHours
	}
	hours, err := strconv.Atoi(raw)
	if err != nil {
		return h.config.DefaultHours
	}
	if hours < 1 {
		return 1
	}
	if hours > h.config.MaxHours {
		return h.config.MaxHours
	}
	return hours
}

// groupByGenre は記事列をジャンル初出順のグループ列に組み立てる。
// itemsは整列・重複排除済みで、genresは同じ添字の分類結果。
func groupByGenre(items []model.Item, genres []string) model.GenreGroups {
	groups := model.GenreGroups{}
	indexByName := make(map[string]int)

	for i, item := range items {
		name := genres[i]
		idx, ok := indexByName[name]
		if !ok {
			idx = len(groups)
			indexByName[name] = idx
			groups = append(groups, model.GenreGroup{Name: name})
		}
		groups[idx].Items = append(groups[idx].Items, item)
	}

	return groups
}
