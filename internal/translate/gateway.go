package translate

import (
	"context"
	"log/slog"
	"time"

	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// targetLang は翻訳先言語。
const targetLang = "JA"

// candidateRatioThreshold は翻訳候補判定のASCII文字比率しきい値。
// タイトル中の非空白文字に対するASCII英字の比率がこれを超える場合、
// 外国語（英語）記事とみなして翻訳候補にする。言語検出ではなく安価な近似。
const candidateRatioThreshold = 0.45

// Translator は一括翻訳のインターフェース。
// テスト時にモックに差し替え可能。
type Translator interface {
	Translate(ctx context.Context, texts []string, targetLang string) ([]string, error)
}

// MetricsRecorder は翻訳ステージのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordTranslationCall(textCount int)
	RecordTranslationFailure()
	RecordTranslationCacheHit()
	RecordTranslationCacheMiss()
}

// Gateway は記事列への翻訳適用を行う。
// 候補判定 → キャッシュ参照 → ミス分の一括API呼び出し → 書き戻しの順で
// 処理する。コスト上限（maxItems）を超える候補は未翻訳のまま残す。
// あらゆる失敗はログ・メトリクスに記録して吸収し、リクエストを失敗させない。
// clientがnil（APIキー未設定）の場合、このステージは何もしない。
type Gateway struct {
	client        Translator
	cache         *Cache
	logger        *slog.Logger
	metrics       MetricsRecorder
	maxItems      int
	maxSummaryLen int
	now           func() time.Time // テスト用に差し替え可能
}

// NewGateway はGatewayの新しいインスタンスを生成する。
// 翻訳を無効化する場合はclientにnilを渡す。
func NewGateway(
	client Translator,
	cache *Cache,
	logger *slog.Logger,
	metrics MetricsRecorder,
	maxItems int,
	maxSummaryLen int,
) *Gateway {
	return &Gateway{
		client:        client,
		cache:         cache,
		logger:        logger,
		metrics:       metrics,
		maxItems:      maxItems,
		maxSummaryLen: maxSummaryLen,
		now:           time.Now,
	}
}

// ApplyTranslations は記事列に翻訳をインプレースで適用する。
// 重複排除・整列済みの並び順の先頭からmaxItems件までの候補が対象になる。
// キャッシュヒット分はAPI呼び出しなしで適用され、ミス分はタイトル・サマリーを
// 交互に並べた単一バッチでAPIに送信される（偶数位置=タイトル訳、奇数位置=サマリー訳）。
func (g *Gateway) ApplyTranslations(ctx context.Context, items []model.Item) {
	if g.client == nil || len(items) == 0 {
		return
	}

	now := g.now()

	// pending はキャッシュミスした候補のインデックスとキー。
	type pendingItem struct {
		index int
		key   string
	}
	var pending []pendingItem
	var texts []string
	candidateCount := 0

	for i := range items {
		if candidateCount >= g.maxItems {
			break
		}
		if !isTranslationCandidate(items[i].Title) {
			continue
		}
		candidateCount++

		summary := ""
		if items[i].Summary != nil {
			summary = *items[i].Summary
		}
		key := CacheKey(items[i].Title, summary)

		if entry, ok := g.cache.Get(key, now); ok {
			g.metrics.RecordTranslationCacheHit()
			items[i].TitleJa = entry.TitleJa
			items[i].SummaryJa = entry.SummaryJa
			continue
		}
		g.metrics.RecordTranslationCacheMiss()

		pending = append(pending, pendingItem{index: i, key: key})
		texts = append(texts, items[i].Title, truncateRunes(summary, g.maxSummaryLen))
	}

	if len(pending) == 0 {
		return
	}

	g.metrics.RecordTranslationCall(len(texts))
	translated, err := g.client.Translate(ctx, texts, targetLang)
	if err != nil {
		g.metrics.RecordTranslationFailure()
		transErr := model.NewTranslationUnavailableError(err)
		g.logger.Warn("翻訳に失敗したため未翻訳のまま継続します",
			slog.String("error", transErr.Error()),
			slog.Int("pending_count", len(pending)),
		)
		return
	}

	// 位置対応の書き戻し: 候補kのタイトル訳は2k、サマリー訳は2k+1
	writeTime := g.now()
	for k, p := range pending {
		titleJa := translated[2*k]
		summaryJa := translated[2*k+1]

		items[p.index].TitleJa = titleJa
		items[p.index].SummaryJa = summaryJa
		g.cache.Put(p.key, titleJa, summaryJa, writeTime)
	}

	g.logger.Info("翻訳ステージが完了しました",
		slog.Int("candidates", candidateCount),
		slog.Int("cache_misses", len(pending)),
	)
}

// isTranslationCandidate はタイトルが翻訳候補かどうかを判定する。
// 非空白文字に対するASCII英字の比率がしきい値を超える場合に候補とする。
func isTranslationCandidate(title string) bool {
	var letters, nonSpace int
	for _, r := range title {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　' {
			continue
		}
		nonSpace++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
		}
	}
	if nonSpace == 0 {
		return false
	}
	return float64(letters)/float64(nonSpace) > candidateRatioThreshold
}

// truncateRunes は文字列をrune単位で最大n文字に切り詰める。
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
