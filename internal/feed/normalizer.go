package feed

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// summaryMaxLen はサマリーの最大文字数（rune単位）。
const summaryMaxLen = 240

// TextExtractor はHTML断片からのテキスト抽出インターフェース。
// security.TextExtractorServiceを抽象化してテスタビリティを向上させる。
type TextExtractor interface {
	ExtractText(rawHTML string) string
}

// Normalizer はパース済みエントリを正規化済みItemに変換する。
// 公開日時の解決、時間窓フィルタ、タイトル・URL・サマリーの正規化を行う。
type Normalizer struct {
	extractor TextExtractor
}

// NewNormalizer はNormalizerの新しいインスタンスを生成する。
func NewNormalizer(extractor TextExtractor) *Normalizer {
	return &Normalizer{extractor: extractor}
}

// Normalize はエントリを正規化してItemを返す。
// 以下の場合はfalseを返してエントリを破棄する:
//   - 公開日時がどの候補からも解決できない
//   - 公開日時がsinceより厳密に古い
//   - タイトルまたはURLがトリム後に空
func (n *Normalizer) Normalize(entry *gofeed.Item, descriptor model.FeedDescriptor, since time.Time) (model.Item, bool) {
	if entry == nil {
		return model.Item{}, false
	}

	publishedAt, ok := resolvePublishedAt(entry)
	if !ok {
		return model.Item{}, false
	}
	if publishedAt.Before(since) {
		return model.Item{}, false
	}

	title := strings.TrimSpace(entry.Title)

	// URLはlinkを優先し、なければguidにフォールバック
	rawURL := strings.TrimSpace(entry.Link)
	if rawURL == "" {
		rawURL = strings.TrimSpace(entry.GUID)
	}

	if title == "" || rawURL == "" {
		return model.Item{}, false
	}

	item := model.Item{
		ID:            descriptor.Source + "::" + rawURL,
		Title:         title,
		URL:           rawURL,
		Source:        descriptor.Source,
		PublishedAt:   publishedAt,
		Summary:       n.normalizeSummary(entry),
		FallbackGenre: descriptor.DefaultGenre,
	}

	return item, true
}

// resolvePublishedAt はエントリの公開日時を候補の優先順で解決する。
// 優先順: gofeedの構造化済み公開日時 → pubDate/published文字列 →
// 構造化済み更新日時 → updated文字列。
// どの候補も有効な日時にならない場合はfalseを返す。
func resolvePublishedAt(entry *gofeed.Item) (time.Time, bool) {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed, true
	}
	if t, ok := parseDateCandidate(entry.Published); ok {
		return t, true
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed, true
	}
	if t, ok := parseDateCandidate(entry.Updated); ok {
		return t, true
	}
	return time.Time{}, false
}

// dateLayouts は生の日時文字列に対して試行するレイアウト。
// RSS 2.0のRFC-822系とAtomのRFC-3339系をカバーする。
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDateCandidate は日時文字列候補を既知のレイアウトで順に試行する。
func parseDateCandidate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeSummary はサマリーをDescription優先・Contentフォールバックで解決し、
// HTML除去・空白正規化・240文字切り詰めを行う。空の場合はnilを返す。
func (n *Normalizer) normalizeSummary(entry *gofeed.Item) *string {
	raw := entry.Description
	if raw == "" {
		raw = entry.Content
	}
	if raw == "" {
		return nil
	}

	text := n.extractor.ExtractText(raw)

	// 連続する空白（改行・タブ含む）を単一スペースへ正規化
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	if runes := []rune(text); len(runes) > summaryMaxLen {
		text = string(runes[:summaryMaxLen])
	}

	return &text
}
