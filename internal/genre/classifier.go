// Package genre はキーワードベースのジャンル分類を提供する。
package genre

import (
	"strings"

	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// OtherGenre はどのルールにも一致せず、フォールバックも空の場合のジャンル名。
const OtherGenre = "Other"

// DefaultRules は組み込みのジャンルルール。
// 先勝ちポリシーのため宣言順がそのまま優先順位になる。
// キーワードは部分一致・大文字小文字無視で判定される。
func DefaultRules() []model.GenreRule {
	return []model.GenreRule{
		{Name: "Techno", Keywords: []string{"techno", "detroit", "rave", "warehouse"}},
		{Name: "House", Keywords: []string{"house", "disco", "garage", "deep"}},
		{Name: "Ambient", Keywords: []string{"ambient", "drone", "experimental", "modular"}},
		{Name: "Hip-Hop", Keywords: []string{"hip-hop", "hip hop", "rap", "mixtape", "freestyle"}},
		{Name: "Jazz", Keywords: []string{"jazz", "quartet", "saxophone", "bebop"}},
		{Name: "Metal", Keywords: []string{"metal", "doom", "thrash", "hardcore"}},
		{Name: "Rock", Keywords: []string{"rock", "punk", "indie", "guitar"}},
		{Name: "Pop", Keywords: []string{"pop", "chart", "single", "mv"}},
		{Name: "Classical", Keywords: []string{"classical", "orchestra", "symphony", "opera"}},
	}
}

// Classifier は記事のジャンルを判定する。副作用を持たない。
type Classifier struct {
	rules []model.GenreRule
}

// NewClassifier は指定されたルール列を使用するClassifierを生成する。
func NewClassifier(rules []model.GenreRule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify は記事のジャンル名を返す。
// タイトルとソース名を連結した小文字文字列に対し、ルール列を宣言順に走査して
// 最初にキーワードが部分一致したルールのジャンルを返す。
// どのルールにも一致しない場合はFallbackGenre、それも空ならOtherを返す。
func (c *Classifier) Classify(item model.Item) string {
	haystack := strings.ToLower(item.Title + " " + item.Source)

	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(haystack, keyword) {
				return rule.Name
			}
		}
	}

	if item.FallbackGenre != "" {
		return item.FallbackGenre
	}
	return OtherGenre
}
