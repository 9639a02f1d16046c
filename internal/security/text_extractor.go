// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextExtractorService はフィード記事のHTML断片からプレーンテキストを
// 抽出する。フィード由来のHTMLは信頼できないため、独自パースではなく
// bluemondayのStrictPolicy（全タグ除去）で処理する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextExtractorService はHTML断片からのテキスト抽出機能のインターフェースを定義する。
// 記事サマリーの正規化前処理として使用される。
type TextExtractorService interface {
	// ExtractText はHTML断片から全タグを除去したプレーンテキストを返す。
	// script/style等の危険なタグも中身ごと除去される。
	// エンティティ（&amp;等）はデコードされる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	ExtractText(rawHTML string) string
}

// textExtractor はTextExtractorServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフに処理を行う。
type textExtractor struct {
	policy *bluemonday.Policy
}

// NewTextExtractor はTextExtractorServiceの新しいインスタンスを生成する。
func NewTextExtractor() *textExtractor {
	return &textExtractor{
		policy: bluemonday.StrictPolicy(),
	}
}

// ExtractText はHTML断片から全タグを除去したプレーンテキストを返す。
// bluemondayはエンティティをエスケープ済みで返すため、
// 除去後にhtml.UnescapeStringで表示用テキストに戻す。
func (e *textExtractor) ExtractText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	stripped := e.policy.Sanitize(rawHTML)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
