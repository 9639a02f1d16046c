// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FeedDescriptor は収集対象のフィード1件の設定を表す。
// 静的テーブルまたはリモートCSVから供給され、イミュータブルとして扱う。
// 同一性はURLで判定する。
type FeedDescriptor struct {
	Source       string
	URL          string
	DefaultGenre string
}

// Item はフィードから取得・正規化済みのニュース1件を表す。
// PublishedAtはRFC3339でシリアライズされる。SummaryはHTML除去・
// 空白正規化・240文字切り詰め済みで、空の場合はnullになる。
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Summary     *string   `json:"summary"`
	TitleJa     string    `json:"titleJa,omitempty"`
	SummaryJa   string    `json:"summaryJa,omitempty"`

	// FallbackGenre はディスクリプタ由来のデフォルトジャンル。
	// 分類ステージでのみ消費する内部フィールドで、レスポンスには含めない。
	FallbackGenre string `json:"-"`
}

// GenreRule はキーワードからジャンル名へのマッピング1件を表す。
// ルール列・キーワード列ともに宣言順が一致判定の優先順位になる。
type GenreRule struct {
	Name     string
	Keywords []string
}

// GenreGroup は1ジャンル分の記事リストを表す。
type GenreGroup struct {
	Name  string
	Items []Item
}

// GenreGroups はジャンル初出順を保持するグループ列。
// GoのマップはJSONエンコード時にキーがソートされるため、
// 初出順のJSONオブジェクトを出すには自前のMarshalJSONが必要になる。
type GenreGroups []GenreGroup

// MarshalJSON はグループ列をスライス順のJSONオブジェクトとして書き出す。
func (g GenreGroups) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, group := range g {
		if i > 0 {
			buf = append(buf, ',')
		}
		name, err := json.Marshal(group.Name)
		if err != nil {
			return nil, err
		}
		items, err := json.Marshal(group.Items)
		if err != nil {
			return nil, err
		}
		buf = append(buf, name...)
		buf = append(buf, ':')
		buf = append(buf, items...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON はJSONオブジェクトをキー出現順のグループ列として読み込む。
// map経由では元のキー順が失われるため、トークン単位でデコードする。
func (g *GenreGroups) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	// 先頭の '{'
	if _, err := dec.Token(); err != nil {
		return err
	}

	groups := GenreGroups{}
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("unexpected genre key token: %v", keyToken)
		}

		var items []Item
		if err := dec.Decode(&items); err != nil {
			return err
		}
		groups = append(groups, GenreGroup{Name: name, Items: items})
	}

	*g = groups
	return nil
}

// NewsResponse はGET /api/newsのレスポンスドキュメント。
// リクエストごとに新規構築され、永続化しない。
type NewsResponse struct {
	GeneratedAt time.Time   `json:"generatedAt"`
	Hours       int         `json:"hours"`
	Genres      GenreGroups `json:"genres"`
}
