package genre

import (
	"testing"

	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// testRules はテスト用の固定ルール列。先勝ちポリシーの検証のため
// Techno → House の順を明示的に固定する。
func testRules() []model.GenreRule {
	return []model.GenreRule{
		{Name: "Techno", Keywords: []string{"techno"}},
		{Name: "House", Keywords: []string{"house"}},
		{Name: "Jazz", Keywords: []string{"jazz"}},
	}
}

func TestClassifier_Classify_FirstMatchWins(t *testing.T) {
	c := NewClassifier(testRules())

	// TechnoとHouseの両方に一致するタイトルは宣言順が先のTechnoになる
	item := model.Item{Title: "Techno house crossover", Source: "Example"}
	if got := c.Classify(item); got != "Techno" {
		t.Errorf("Classify = %q, want Techno（宣言順の先勝ち）", got)
	}
}

func TestClassifier_Classify_CaseInsensitive(t *testing.T) {
	c := NewClassifier(testRules())

	item := model.Item{Title: "TECHNO ALL NIGHT", Source: "Example"}
	if got := c.Classify(item); got != "Techno" {
		t.Errorf("Classify = %q, want Techno（大文字小文字無視）", got)
	}
}

func TestClassifier_Classify_MatchesSourceName(t *testing.T) {
	c := NewClassifier(testRules())

	// タイトルに一致がなくてもソース名で一致する
	item := model.Item{Title: "Weekend round-up", Source: "Jazz Times"}
	if got := c.Classify(item); got != "Jazz" {
		t.Errorf("Classify = %q, want Jazz（ソース名一致）", got)
	}
}

func TestClassifier_Classify_FallbackGenre(t *testing.T) {
	c := NewClassifier(testRules())

	item := model.Item{Title: "New album announced", Source: "Example", FallbackGenre: "Pop"}
	if got := c.Classify(item); got != "Pop" {
		t.Errorf("Classify = %q, want Pop（フォールバックジャンル）", got)
	}
}

func TestClassifier_Classify_OtherWhenNoFallback(t *testing.T) {
	c := NewClassifier(testRules())

	item := model.Item{Title: "New album announced", Source: "Example"}
	if got := c.Classify(item); got != OtherGenre {
		t.Errorf("Classify = %q, want %q", got, OtherGenre)
	}
}

func TestClassifier_Classify_Deterministic(t *testing.T) {
	c := NewClassifier(testRules())

	item := model.Item{Title: "Deep house mix", Source: "Example"}
	first := c.Classify(item)
	for i := 0; i < 10; i++ {
		if got := c.Classify(item); got != first {
			t.Fatalf("Classify が非決定的: %q != %q", got, first)
		}
	}
}

func TestClassifier_Classify_SubstringMatch(t *testing.T) {
	// キーワード一致は単語境界を見ない部分一致（仕様どおり保存）
	c := NewClassifier([]model.GenreRule{
		{Name: "Pop", Keywords: []string{"mv"}},
	})

	item := model.Item{Title: "Immverse festival lineup", Source: "Example"}
	if got := c.Classify(item); got != "Pop" {
		t.Errorf("Classify = %q, want Pop（部分一致はそのまま保存する挙動）", got)
	}
}

func TestDefaultRules_OrderPinned(t *testing.T) {
	// ルール順の変更は分類結果を変えるため、先頭の順序をピン留めする
	rules := DefaultRules()
	wantOrder := []string{"Techno", "House", "Ambient", "Hip-Hop", "Jazz", "Metal", "Rock", "Pop", "Classical"}

	if len(rules) != len(wantOrder) {
		t.Fatalf("ルール数 = %d, want %d", len(rules), len(wantOrder))
	}
	for i, want := range wantOrder {
		if rules[i].Name != want {
			t.Errorf("rules[%d].Name = %q, want %q", i, rules[i].Name, want)
		}
	}
}
