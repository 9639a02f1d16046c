package translate

import (
	"testing"
	"time"
)

func TestCache_GetMiss(t *testing.T) {
	c := NewCache(6 * time.Hour)

	if _, ok := c.Get("missing", time.Now()); ok {
		t.Error("存在しないキーでokが返った")
	}
}

func TestCache_PutAndGet(t *testing.T) {
	c := NewCache(6 * time.Hour)
	now := time.Now()

	c.Put("key1", "タイトル訳", "サマリー訳", now)

	entry, ok := c.Get("key1", now.Add(time.Hour))
	if !ok {
		t.Fatal("TTL内のエントリが取得できない")
	}
	if entry.TitleJa != "タイトル訳" {
		t.Errorf("TitleJa = %q, want タイトル訳", entry.TitleJa)
	}
	if entry.SummaryJa != "サマリー訳" {
		t.Errorf("SummaryJa = %q, want サマリー訳", entry.SummaryJa)
	}
}

func TestCache_ExpiredTreatedAsAbsent(t *testing.T) {
	c := NewCache(6 * time.Hour)
	now := time.Now()

	c.Put("key1", "訳", "", now)

	// ちょうどTTL経過した時点で不在扱いになる
	if _, ok := c.Get("key1", now.Add(6*time.Hour)); ok {
		t.Error("期限切れエントリが生存扱いされた")
	}

	// 期限切れ後もエントリ自体は残る（明示削除しない）
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1（期限切れでも削除されない）", c.Len())
	}
}

func TestCache_PutRefreshesTTL(t *testing.T) {
	c := NewCache(6 * time.Hour)
	now := time.Now()

	c.Put("key1", "旧訳", "", now)
	c.Put("key1", "新訳", "", now.Add(5*time.Hour))

	// 最初のPutからは6時間超だが、上書きでTTLが更新されている
	entry, ok := c.Get("key1", now.Add(7*time.Hour))
	if !ok {
		t.Fatal("上書き後のエントリが期限切れ扱いされた")
	}
	if entry.TitleJa != "新訳" {
		t.Errorf("TitleJa = %q, want 新訳", entry.TitleJa)
	}
}

func TestCacheKey_Composite(t *testing.T) {
	if got := CacheKey("title", "summary"); got != "title|||summary" {
		t.Errorf("CacheKey = %q, want title|||summary", got)
	}
	// サマリーなしでもキーは安定
	if got := CacheKey("title", ""); got != "title|||" {
		t.Errorf("CacheKey = %q, want title|||", got)
	}
}
