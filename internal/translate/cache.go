// Package translate は翻訳プロバイダ連携とTTLキャッシュを提供する。
// コスト上限・バッチ呼び出し・失敗隔離を含む翻訳ゲートウェイを含む。
package translate

import (
	"sync"
	"time"
)

// CacheEntry はキャッシュされた翻訳結果1件を表す。
type CacheEntry struct {
	TitleJa   string
	SummaryJa string
	StoredAt  time.Time
}

// CacheKey は翻訳キャッシュのキーを計算する。
// 未翻訳のタイトルとサマリーの複合キー。
func CacheKey(title, summary string) string {
	return title + "|||" + summary
}

// Cache は翻訳結果のTTL付きインメモリキャッシュ。
// プロセス全体でリクエスト間共有され、並行アクセスに安全。
// 期限切れは読み取り時に遅延判定され、エントリは明示的には削除されない
// （次回書き込みで上書きされる）。同一キーへの書き込みは冪等なため、
// 並行リクエスト間の書き込み競合は無害。
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]CacheEntry
}

// NewCache は指定TTLのCacheを生成する。
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]CacheEntry),
	}
}

// Get はキーに対応する生存中のエントリを返す。
// エントリが存在しないか、TTLを超過している場合はfalseを返す。
func (c *Cache) Get(key string, now time.Time) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return CacheEntry{}, false
	}
	if now.Sub(entry.StoredAt) >= c.ttl {
		// 期限切れは不在として扱う（次回書き込みで上書きされる）
		return CacheEntry{}, false
	}
	return entry, true
}

// Put はエントリを保存タイムスタンプ付きで書き込む。
// 既存エントリは上書きされ、TTLが更新される。
func (c *Cache) Put(key string, titleJa, summaryJa string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CacheEntry{
		TitleJa:   titleJa,
		SummaryJa: summaryJa,
		StoredAt:  now,
	}
}

// Len は現在のエントリ数を返す。期限切れも含む。テストおよびメトリクス用。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
