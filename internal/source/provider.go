// Package source はフィードソース定義の供給を行う。
// 静的デフォルトリストと、リモートCSVから時間キャッシュ付きで読み込む
// プロバイダを提供する。リモート取得の失敗は呼び出し元に伝播せず、
// 前回成功値または静的デフォルトへフォールバックする。
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// Provider はフィードディスクリプタ列の供給インターフェース。
// 静的デフォルトが空でない限り、Loadは決して空列を返さない。
type Provider interface {
	Load(ctx context.Context) []model.FeedDescriptor
}

// StaticProvider は固定のディスクリプタリストを返すプロバイダ。
type StaticProvider struct {
	descriptors []model.FeedDescriptor
}

// NewStaticProvider はStaticProviderの新しいインスタンスを生成する。
func NewStaticProvider(descriptors []model.FeedDescriptor) *StaticProvider {
	return &StaticProvider{descriptors: descriptors}
}

// Load は保持しているディスクリプタリストをそのまま返す。
func (p *StaticProvider) Load(_ context.Context) []model.FeedDescriptor {
	return p.descriptors
}

// DefaultDescriptors は組み込みの音楽ニュースフィード定義を返す。
// リモートソース定義が未設定・取得不能の場合の最終フォールバック。
func DefaultDescriptors() []model.FeedDescriptor {
	return []model.FeedDescriptor{
		{Source: "Resident Advisor", URL: "https://ra.co/xml/rss.xml", DefaultGenre: "Techno"},
		{Source: "XLR8R", URL: "https://xlr8r.com/feed/", DefaultGenre: "Techno"},
		{Source: "Mixmag", URL: "https://mixmag.net/rss.xml", DefaultGenre: "House"},
		{Source: "Pitchfork", URL: "https://pitchfork.com/feed/feed-news/rss", DefaultGenre: "Pop"},
		{Source: "Stereogum", URL: "https://www.stereogum.com/feed/", DefaultGenre: "Rock"},
		{Source: "NME", URL: "https://www.nme.com/news/music/feed", DefaultGenre: "Rock"},
		{Source: "The Quietus", URL: "https://thequietus.com/feed/", DefaultGenre: "Ambient"},
		{Source: "HipHopDX", URL: "https://hiphopdx.com/rss/news.xml", DefaultGenre: "Hip-Hop"},
	}
}

// csvColumns はリモートCSVの期待カラム数（enabled,source,url,defaultGenre）。
const csvColumns = 4

// RemoteCSVProvider はリモートCSVからディスクリプタを読み込むプロバイダ。
// 結果はプロセス内にTTL付きでキャッシュされる。取得・パースの失敗、
// およびリモート結果が空の場合は、前回成功値→静的フォールバックの順で
// 代替し、リクエストを失敗させない。
// TTLは成否を問わず試行間隔を制御する。リモート障害中も再試行はTTLごとに
// 1回だけで、その間のリクエストは手元の値を即座に受け取る。
type RemoteCSVProvider struct {
	csvURL     string
	httpClient *http.Client
	logger     *slog.Logger
	ttl        time.Duration
	fallback   []model.FeedDescriptor
	now        func() time.Time // テスト用に差し替え可能

	mu          sync.Mutex
	attemptedAt time.Time
	fetching    bool
	lastGood    []model.FeedDescriptor
}

// NewRemoteCSVProvider はRemoteCSVProviderの新しいインスタンスを生成する。
// fallbackには静的デフォルトリストを渡す。
func NewRemoteCSVProvider(
	csvURL string,
	httpClient *http.Client,
	logger *slog.Logger,
	ttl time.Duration,
	fallback []model.FeedDescriptor,
) *RemoteCSVProvider {
	return &RemoteCSVProvider{
		csvURL:     csvURL,
		httpClient: httpClient,
		logger:     logger,
		ttl:        ttl,
		fallback:   fallback,
		now:        time.Now,
	}
}

// Load はディスクリプタリストを返す。
// 直近の試行からTTL内、または他リクエストが取得中の間は手元の値
// （前回成功値、なければ静的フォールバック）を即座に返す。
// リモート取得はロックの外で行い、リクエストを直列化させない。
func (p *RemoteCSVProvider) Load(ctx context.Context) []model.FeedDescriptor {
	p.mu.Lock()
	now := p.now()
	if p.fetching || now.Sub(p.attemptedAt) < p.ttl {
		current := p.currentLocked()
		p.mu.Unlock()
		return current
	}
	p.fetching = true
	p.attemptedAt = now // 失敗してもTTLが経過するまで再試行しない
	p.mu.Unlock()

	descriptors, err := p.fetchRemote(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetching = false

	if err != nil || len(descriptors) == 0 {
		loadErr := model.NewSourceLoadFailedError(err)
		p.logger.Warn("リモートソース定義の取得に失敗したためフォールバックします",
			slog.String("csv_url", p.csvURL),
			slog.String("error", loadErr.Error()),
			slog.Bool("has_last_good", p.lastGood != nil),
		)
		return p.currentLocked()
	}

	p.lastGood = descriptors

	p.logger.Info("リモートソース定義を更新しました",
		slog.String("csv_url", p.csvURL),
		slog.Int("descriptor_count", len(descriptors)),
	)

	return descriptors
}

// currentLocked は現時点で返せる最善のディスクリプタリストを返す。
// 呼び出し側がp.muを保持していること。
func (p *RemoteCSVProvider) currentLocked() []model.FeedDescriptor {
	if p.lastGood != nil {
		return p.lastGood
	}
	return p.fallback
}

// fetchRemote はリモートCSVを取得してディスクリプタ列にパースする。
func (p *RemoteCSVProvider) fetchRemote(ctx context.Context) ([]model.FeedDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.csvURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "music-news-24h/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ソース定義の取得がステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	return ParseDescriptorCSV(string(body))
}

// ParseDescriptorCSV はenabled,source,url,defaultGenre形式のCSVテキストを
// ディスクリプタ列にパースする。
//   - enabledカラムがリテラルFALSEの行は除外する（空を含む他の値は有効扱い）
//   - ヘッダー行およびURLカラムがhttp(s)でない行はスキップする
//   - カラム数不足の行はスキップする
func ParseDescriptorCSV(text string) ([]model.FeedDescriptor, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1 // 行ごとのカラム数ゆらぎを許容し、下で検査する
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVのパースに失敗しました: %w", err)
	}

	var descriptors []model.FeedDescriptor
	for _, rec := range records {
		if len(rec) < csvColumns {
			continue
		}

		enabled := strings.TrimSpace(rec[0])
		src := strings.TrimSpace(rec[1])
		rawURL := strings.TrimSpace(rec[2])
		genre := strings.TrimSpace(rec[3])

		// 明示的な無効化はFALSEリテラルのみ
		if enabled == "FALSE" {
			continue
		}

		// ヘッダー行・不正URL行のスキップ
		if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
			continue
		}
		if src == "" {
			continue
		}

		descriptors = append(descriptors, model.FeedDescriptor{
			Source:       src,
			URL:          rawURL,
			DefaultGenre: genre,
		})
	}

	return descriptors, nil
}
