package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Client はDeepL互換の翻訳APIクライアント。
// フォームエンコードの一括リクエストで複数テキストを1回の呼び出しで翻訳する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

// translateResponse は翻訳APIのレスポンスボディ。
type translateResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// Translate は複数テキストを一括翻訳し、送信順と同じ順序の訳文列を返す。
// プロバイダは送信と同数・同順の訳文を返す契約で、数が一致しない場合は
// 位置対応が壊れているためエラーを返す。
func (c *Client) Translate(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	form := url.Values{}
	for _, text := range texts {
		form.Add("text", text)
	}
	form.Set("target_lang", targetLang)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("翻訳APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("text_count", len(texts)),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("翻訳APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.Int("text_count", len(texts)),
		)
		return nil, fmt.Errorf("翻訳APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result translateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if len(result.Translations) != len(texts) {
		return nil, fmt.Errorf("翻訳結果の数が一致しません: got %d, want %d", len(result.Translations), len(texts))
	}

	translated := make([]string, len(result.Translations))
	for i, t := range result.Translations {
		translated[i] = t.Text
	}
	return translated, nil
}
