// Package model はドメインモデルを定義する。
package model

import "fmt"

// PipelineError は集約パイプライン内のエラーを表す。
// どの境界で発生したかをCodeで区別し、呼び出し元が隔離ポリシーを判断する。
type PipelineError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
	Err     error  // ラップされた原因
}

// Error はerrorインターフェースを実装する。
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap はラップされた原因エラーを返す。
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	// ErrCodeFeedUnavailable は単一フィードのフェッチ・パース失敗。
	// 集約全体は継続し、該当ソースの寄与は0件となる。
	ErrCodeFeedUnavailable = "FEED_UNAVAILABLE"
	// ErrCodeTranslationUnavailable は翻訳プロバイダの失敗・未設定・不正レスポンス。
	// 記事は未翻訳のまま継続する。
	ErrCodeTranslationUnavailable = "TRANSLATION_UNAVAILABLE"
	// ErrCodeSourceLoadFailed はリモートソース定義の取得・パース失敗。
	// 前回値または静的デフォルトにフォールバックする。
	ErrCodeSourceLoadFailed = "SOURCE_LOAD_FAILED"
	// ErrCodeInternal はオーケストレーション自体の失敗。唯一500を返すケース。
	ErrCodeInternal = "INTERNAL_ERROR"
)

// NewFeedUnavailableError はフィード取得失敗エラーを生成する。
func NewFeedUnavailableError(source string, err error) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeFeedUnavailable,
		Message: fmt.Sprintf("フィードの取得に失敗しました: %s", source),
		Err:     err,
	}
}

// NewTranslationUnavailableError は翻訳失敗エラーを生成する。
func NewTranslationUnavailableError(err error) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeTranslationUnavailable,
		Message: "翻訳プロバイダの呼び出しに失敗しました",
		Err:     err,
	}
}

// NewSourceLoadFailedError はソース定義取得失敗エラーを生成する。
func NewSourceLoadFailedError(err error) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeSourceLoadFailed,
		Message: "フィードソース定義の取得に失敗しました",
		Err:     err,
	}
}
