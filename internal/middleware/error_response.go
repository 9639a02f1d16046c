package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteInternalServerError は500エラーの統一レスポンスを書き込む。
// messageには原因の概要のみを含め、詳細はログ側に記録する。
func WriteInternalServerError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:   "Internal Server Error",
		Message: message,
	})
}
