package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/packageemoji/music-news-24h-web/internal/middleware"
	"github.com/packageemoji/music-news-24h-web/internal/model"
)

// statusRecorderStub は記録されたステータスコードを保持するテストダブル。
type statusRecorderStub struct {
	mu    sync.Mutex
	codes []int
}

func (s *statusRecorderStub) RecordHTTPStatus(statusCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, statusCode)
}

func newTestRouter(t *testing.T, rl *middleware.RateLimiter) http.Handler {
	t.Helper()
	return NewRouter(&RouterDeps{
		Logger:            newTestLogger(),
		StatusRecorder:    &statusRecorderStub{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		NewsHandler:       newStubHandler(nil),
		Gatherer:          prometheus.NewRegistry(),
	})
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"status":"ok"`) {
		t.Errorf("body = %q", body)
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_NewsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRouter_RequestIDHeaderSet(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("X-Request-IDヘッダーが設定されていない")
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/news", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouter_RateLimitOnNewsOnly(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    1,
		CleanupInterval: time.Hour,
	})
	defer rl.Stop()

	router := newTestRouter(t, rl)

	// 1回目は通る
	req1 := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	req1.RemoteAddr = "203.0.113.1:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("1回目: status = %d, want 200", rec1.Code)
	}

	// 2回目はバースト超過で429
	req2 := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	req2.RemoteAddr = "203.0.113.1:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("2回目: status = %d, want 429", rec2.Code)
	}

	// ヘルスチェックはレート制限の対象外
	reqHealth := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	reqHealth.RemoteAddr = "203.0.113.1:1234"
	recHealth := httptest.NewRecorder()
	router.ServeHTTP(recHealth, reqHealth)
	if recHealth.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200（レート制限対象外）", recHealth.Code)
	}
}

// panicClassifier はパイプライン内部の欠陥を模擬するテストダブル。
type panicClassifier struct{}

func (panicClassifier) Classify(model.Item) string { panic("classifier failure") }

func TestRouter_PanicYieldsUnifiedErrorBody(t *testing.T) {
	newsHandler := NewNewsHandler(
		stubSources{},
		stubAggregator{items: []model.Item{
			{ID: "A::1", Title: "t", URL: "https://a/1", Source: "A", PublishedAt: time.Now()},
		}},
		panicClassifier{},
		nopTranslator{},
		newTestLogger(),
		defaultTestConfig(),
	)

	router := NewRouter(&RouterDeps{
		Logger:            newTestLogger(),
		StatusRecorder:    &statusRecorderStub{},
		CORSAllowedOrigin: "http://localhost:3000",
		NewsHandler:       newsHandler,
		Gatherer:          prometheus.NewRegistry(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body middleware.ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v", err)
	}
	if body.Error != "Internal Server Error" {
		t.Errorf("error = %q, want Internal Server Error", body.Error)
	}
	if body.Message == "" {
		t.Error("messageが空")
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
