package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/redis"
)

func TestWriteRateLimit_AllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 2}, store, nil)(okHandler())

	for i := 0; i < 2; i++ {
		rec := serve(handler, http.MethodPost, "1.2.3.4:5678")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestWriteRateLimit_BlocksOverLimit(t *testing.T) {
	store := newFakeRateStore()
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, store, nil)(okHandler())

	if rec := serve(handler, http.MethodPost, "1.2.3.4:5678"); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	rec := serve(handler, http.MethodDelete, "1.2.3.4:5678")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected code: %s", code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}

	if rec := serve(handler, http.MethodPost, "9.9.9.9:1111"); rec.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", rec.Code)
	}
}

func TestWriteRateLimit_ReadsBypass(t *testing.T) {
	store := newFakeRateStore()
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, store, nil)(okHandler())

	for i := 0; i < 5; i++ {
		if rec := serve(handler, http.MethodGet, "1.2.3.4:5678"); rec.Code != http.StatusOK {
			t.Fatalf("expected GET to bypass limiter, got %d", rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("expected no counters for reads, got %v", store.counts)
	}
}

func TestWriteRateLimit_StoreFailure(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, store, nil)(okHandler())

	rec := serve(handler, http.MethodPost, "1.2.3.4:5678")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeDependency) {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestWriteRateLimit_DisabledWithoutStore(t *testing.T) {
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, nil, nil)(okHandler())
	for i := 0; i < 3; i++ {
		if rec := serve(handler, http.MethodPost, "1.2.3.4:5678"); rec.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got %d", rec.Code)
		}
	}
}

func TestClientIPIgnoresForwardingHeadersWithoutProxies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	req.Header.Set("X-Real-IP", "10.0.0.2")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	if got := clientIP(req, 0); got != "10.0.0.1" {
		t.Fatalf("expected remote addr host, got %q", got)
	}
}

func TestClientIPBehindTrustedProxies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4000"

	req.Header.Set("X-Real-IP", "10.0.0.2")
	if got := clientIP(req, 1); got != "10.0.0.2" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}

	// the client forged the first entry; the proxy appended the real peer
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 198.51.100.7")
	if got := clientIP(req, 1); got != "198.51.100.7" {
		t.Fatalf("expected right-most forwarded address, got %q", got)
	}
	if got := clientIP(req, 2); got != "1.1.1.1" {
		t.Fatalf("expected address before two proxies, got %q", got)
	}
	if got := clientIP(req, 3); got != "10.0.0.1" {
		t.Fatalf("expected fallback to peer when the chain is short, got %q", got)
	}
}

func TestWriteRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	store := newFakeRateStore()
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, store, nil)(okHandler())

	for i, forged := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodPost, "/reservations", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		req.Header.Set("X-Forwarded-For", forged)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, method, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/reservations", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code
}

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (s *fakeRateStore) HitWindow(_ context.Context, scope string, limit int64, window time.Duration) (redis.WindowState, error) {
	if s.err != nil {
		return redis.WindowState{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[scope]++
	count := s.counts[scope]
	return redis.WindowState{Allowed: count <= limit, Count: count, ResetIn: window - 500*time.Millisecond}, nil
}
