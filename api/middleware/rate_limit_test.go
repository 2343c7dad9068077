package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	handler := RateLimit(0.001, 2, nil)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "192.0.2.2:5000"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, other)
	if resp.Code != http.StatusOK {
		t.Fatalf("other clients keep their own bucket, got %d", resp.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(0, 0, nil)(okHandler())
	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("disabled limiter should pass, got %d", resp.Code)
		}
	}
}

type fakeWindow struct {
	counts map[string]int64
	err    error
}

func (f *fakeWindow) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func TestGuestOrderRateLimit(t *testing.T) {
	store := &fakeWindow{counts: map[string]int64{}}
	handler := GuestOrderRateLimit(store, time.Minute, 1, nil)(okHandler())

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}
	if got := send(); got != http.StatusOK {
		t.Fatalf("first guest order should pass, got %d", got)
	}
	if got := send(); got != http.StatusTooManyRequests {
		t.Fatalf("second guest order should be limited, got %d", got)
	}
	if store.counts["guest-order:203.0.113.7"] != 2 {
		t.Fatalf("expected scope keyed by forwarded ip, got %v", store.counts)
	}

	store.err = errors.New("redis down")
	if got := send(); got != http.StatusServiceUnavailable {
		t.Fatalf("expected dependency error, got %d", got)
	}
}
