package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/lexia/internal/core"
)

// =============================================================================
// TrustedRealIP
// =============================================================================

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		wantIP     string
	}{
		{
			name:       "untrusted peer keeps remote addr",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "203.0.113.7:5555",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			wantIP:     "203.0.113.7",
		},
		{
			name:       "trusted peer uses X-Real-IP",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:5555",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			wantIP:     "198.51.100.9",
		},
		{
			name:       "trusted single address uses first forwarded",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.1"},
			wantIP:     "198.51.100.9",
		},
		{
			name:       "invalid header ignored",
			trusted:    []string{"127.0.0.1/32"},
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			wantIP:     "127.0.0.1",
		},
		{
			name:       "no trusted proxies",
			trusted:    nil,
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9"},
			wantIP:     "127.0.0.1",
		},
		{
			name:       "bad CIDR skipped",
			trusted:    []string{"garbage", "10.0.0.0/8"},
			remoteAddr: "10.0.0.5:1",
			headers:    map[string]string{"X-Real-IP": "192.0.2.1"},
			wantIP:     "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = core.IPAddressFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.wantIP {
				t.Errorf("client IP = %q, want %q", got, tt.wantIP)
			}
		})
	}
}

// =============================================================================
// RateLimiter
// =============================================================================

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(60, 2, time.Minute)
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third request within the same instant should be denied")
	}
	if !rl.Allow("b") {
		t.Error("other keys have their own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Error("one token should refill after a second at 60/min")
	}
}

func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(60, 1, time.Minute)
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	if rl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rl.Len())
	}

	now = now.Add(2 * time.Minute)
	rl.Allow("c")
	if rl.Len() != 1 {
		t.Errorf("Len() = %d after sweep, want 1", rl.Len())
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"RATE001"`) {
		t.Errorf("body = %s, want RATE001 code", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
}

// =============================================================================
// Session
// =============================================================================

func TestSession(t *testing.T) {
	var got string
	h := Session("sid", false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = core.SessionIDFromContext(r.Context())
	}))

	t.Run("new visitor gets cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != "sid" {
			t.Fatalf("cookies = %v, want one sid cookie", cookies)
		}
		if cookies[0].Value != got {
			t.Errorf("context id %q != cookie %q", got, cookies[0].Value)
		}
		if !cookies[0].HttpOnly {
			t.Error("session cookie should be HttpOnly")
		}
	})

	t.Run("existing cookie reused", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: id})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got != id {
			t.Errorf("session = %q, want %q", got, id)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("should not reissue a valid cookie")
		}
	})

	t.Run("malformed cookie replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("session %q is not a uuid", got)
		}
		if len(rec.Result().Cookies()) != 1 {
			t.Error("malformed cookie should be replaced")
		}
	})
}

// =============================================================================
// SecurityHeaders / Logger
// =============================================================================

func TestSecurityHeaders(t *testing.T) {
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	rec := httptest.NewRecorder()
	SecurityHeaders(true)(noop).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP")
	}

	rec = httptest.NewRecorder()
	SecurityHeaders(false)(noop).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Content-Security-Policy") != "" {
		t.Error("CSP should be omitted when disabled")
	}
}

func TestLogger_CapturesStatusAndBytes(t *testing.T) {
	var captured *responseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot || captured.status != http.StatusTeapot {
		t.Errorf("status = %d/%d, want 418 (first WriteHeader wins)", rec.Code, captured.status)
	}
	if captured.bytes != 5 {
		t.Errorf("bytes = %d, want 5", captured.bytes)
	}
}
