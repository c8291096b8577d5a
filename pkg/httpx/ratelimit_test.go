package httpx_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluesystem/verifika/pkg/httpx"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))

	// RealIP rewrites RemoteAddr without a port.
	req.RemoteAddr = "203.0.113.9"
	require.Equal(t, "203.0.113.9", httpx.IPKeyExtractor(req))
}

func TestCompositeKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	key := httpx.CompositeKeyExtractor(":", httpx.UserIDKeyExtractor, httpx.IPKeyExtractor)
	require.Equal(t, "192.168.1.1", key(req), "empty parts are skipped")

	ctx := httpx.WithPrincipal(context.Background(), httpx.Principal{ID: 3, Role: "tecnico"})
	require.Equal(t, "user-3:192.168.1.1", key(req.WithContext(ctx)))
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	t.Run("extracts and lower-cases the field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":" Admin@X.io ","password":"x"}`))

		key := httpx.JSONFieldKeyExtractor("email")(req)
		require.Equal(t, "admin@x.io", key)

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"email":" Admin@X.io ","password":"x"}`, string(body), "body must be restored")
	})

	t.Run("returns empty for non-JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("email=a@b.c"))
		require.Equal(t, "", httpx.JSONFieldKeyExtractor("email")(req))
	})

	t.Run("returns empty for non-string field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":42}`))
		require.Equal(t, "", httpx.JSONFieldKeyExtractor("email")(req))
	})

	t.Run("returns empty for missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"password":"x"}`))
		require.Equal(t, "", httpx.JSONFieldKeyExtractor("email")(req))
	})

	t.Run("bodies past the inspection window reach the handler whole", func(t *testing.T) {
		payload := `{"email":"a@b.c","notes":"` + strings.Repeat("x", 70<<10) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))

		require.Equal(t, "", httpx.JSONFieldKeyExtractor("email")(req))

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Len(t, body, len(payload))
		require.NoError(t, req.Body.Close())
	})
}

func TestUserIDKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, "", httpx.UserIDKeyExtractor(req))

	ctx := httpx.WithPrincipal(context.Background(), httpx.Principal{ID: 7, Role: "admin"})
	require.Equal(t, "user-7", httpx.UserIDKeyExtractor(req.WithContext(ctx)))
}

func TestWindowLimit(t *testing.T) {
	cfg := httpx.WindowLimit(15*time.Minute, 100)
	require.Equal(t, 100, cfg.RequestsPerWindow)
	require.Equal(t, 100, cfg.Burst)
	require.Equal(t, 15*time.Minute, cfg.Window)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks once the bucket is empty", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.WindowLimit(time.Minute, 3), httpx.IPKeyExtractor)(okHandler)

		for i := range 3 {
			require.Equal(t, http.StatusOK, hit(h, "192.168.1.1:12345").Code, "request %d", i+1)
		}
		rec := hit(h, "192.168.1.1:12345")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("keys are tracked separately", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.WindowLimit(time.Minute, 2), httpx.IPKeyExtractor)(okHandler)

		for range 2 {
			require.Equal(t, http.StatusOK, hit(h, "192.168.1.1:12345").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, hit(h, "192.168.1.1:12345").Code)
		require.Equal(t, http.StatusOK, hit(h, "192.168.1.2:12345").Code)
	})

	t.Run("burst caps a spike below the window rate", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 4}
		h := httpx.RateLimitMiddleware(cfg, httpx.IPKeyExtractor)(okHandler)

		for range 4 {
			require.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1:1").Code)
	})

	t.Run("rejected requests do not drain the bucket", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: 200 * time.Millisecond, Burst: 1}
		h := httpx.RateLimitMiddleware(cfg, httpx.IPKeyExtractor)(okHandler)

		require.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1").Code)
		for range 5 {
			require.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.2:1").Code)
		}
		time.Sleep(250 * time.Millisecond)
		require.Equal(t, http.StatusOK, hit(h, "10.0.0.2:1").Code)
	})

	t.Run("empty key is not limited", func(t *testing.T) {
		none := func(*http.Request) string { return "" }
		h := httpx.RateLimitMiddleware(httpx.WindowLimit(time.Minute, 1), none)(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, hit(h, "10.0.0.3:1").Code)
		}
	})

	t.Run("burst larger than zero is required for traffic", func(t *testing.T) {
		cfg := httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 0}
		h := httpx.RateLimitMiddleware(cfg, httpx.IPKeyExtractor)(okHandler)

		rec := hit(h, "10.0.0.4:1")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "60", rec.Header().Get("Retry-After"))
	})
}

func TestRateLimitByUser(t *testing.T) {
	h := httpx.RateLimitByUser(httpx.WindowLimit(time.Minute, 1))(okHandler)

	as := func(id int64) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.1.1:80"
		req = req.WithContext(httpx.WithPrincipal(req.Context(), httpx.Principal{ID: id, Role: "admin"}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, as(1))
	require.Equal(t, http.StatusTooManyRequests, as(1))
	require.Equal(t, http.StatusOK, as(2), "accounts behind one address have their own bucket")
}

func TestRateLimitByIPAndJSONField(t *testing.T) {
	limited := httpx.RateLimitByIPAndJSONField(httpx.WindowLimit(time.Minute, 1), "email")(okHandler)

	send := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"`+email+`"}`))
		req.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("admin@x.io"))
	require.Equal(t, http.StatusTooManyRequests, send("ADMIN@x.io"))
	require.Equal(t, http.StatusOK, send("other@x.io"))
}

func TestRateLimitProfiles(t *testing.T) {
	profiles := map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
		"public":   httpx.PublicLimit,
	}
	for name, cfg := range profiles {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, cfg.RequestsPerWindow)
			require.Positive(t, cfg.Window)
			require.Positive(t, cfg.Burst)
		})
	}

	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
	require.Less(t, httpx.LenientLimit.RequestsPerWindow, httpx.PublicLimit.RequestsPerWindow)
}

func TestRateLimitHeaders(t *testing.T) {
	h := httpx.RateLimitMiddleware(httpx.WindowLimit(time.Minute, 1), httpx.IPKeyExtractor)(okHandler)

	require.Equal(t, http.StatusOK, hit(h, "192.168.1.1:12345").Code)
	rec := hit(h, "192.168.1.1:12345")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))

	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string         `json:"code"`
			Details map[string]int `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, httpx.CodeRateLimited, env.Error.Code)
	require.GreaterOrEqual(t, env.Error.Details["retry_after"], 1)
}

func TestRateLimitFromEnv(t *testing.T) {
	def := httpx.WindowLimit(time.Minute, 10)

	cases := []struct {
		name string
		env  map[string]string
		want httpx.RateLimitConfig
	}{
		{"defaults", nil, def},
		{"requests", map[string]string{"REQUESTS": "50"}, httpx.RateLimitConfig{RequestsPerWindow: 50, Window: time.Minute, Burst: 10}},
		{"window", map[string]string{"WINDOW_SEC": "120"}, httpx.RateLimitConfig{RequestsPerWindow: 10, Window: 2 * time.Minute, Burst: 10}},
		{"all", map[string]string{"REQUESTS": "200", "WINDOW_SEC": "30", "BURST": "250"}, httpx.RateLimitConfig{RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250}},
		{"invalid", map[string]string{"REQUESTS": "many", "WINDOW_SEC": "-10", "BURST": "0"}, def},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, field := range []string{"REQUESTS", "WINDOW_SEC", "BURST"} {
				t.Setenv("RATELIMIT_TEST_"+field, tc.env[field])
			}
			require.Equal(t, tc.want, httpx.RateLimitFromEnv("TEST", def))
		})
	}
}

func BenchmarkRateLimitManyKeys(b *testing.B) {
	h := httpx.RateLimitMiddleware(httpx.WindowLimit(time.Minute, 1_000_000), httpx.IPKeyExtractor)(okHandler)

	for i := 0; b.Loop(); i++ {
		hit(h, fmt.Sprintf("192.168.%d.%d:12345", i%255, (i/255)%255))
	}
}
