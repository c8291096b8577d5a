package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bluesystem/verifika/pkg/slogx"
)

// RateLimitConfig is a token bucket: RequestsPerWindow refill over Window,
// at most Burst spent at once.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// WindowLimit allows limit requests per window, all of them available at once.
func WindowLimit(window time.Duration, limit int) RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: limit, Window: window, Burst: limit}
}

func (c RateLimitConfig) every() rate.Limit {
	if c.Window <= 0 || c.RequestsPerWindow <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// Profiles shared by the routers. Each can be overridden with
// RATELIMIT_<NAME>_REQUESTS, RATELIMIT_<NAME>_WINDOW_SEC and
// RATELIMIT_<NAME>_BURST.
var (
	// StrictLimit guards credential endpoints.
	StrictLimit = RateLimitFromEnv("STRICT", WindowLimit(time.Minute, 5))
	// ModerateLimit guards account administration writes.
	ModerateLimit = RateLimitFromEnv("MODERATE", WindowLimit(time.Minute, 20))
	// LenientLimit applies per account to authenticated routes.
	LenientLimit = RateLimitFromEnv("LENIENT", WindowLimit(time.Minute, 100))
	// PublicLimit applies to unauthenticated health checks.
	PublicLimit = RateLimitFromEnv("PUBLIC", WindowLimit(time.Minute, 1000))
	// ContactLimit guards the public contact form per address.
	ContactLimit = RateLimitFromEnv("CONTACT", WindowLimit(15*time.Minute, 3))
)

// RateLimitFromEnv overlays the RATELIMIT_<name>_* variables on def.
// Missing, malformed or non-positive values keep the default.
func RateLimitFromEnv(name string, def RateLimitConfig) RateLimitConfig {
	prefix := "RATELIMIT_" + name + "_"
	cfg := def
	if n, ok := positiveEnv(prefix + "REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnv(prefix + "WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv(prefix + "BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// KeyExtractor names the bucket a request is charged to. An empty key
// exempts the request.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys by remote address. Proxy headers are resolved earlier
// by chi's RealIP middleware.
func IPKeyExtractor(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDKeyExtractor keys by authenticated account, or "" when anonymous.
func UserIDKeyExtractor(r *http.Request) string {
	if p, ok := PrincipalFrom(r.Context()); ok {
		return "user-" + strconv.FormatInt(p.ID, 10)
	}
	return ""
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

const maxKeyBody = 64 << 10

// JSONFieldKeyExtractor keys by a string field of a JSON body, trimmed and
// lower-cased. Only the first maxKeyBody bytes are inspected; the handler
// still reads the whole body. Larger bodies yield no key.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBody))
		r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(raw), r.Body), Closer: r.Body}
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(raw, &fields) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(fields[field], &v) != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// readCloser replays a consumed prefix and closes the original body.
type readCloser struct {
	io.Reader
	io.Closer
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// buckets holds one limiter per key. Keys idle for longer than idleAfter
// are swept at most once per sweepEvery.
type buckets struct {
	cfg        RateLimitConfig
	idleAfter  time.Duration
	sweepEvery time.Duration

	mu        sync.Mutex
	byKey     map[string]*bucket
	lastSweep time.Time
}

func newBuckets(cfg RateLimitConfig) *buckets {
	idle := 2 * cfg.Window
	if idle < time.Minute {
		idle = time.Minute
	}
	return &buckets{
		cfg:        cfg,
		idleAfter:  idle,
		sweepEvery: time.Minute,
		byKey:      make(map[string]*bucket),
		lastSweep:  time.Now(),
	}
}

func (b *buckets) get(key string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) >= b.sweepEvery {
		for k, e := range b.byKey {
			if now.Sub(e.lastSeen) > b.idleAfter {
				delete(b.byKey, k)
			}
		}
		b.lastSweep = now
	}

	e, ok := b.byKey[key]
	if !ok {
		e = &bucket{limiter: rate.NewLimiter(b.cfg.every(), b.cfg.Burst)}
		b.byKey[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// RateLimitMiddleware answers 429 RATE_LIMITED with Retry-After once the
// bucket named by key is empty.
func RateLimitMiddleware(cfg RateLimitConfig, key KeyExtractor) Middleware {
	set := newBuckets(cfg)
	limitHeader := strconv.Itoa(cfg.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key, request not limited")
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			res := set.get(k, now).ReserveN(now, 1)
			delay := res.DelayFrom(now)
			if !res.OK() {
				delay = cfg.Window
			}
			if delay > 0 {
				res.CancelAt(now)
				retryAfter := max(int(delay.Round(time.Second).Seconds()), 1)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", limitHeader)
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				slogx.FromContext(r.Context()).Warn("rate limit exceeded",
					"key", k,
					"path", r.URL.Path,
					"retry_after", retryAfter,
				)
				NewError(http.StatusTooManyRequests, CodeRateLimited,
					"Demasiadas solicitudes, intenta de nuevo más tarde").
					WithDetails(map[string]int{"retry_after": retryAfter}).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits per client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser limits per account and address; anonymous callers fall
// back to the address alone.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor))
}

// RateLimitByIPAndJSONField limits per address and body field, so attempts
// against one email share a bucket whatever its casing.
func RateLimitByIPAndJSONField(cfg RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", IPKeyExtractor, JSONFieldKeyExtractor(field)))
}
