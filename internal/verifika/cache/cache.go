// Package cache is the session index kept in Redis: the current session per
// account plus short-lived invitation and password-reset tokens.
//
// Every operation is best-effort. Reads report absence and writes report
// false when Redis is unreachable; the error is logged, never returned.
// Only token fingerprints are stored.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/slogx"
)

const (
	DefaultSessionTTL = time.Hour
	InvitationTTL     = 24 * time.Hour
	ResetTTL          = time.Hour
)

// consumeScript deletes KEYS[1] only while it still holds ARGV[1], so two
// concurrent redemptions of one token cannot both succeed.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Timeout  time.Duration

	// Prefix namespaces every key, normally the service name.
	Prefix     string
	SessionTTL time.Duration
}

type Cache struct {
	rdb        *redis.Client
	prefix     string
	sessionTTL time.Duration
}

// New builds a client for cfg. go-redis dials lazily, so an unreachable
// server is only noticed on first use.
func New(cfg Config) *Cache {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	})
	return NewWithClient(rdb, cfg.Prefix, cfg.SessionTTL)
}

func NewWithClient(rdb *redis.Client, prefix string, sessionTTL time.Duration) *Cache {
	if prefix == "" {
		prefix = "verifika"
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Cache{rdb: rdb, prefix: prefix, sessionTTL: sessionTTL}
}

func (c *Cache) Close() error { return c.rdb.Close() }

func (c *Cache) sessionKey(accountID int64) string {
	return c.prefix + ":session:" + strconv.FormatInt(accountID, 10)
}

func (c *Cache) invitationKey(email string) string {
	return c.prefix + ":invitation:" + domain.NormalizeEmail(email)
}

func (c *Cache) resetKey(email string) string {
	return c.prefix + ":reset:" + domain.NormalizeEmail(email)
}

// SetSession records token as the account's only session. A later call
// replaces it. ttl <= 0 uses the configured session TTL.
func (c *Cache) SetSession(ctx context.Context, accountID int64, token string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.sessionTTL
	}
	return c.set(ctx, "session", c.sessionKey(accountID), token, ttl)
}

// SessionActive reports whether token is the account's current session.
func (c *Cache) SessionActive(ctx context.Context, accountID int64, token string) bool {
	stored := c.get(ctx, "session", c.sessionKey(accountID))
	return cryptox.TokenMatchesFingerprint(token, stored)
}

func (c *Cache) DeleteSession(ctx context.Context, accountID int64) bool {
	return c.del(ctx, "session", c.sessionKey(accountID))
}

func (c *Cache) SetInvitation(ctx context.Context, email, token string) bool {
	return c.set(ctx, "invitation", c.invitationKey(email), token, InvitationTTL)
}

// ConsumeInvitation redeems the invitation for email. It succeeds at most
// once per stored token.
func (c *Cache) ConsumeInvitation(ctx context.Context, email, token string) bool {
	return c.consume(ctx, "invitation", c.invitationKey(email), token)
}

func (c *Cache) DeleteInvitation(ctx context.Context, email string) bool {
	return c.del(ctx, "invitation", c.invitationKey(email))
}

func (c *Cache) SetResetToken(ctx context.Context, email, token string) bool {
	return c.set(ctx, "reset", c.resetKey(email), token, ResetTTL)
}

func (c *Cache) ConsumeResetToken(ctx context.Context, email, token string) bool {
	return c.consume(ctx, "reset", c.resetKey(email), token)
}

func (c *Cache) set(ctx context.Context, kind, key, token string, ttl time.Duration) bool {
	if token == "" {
		return false
	}
	if err := c.rdb.Set(ctx, key, cryptox.FingerprintToken(token), ttl).Err(); err != nil {
		c.logFailure(ctx, "set", kind, err)
		return false
	}
	return true
}

func (c *Cache) get(ctx context.Context, kind, key string) string {
	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logFailure(ctx, "get", kind, err)
		}
		return ""
	}
	return v
}

func (c *Cache) del(ctx context.Context, kind, key string) bool {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.logFailure(ctx, "del", kind, err)
		return false
	}
	return true
}

func (c *Cache) consume(ctx context.Context, kind, key, token string) bool {
	if token == "" {
		return false
	}
	n, err := consumeScript.Run(ctx, c.rdb, []string{key}, cryptox.FingerprintToken(token)).Int64()
	if err != nil {
		c.logFailure(ctx, "consume", kind, err)
		return false
	}
	return n == 1
}

func (c *Cache) logFailure(ctx context.Context, op, kind string, err error) {
	slogx.FromContext(ctx).Warn("session cache unavailable",
		slog.String("op", op),
		slog.String("kind", kind),
		slog.String("err", err.Error()),
	)
}

// Ping round-trips to Redis and reports the latency.
func (c *Cache) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// Stats is a health snapshot of the cache connection.
type Stats struct {
	TotalConns uint32            `json:"total_conns"`
	IdleConns  uint32            `json:"idle_conns"`
	Hits       uint32            `json:"hits"`
	Misses     uint32            `json:"misses"`
	Timeouts   uint32            `json:"timeouts"`
	Server     map[string]string `json:"server,omitempty"`
}

// Stats reports pool counters and the server and memory sections of INFO.
// INFO failures leave Server empty.
func (c *Cache) Stats(ctx context.Context) Stats {
	ps := c.rdb.PoolStats()
	out := Stats{
		TotalConns: ps.TotalConns,
		IdleConns:  ps.IdleConns,
		Hits:       ps.Hits,
		Misses:     ps.Misses,
		Timeouts:   ps.Timeouts,
	}
	info, err := c.rdb.Info(ctx, "server", "memory").Result()
	if err != nil {
		return out
	}
	out.Server = parseInfo(info)
	return out
}

var infoFields = map[string]bool{
	"redis_version":     true,
	"uptime_in_seconds": true,
	"used_memory":       true,
	"used_memory_human": true,
	"maxmemory_human":   true,
}

func parseInfo(info string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(info, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && infoFields[k] {
			out[k] = v
		}
	}
	return out
}
