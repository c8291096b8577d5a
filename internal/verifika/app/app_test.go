package app

import (
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/jwtx"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{"ENV", "NODE_ENV", "PORT", "SERVICE_NAME", "JWT_ISSUER", "BCRYPT_COST", "RATE_LIMIT_WINDOW_MS", "JWT_EXPIRES_IN"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 3001, cfg.Port)
	require.Equal(t, "verifika-api", cfg.JWTIssuer)
	require.Equal(t, jwtx.DefaultAccessTokenTTL, cfg.JWTTTL)
	require.Equal(t, cryptox.DefaultCost, cfg.BcryptCost)
	require.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	require.True(t, cfg.IsDev())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("ENV", "")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("SERVICE_NAME", "vk")
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,,")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("SESSION_TTL", "90")

	cfg := LoadConfig()
	require.Equal(t, "production", cfg.Env)
	require.False(t, cfg.IsDev())
	require.Equal(t, "vk-api", cfg.JWTIssuer)
	require.Equal(t, cryptox.MinCost, cfg.BcryptCost)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	require.Equal(t, 2*time.Hour, cfg.JWTTTL)
	require.Equal(t, 90*time.Minute, cfg.SessionTTL)
}

func TestLoadConfigDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_NAME=from_file\nDB_HOST=file-host\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("DB_HOST", "env-host")
	// t.Setenv restores DB_NAME after godotenv writes it.
	t.Setenv("DB_NAME", "")
	require.NoError(t, os.Unsetenv("DB_NAME"))

	cfg := LoadConfig()
	require.Equal(t, "from_file", cfg.DBName)
	require.Equal(t, "env-host", cfg.DBHost)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	valid := Config{JWTSecret: testSecret, StoreDriver: "mysql", Port: 3001}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"missing secret": func(c *Config) { c.JWTSecret = "" },
		"short secret":   func(c *Config) { c.JWTSecret = "short" },
		"unknown driver": func(c *Config) { c.StoreDriver = "memory" },
		"bad port":       func(c *Config) { c.Port = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c := valid
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestNewWithSQLiteStore(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	application, err := New(Config{
		Service:             "verifika",
		Env:                 "test",
		LogLevel:            "error",
		Port:                3001,
		ShutdownGracePeriod: time.Second,
		StoreDriver:         "sqlite",
		SQLitePath:          filepath.Join(t.TempDir(), "verifika.db"),
		RedisHost:           host,
		RedisPort:           port,
		RedisTimeout:        time.Second,
		JWTSecret:           testSecret,
		JWTIssuer:           "verifika-api",
		BcryptCost:          cryptox.MinCost,
		RateLimitWindow:     time.Minute,
		RateLimitRequests:   1000,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/competencias", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, application.Shutdown())
}

func TestNewRejectsWeakSecret(t *testing.T) {
	t.Parallel()
	_, err := New(Config{StoreDriver: "sqlite", Port: 3001, JWTSecret: "weak"})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}
