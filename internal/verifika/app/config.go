package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/httpx"
	"github.com/bluesystem/verifika/pkg/jwtx"
)

type Config struct {
	Service             string        // Service name, used for the issuer and cache prefix (default: verifika)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 3001)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	StoreDriver       string        // mysql or sqlite (default: mysql)
	SQLitePath        string        // Database file for the sqlite driver (default: verifika.db)
	DBHost            string        // (default: localhost)
	DBPort            int           // (default: 3306)
	DBUser            string        // (default: root)
	DBPassword        string        // Optional
	DBName            string        // (default: verifika)
	DBTLS             bool          // (default: false)
	DBConnectionLimit int           // Pool size (default: 10)
	DBTimeout         time.Duration // Connect and IO timeout (default: 10s)
	DBMigrate         bool          // Apply migrations on startup (default: true)

	RedisHost     string        // (default: localhost)
	RedisPort     int           // (default: 6379)
	RedisPassword string        // Optional
	RedisDB       int           // (default: 0)
	RedisTimeout  time.Duration // (default: 5s)
	SessionTTL    time.Duration // Session index lifetime (default: 1h)

	JWTSecret      string        // Required: HMAC secret, at least 32 bytes
	JWTTTL         time.Duration // Login token lifetime (default: 24h)
	JWTRememberTTL time.Duration // "remember me" token lifetime (default: 720h)
	JWTIssuer      string        // Issuer claim (default: <Service>-api)

	CORSOrigins       []string      // Allowed origins, CSV
	RateLimitWindow   time.Duration // General limit window (default: 15m)
	RateLimitRequests int           // General limit per window and IP (default: 100)
	AllowRegistration bool          // Public self registration (default: false)
	BcryptCost        int           // (default: 12, min: 10)
	BootstrapToken    string        // Optional: token required to perform bootstrap
}

// LoadConfig reads the environment. A .env file (ENV_FILE, default .env) is
// loaded first when present; variables already set take precedence.
func LoadConfig() Config {
	envFile := getEnvOrDefault("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", envFile, err)
	}

	service := getEnvOrDefault("SERVICE_NAME", "verifika")
	cfg := Config{
		Service:             service,
		Env:                 getEnvOrDefault("ENV", getEnvOrDefault("NODE_ENV", "dev")),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 3001),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		StoreDriver:       getEnvOrDefault("STORE_DRIVER", "mysql"),
		SQLitePath:        getEnvOrDefault("SQLITE_PATH", "verifika.db"),
		DBHost:            getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:            getEnvIntOrDefault("DB_PORT", 3306),
		DBUser:            getEnvOrDefault("DB_USER", "root"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            getEnvOrDefault("DB_NAME", "verifika"),
		DBTLS:             getEnvBoolOrDefault("DB_SSL", false),
		DBConnectionLimit: getEnvIntOrDefault("DB_CONNECTION_LIMIT", 10),
		DBTimeout:         getEnvDurationOrDefault("DB_TIMEOUT", 10*time.Second),
		DBMigrate:         getEnvBoolOrDefault("DB_MIGRATE", true),

		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvIntOrDefault("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		RedisTimeout:  getEnvDurationOrDefault("REDIS_TIMEOUT", 5*time.Second),
		SessionTTL:    getEnvDurationOrDefault("SESSION_TTL", time.Hour),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         getEnvDurationOrDefault("JWT_EXPIRES_IN", jwtx.DefaultAccessTokenTTL),
		JWTRememberTTL: getEnvDurationOrDefault("JWT_REMEMBER_EXPIRES_IN", jwtx.DefaultRememberTokenTTL),
		JWTIssuer:      getEnvOrDefault("JWT_ISSUER", service+"-api"),

		CORSOrigins:       httpx.SplitCSV(os.Getenv("CORS_ORIGINS")),
		RateLimitWindow:   time.Duration(getEnvIntOrDefault("RATE_LIMIT_WINDOW_MS", 900000)) * time.Millisecond,
		RateLimitRequests: getEnvIntOrDefault("RATE_LIMIT_MAX_REQUESTS", 100),
		AllowRegistration: getEnvBoolOrDefault("ALLOW_PUBLIC_REGISTRATION", false),
		BcryptCost:        max(getEnvIntOrDefault("BCRYPT_COST", cryptox.DefaultCost), cryptox.MinCost),
		BootstrapToken:    os.Getenv("BOOTSTRAP_TOKEN"),
	}
	return cfg
}

var (
	errSecretMissing = errors.New("JWT_SECRET is required")
	errStoreDriver   = errors.New("STORE_DRIVER must be mysql or sqlite")
)

// Validate reports configuration that must stop startup.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errSecretMissing
	}
	if err := jwtx.CheckSecret([]byte(c.JWTSecret)); err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}
	if c.StoreDriver != "mysql" && c.StoreDriver != "sqlite" {
		return errStoreDriver
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	return nil
}

// IsDev reports whether internal details may be exposed in responses.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes, as in older deployments
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
