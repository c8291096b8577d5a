package verifika_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bluesystem/verifika/internal/verifika/app"
	"github.com/bluesystem/verifika/pkg/cryptox"
)

/*
 * Shared setup for the end-to-end suite: a MySQL and a Redis container, the
 * API served in-process against both, and a small JSON client.
 */

const (
	bootstrapToken = "test-bootstrap-token-12345"
	jwtSecret      = "e2e-secret-e2e-secret-e2e-secret-0000"
	dbPassword     = "verifika-e2e"

	adminEmail    = "admin@verifika.test"
	adminPassword = "Admin123!"
)

// startContainer runs req and returns the host and mapped port of exposed.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, exposed string) (string, int) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, nat.Port(exposed))
	require.NoError(t, err)

	return host, mapped.Int()
}

// setupVerifika starts the backing services and returns the base URL of an
// API wired to them.
func setupVerifika(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container tests in short mode")
	}

	dbHost, dbPort := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": dbPassword,
			"MYSQL_DATABASE":      "verifika",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
			WithStartupTimeout(120 * time.Second),
	}, "3306/tcp")

	redisHost, redisPort := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")

	application, err := app.New(app.Config{
		Service:             "verifika",
		Env:                 "dev",
		LogLevel:            "warn",
		LogFormat:           "json",
		Port:                3001,
		ShutdownGracePeriod: 5 * time.Second,

		StoreDriver:       "mysql",
		DBHost:            dbHost,
		DBPort:            dbPort,
		DBUser:            "root",
		DBPassword:        dbPassword,
		DBName:            "verifika",
		DBConnectionLimit: 5,
		DBTimeout:         30 * time.Second,
		DBMigrate:         true,

		RedisHost:    redisHost,
		RedisPort:    redisPort,
		RedisTimeout: 5 * time.Second,
		SessionTTL:   time.Hour,

		JWTSecret:      jwtSecret,
		JWTTTL:         time.Hour,
		JWTRememberTTL: 24 * time.Hour,
		JWTIssuer:      "verifika-api",

		RateLimitWindow:   time.Minute,
		RateLimitRequests: 10000,
		BcryptCost:        cryptox.MinCost,
		BootstrapToken:    bootstrapToken,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		if err := application.Shutdown(); err != nil {
			t.Logf("shutdown: %v", err)
		}
	})

	return srv.URL
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type client struct {
	baseURL string
	token   string
	headers map[string]string
}

func newClient(baseURL string) *client {
	return &client{baseURL: baseURL, headers: map[string]string{}}
}

// call sends body as JSON and decodes the envelope. The status is returned
// even when the body is not an envelope.
func (c *client) call(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, c.baseURL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

// data decodes the envelope payload into v.
func data(t *testing.T, env envelope, v any) {
	t.Helper()
	require.NotEmpty(t, env.Data, "response carries no data")
	require.NoError(t, json.Unmarshal(env.Data, v))
}

// login authenticates and stores the token on the client.
func (c *client) login(t *testing.T, email, password string) {
	t.Helper()
	status, env := c.call(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, "login %s: %+v", email, env.Error)

	var session struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	data(t, env, &session)
	require.NotEmpty(t, session.Token)
	require.Positive(t, session.ExpiresIn)
	c.token = session.Token
}

// bootstrapAdmin creates the first administrator and returns a client
// logged in as it.
func bootstrapAdmin(t *testing.T, baseURL string) *client {
	t.Helper()
	c := newClient(baseURL)
	c.headers["X-Bootstrap-Token"] = bootstrapToken
	status, env := c.call(t, http.MethodPost, "/api/auth/bootstrap", map[string]any{
		"email":    adminEmail,
		"password": adminPassword,
		"nombre":   "Ada",
		"apellido": "Admin",
	})
	require.Equal(t, http.StatusCreated, status, "bootstrap: %+v", env.Error)
	delete(c.headers, "X-Bootstrap-Token")

	c.login(t, adminEmail, adminPassword)
	return c
}

func path(format string, args ...any) string { return fmt.Sprintf(format, args...) }
