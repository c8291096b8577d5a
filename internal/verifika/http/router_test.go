package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bluesystem/verifika/internal/verifika/cache"
	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/internal/verifika/store/drivers/sqlite"
	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/httpx"
	"github.com/bluesystem/verifika/pkg/jwtx"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testIssuer = "verifika-api"
)

type server struct {
	router   *Router
	store    *sqlite.Store
	redis    *miniredis.Miniredis
	signer   jwtx.Signer
	verifier jwtx.Verifier
	tokens   *service.TokenService
}

func newServer(t *testing.T) *server {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "verifika.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := cache.NewWithClient(rdb, "test", time.Hour)

	signer, err := jwtx.NewSignerHS256([]byte(testSecret))
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256([]byte(testSecret), jwtx.VerifyOptions{Issuer: testIssuer})
	require.NoError(t, err)
	tokens := &service.TokenService{Signer: signer, Issuer: testIssuer}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(verifier, logger, Options{Debug: true})
	r.AuthService = &service.AuthService{Store: st, Sessions: c, Tokens: tokens, BcryptCost: cryptox.MinCost}
	r.AccountService = &service.AccountService{Store: st, Sessions: c, BcryptCost: cryptox.MinCost}
	r.BootstrapService = &service.BootstrapService{Store: st, BcryptCost: cryptox.MinCost}
	r.TechnicianService = &service.TechnicianService{Store: st, Sessions: c, BcryptCost: cryptox.MinCost}
	r.ClientService = &service.ClientService{Store: st, Sessions: c, BcryptCost: cryptox.MinCost}
	r.CompetencyService = &service.CompetencyService{Store: st}
	r.AssignmentService = &service.AssignmentService{Store: st}
	r.ActivityService = &service.ActivityService{Store: st}
	r.ValidationService = &service.ValidationService{Store: st}
	r.ContactService = &service.ContactService{}
	r.HealthService = &service.HealthService{
		Store: st, Cache: c, Service: "verifika", Version: "test", Env: "test", Started: time.Now(),
	}
	r.ApplyRoutes()

	return &server{router: r, store: st, redis: mr, signer: signer, verifier: verifier, tokens: tokens}
}

func (s *server) seedAccount(t *testing.T, email, password string, role domain.Role, status domain.Status) domain.Account {
	t.Helper()
	hash, err := cryptox.HashPassword(password, cryptox.MinCost)
	require.NoError(t, err)
	a := domain.Account{
		Email: email, PasswordHash: hash, FirstName: "Test", LastName: "User",
		Role: role, Status: status,
	}
	require.NoError(t, s.store.Accounts().CreateAccount(context.Background(), &a))
	return a
}

func (s *server) seedTechnician(t *testing.T, email string) (domain.Account, domain.Technician) {
	t.Helper()
	acct := s.seedAccount(t, email, "password123", domain.RoleTechnician, domain.StatusActive)
	tech := domain.Technician{AccountID: acct.ID, City: "Madrid"}
	require.NoError(t, s.store.Technicians().CreateTechnician(context.Background(), &tech))
	return acct, tech
}

func (s *server) tokenFor(t *testing.T, a domain.Account) string {
	t.Helper()
	issued, err := s.tokens.Issue(a, false)
	require.NoError(t, err)
	return issued.Token
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func (s *server) do(t *testing.T, method, path, token string, body any) (int, response) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func errorCode(r response) string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	admin := s.seedAccount(t, "admin@verifika.com", "admin123", domain.RoleAdmin, domain.StatusActive)

	t.Run("admin credentials yield an admin token", func(t *testing.T) {
		code, res := s.do(t, http.MethodPost, "/api/auth/login", "",
			map[string]string{"email": "admin@verifika.com", "password": "admin123"})
		require.Equal(t, http.StatusOK, code)
		require.True(t, res.Success)

		var data sessionResponse
		require.NoError(t, json.Unmarshal(res.Data, &data))
		require.Equal(t, admin.ID, data.User.ID)
		require.Equal(t, int64(jwtx.DefaultAccessTokenTTL.Seconds()), data.ExpiresIn)

		claims, err := s.verifier.Verify(data.Token)
		require.NoError(t, err)
		require.Equal(t, string(domain.RoleAdmin), claims.Role)
		require.Equal(t, admin.ID, claims.AccountID)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		code, wrong := s.do(t, http.MethodPost, "/api/auth/login", "",
			map[string]string{"email": "admin@verifika.com", "password": "admin124"})
		require.Equal(t, http.StatusUnauthorized, code)
		require.False(t, wrong.Success)
		require.Empty(t, wrong.Data)
		require.Equal(t, httpx.CodeInvalidCredentials, errorCode(wrong))

		code, unknown := s.do(t, http.MethodPost, "/api/auth/login", "",
			map[string]string{"email": "nobody@verifika.com", "password": "admin123"})
		require.Equal(t, http.StatusUnauthorized, code)
		require.Equal(t, wrong.Message, unknown.Message)
		require.Equal(t, errorCode(wrong), errorCode(unknown))
	})

	t.Run("missing fields are a validation error", func(t *testing.T) {
		code, res := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "x@verifika.com"})
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, httpx.CodeValidation, errorCode(res))
	})
}

func TestMeReportsLatestSession(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	s.seedAccount(t, "tec@verifika.com", "secret123", domain.RoleTechnician, domain.StatusActive)

	login := func() string {
		code, res := s.do(t, http.MethodPost, "/api/auth/login", "",
			map[string]string{"email": "tec@verifika.com", "password": "secret123"})
		require.Equal(t, http.StatusOK, code)
		var data sessionResponse
		require.NoError(t, json.Unmarshal(res.Data, &data))
		return data.Token
	}
	sessionActive := func(token string) bool {
		code, res := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, code)
		var data meResponse
		require.NoError(t, json.Unmarshal(res.Data, &data))
		return data.SessionActive
	}

	first := login()
	require.True(t, sessionActive(first))

	second := login()
	require.True(t, sessionActive(second))
	require.False(t, sessionActive(first), "an older token still passes the gate but is no longer the session")
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	s.seedAccount(t, "admin@verifika.com", "admin123", domain.RoleAdmin, domain.StatusActive)

	body := map[string]string{"email": "admin@verifika.com", "password": "wrong"}
	for range httpx.StrictLimit.Burst {
		code, _ := s.do(t, http.MethodPost, "/api/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, code)
	}
	code, res := s.do(t, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Equal(t, httpx.CodeRateLimited, errorCode(res))

	// A different email from the same address has its own bucket.
	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": "admin@verifika.com ", "password": "admin123"})
	require.Equal(t, http.StatusTooManyRequests, code)
	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": "other@verifika.com", "password": "admin123"})
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestAuthGate(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	admin := s.seedAccount(t, "admin@verifika.com", "admin123", domain.RoleAdmin, domain.StatusActive)
	client := s.seedAccount(t, "client@verifika.com", "password123", domain.RoleClient, domain.StatusActive)
	suspended := s.seedAccount(t, "gone@verifika.com", "password123", domain.RoleAdmin, domain.StatusActive)
	idle := s.seedAccount(t, "idle@verifika.com", "password123", domain.RoleAdmin, domain.StatusActive)

	suspendedToken := s.tokenFor(t, suspended)
	idleToken := s.tokenFor(t, idle)
	ctx := context.Background()
	require.NoError(t, s.store.Accounts().SetAccountStatus(ctx, suspended.ID, domain.StatusSuspended))
	require.NoError(t, s.store.Accounts().SetAccountStatus(ctx, idle.ID, domain.StatusInactive))

	expired, err := s.signer.Sign(jwtx.NewAccessClaims(admin.Identity(), testIssuer, time.Hour, time.Now().Add(-2*time.Hour)))
	require.NoError(t, err)

	cases := []struct {
		name    string
		token   string
		status  int
		code    string
		details string
	}{
		{"missing token", "", http.StatusUnauthorized, httpx.CodeMissingCredentials, ""},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized, httpx.CodeInvalidToken, `"TOKEN_INVALID"`},
		{"expired token", expired, http.StatusUnauthorized, httpx.CodeInvalidToken, `"TOKEN_EXPIRED"`},
		{"suspended account", suspendedToken, http.StatusUnauthorized, httpx.CodeAccountUnavailable, ""},
		{"inactive account", idleToken, http.StatusForbidden, httpx.CodeAccountInactive, ""},
		{"role not allowed", s.tokenFor(t, client), http.StatusForbidden, httpx.CodeForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, res := s.do(t, http.MethodGet, "/api/auth/users", tc.token, nil)
			require.Equal(t, tc.status, code)
			require.Equal(t, tc.code, errorCode(res))
			if tc.details != "" {
				require.JSONEq(t, tc.details, string(res.Error.Details))
			}
		})
	}

	t.Run("valid admin token passes", func(t *testing.T) {
		code, res := s.do(t, http.MethodGet, "/api/auth/users", s.tokenFor(t, admin), nil)
		require.Equal(t, http.StatusOK, code)
		require.True(t, res.Success)
	})

	t.Run("me reflects the stored account, not the token", func(t *testing.T) {
		token := s.tokenFor(t, admin)
		_, err := s.router.AccountService.Update(ctx, admin.ID, service.UpdateAccountInput{
			ProfileInput: service.ProfileInput{FirstName: ptr("Renamed")},
		})
		require.NoError(t, err)

		code, res := s.do(t, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, code)
		var data userResponse
		require.NoError(t, json.Unmarshal(res.Data, &data))
		require.Equal(t, "Renamed", data.User.FirstName)
	})
}

func TestTechnicianSelfAccess(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	ownAcct, own := s.seedTechnician(t, "own@verifika.com")
	_, other := s.seedTechnician(t, "other@verifika.com")
	token := s.tokenFor(t, ownAcct)

	code, _ := s.do(t, http.MethodGet, fmt.Sprintf("/api/tecnicos/%d", own.ID), token, nil)
	require.Equal(t, http.StatusOK, code)

	code, res := s.do(t, http.MethodGet, fmt.Sprintf("/api/tecnicos/%d", other.ID), token, nil)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, httpx.CodeForbidden, errorCode(res))

	// Nonexistent ids are indistinguishable from foreign ones.
	code, res = s.do(t, http.MethodGet, "/api/tecnicos/999999", token, nil)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, httpx.CodeForbidden, errorCode(res))

	code, _ = s.do(t, http.MethodPatch, fmt.Sprintf("/api/tecnicos/%d/disponibilidad", other.ID), token,
		map[string]string{"disponibilidad": "ocupado"})
	require.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPatch, fmt.Sprintf("/api/tecnicos/%d/disponibilidad", own.ID), token,
		map[string]string{"disponibilidad": "ocupado"})
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/tecnicos", token, nil)
	require.Equal(t, http.StatusForbidden, code)
}

func availableIDs(t *testing.T, s *server, token string) []int64 {
	t.Helper()
	code, res := s.do(t, http.MethodGet, "/api/tecnicos/available", token, nil)
	require.Equal(t, http.StatusOK, code)
	var data struct {
		Technicians []domain.Technician `json:"tecnicos"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	ids := make([]int64, len(data.Technicians))
	for i, tech := range data.Technicians {
		ids[i] = tech.ID
	}
	return ids
}

func TestSuspensionAndAvailability(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	admin := s.seedAccount(t, "admin@verifika.com", "admin123", domain.RoleAdmin, domain.StatusActive)
	token := s.tokenFor(t, admin)
	_, tech := s.seedTechnician(t, "tech@verifika.com")
	path := fmt.Sprintf("/api/tecnicos/%d/status", tech.ID)

	require.Contains(t, availableIDs(t, s, token), tech.ID)

	code, _ := s.do(t, http.MethodPatch, path, token, map[string]string{"estado": "suspendido"})
	require.Equal(t, http.StatusOK, code)
	require.NotContains(t, availableIDs(t, s, token), tech.ID)

	code, _ = s.do(t, http.MethodPatch, path, token, map[string]string{"estado": "activo"})
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, availableIDs(t, s, token), tech.ID)

	code, res := s.do(t, http.MethodPatch, path, token, map[string]string{"estado": "eliminado"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, httpx.CodeValidation, errorCode(res))
}

func TestAvailableTechniciansRepeatedCompetency(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	admin := s.seedAccount(t, "admin@verifika.com", "admin123", domain.RoleAdmin, domain.StatusActive)
	token := s.tokenFor(t, admin)
	_, tech := s.seedTechnician(t, "tech@verifika.com")
	require.NoError(t, s.store.Technicians().UpsertTechnicianCompetency(context.Background(), domain.TechnicianCompetency{
		TechnicianID: tech.ID, CompetencyID: 1, CurrentLevel: domain.SkillAdvanced,
	}))

	for _, query := range []string{"?competencias=1", "?competencias=1,1", "?competencias=1, 1 ,1"} {
		code, res := s.do(t, http.MethodGet, "/api/tecnicos/available"+query, token, nil)
		require.Equal(t, http.StatusOK, code, query)
		var data struct {
			Technicians []domain.Technician `json:"tecnicos"`
		}
		require.NoError(t, json.Unmarshal(res.Data, &data))
		require.Len(t, data.Technicians, 1, query)
		require.Equal(t, tech.ID, data.Technicians[0].ID, query)
	}
}

func TestTechnicianPagination(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	admin := s.seedAccount(t, "admin@verifika.com", "admin123", domain.RoleAdmin, domain.StatusActive)
	token := s.tokenFor(t, admin)
	for i := range 15 {
		s.seedTechnician(t, fmt.Sprintf("tech%02d@verifika.com", i))
	}

	type page struct {
		Technicians []domain.Technician `json:"tecnicos"`
		Pagination  domain.Pagination   `json:"pagination"`
	}
	list := func(t *testing.T, query string) page {
		t.Helper()
		code, res := s.do(t, http.MethodGet, "/api/tecnicos"+query, token, nil)
		require.Equal(t, http.StatusOK, code)
		var p page
		require.NoError(t, json.Unmarshal(res.Data, &p))
		return p
	}

	p := list(t, "?page=2&limit=10")
	require.Len(t, p.Technicians, 5)
	require.Equal(t, int64(2), p.Pagination.Pages)
	require.Equal(t, int64(15), p.Pagination.Total)
	require.Equal(t, 2, p.Pagination.Page)

	p = list(t, "")
	require.Len(t, p.Technicians, domain.DefaultPageLimit)
	require.Equal(t, 1, p.Pagination.Page)

	p = list(t, "?page=0&limit=500")
	require.Equal(t, 1, p.Pagination.Page)
	require.Equal(t, domain.MaxPageLimit, p.Pagination.Limit)
	require.Len(t, p.Technicians, 15)

	p = list(t, "?limit=-3")
	require.Equal(t, domain.DefaultPageLimit, p.Pagination.Limit)

	code, res := s.do(t, http.MethodGet, "/api/tecnicos?competencia_id=abc", token, nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, httpx.CodeValidation, errorCode(res))
}

func TestErrorTranslation(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	admin := s.seedAccount(t, "admin@verifika.com", "admin123", domain.RoleAdmin, domain.StatusActive)
	token := s.tokenFor(t, admin)

	t.Run("duplicate competency name is a conflict", func(t *testing.T) {
		body := map[string]any{"nombre": "Kubernetes Ops", "categoria": "DevOps"}
		code, _ := s.do(t, http.MethodPost, "/api/competencias", token, body)
		require.Equal(t, http.StatusCreated, code)
		code, res := s.do(t, http.MethodPost, "/api/competencias", token, body)
		require.Equal(t, http.StatusConflict, code)
		require.Equal(t, httpx.CodeDuplicate, errorCode(res))
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/competencias", bytes.NewBufferString("{nope"))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown resource", func(t *testing.T) {
		code, res := s.do(t, http.MethodGet, "/api/auth/users/424242", token, nil)
		require.Equal(t, http.StatusNotFound, code)
		require.Equal(t, httpx.CodeNotFound, errorCode(res))
	})

	t.Run("bad path id", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/auth/users/abc", token, nil)
		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("deleting yourself is refused", func(t *testing.T) {
		code, res := s.do(t, http.MethodDelete, fmt.Sprintf("/api/auth/users/%d", admin.ID), token, nil)
		require.Equal(t, http.StatusUnprocessableEntity, code)
		require.Equal(t, httpx.CodeBusinessRule, errorCode(res))
	})

	t.Run("stale action tokens are told apart from a bad bearer", func(t *testing.T) {
		s.seedAccount(t, "pending@verifika.com", "pending123", domain.RoleValidator, domain.StatusPending)
		body := map[string]string{
			"email": "pending@verifika.com", "token": "00000000000000000000000000000000", "password": "nuevaclave1",
		}
		for _, path := range []string{"/api/auth/activate", "/api/auth/reset-password"} {
			code, res := s.do(t, http.MethodPost, path, "", body)
			require.Equal(t, http.StatusBadRequest, code, path)
			require.Equal(t, httpx.CodeInvalidActionToken, errorCode(res), path)
		}

		code, res := s.do(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil)
		require.Equal(t, http.StatusUnauthorized, code)
		require.Equal(t, httpx.CodeInvalidToken, errorCode(res))
	})

	t.Run("unknown route", func(t *testing.T) {
		code, res := s.do(t, http.MethodGet, "/api/nothing-here", "", nil)
		require.Equal(t, http.StatusNotFound, code)
		require.Equal(t, httpx.CodeNotFound, errorCode(res))
	})
}

func TestLogoutWithCacheDown(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	admin := s.seedAccount(t, "admin@verifika.com", "admin123", domain.RoleAdmin, domain.StatusActive)
	token := s.tokenFor(t, admin)
	s.redis.Close()

	code, res := s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.True(t, res.Success)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	get := func(path string) (int, map[string]any) {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	code, body := get("/health")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "verifika", body["service"])

	code, _ = get("/health/ready")
	require.Equal(t, http.StatusOK, code)

	code, body = get("/health/detailed")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "memory")

	s.redis.Close()

	code, _ = get("/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, code)
	code, body = get("/health/detailed")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "degraded", body["status"])
	code, _ = get("/health/redis")
	require.Equal(t, http.StatusServiceUnavailable, code)
	code, _ = get("/health/database")
	require.Equal(t, http.StatusOK, code)
	code, _ = get("/health/live")
	require.Equal(t, http.StatusOK, code)
}

func TestSwaggerUI(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "swagger-ui")
}

func TestHealthMetrics(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var res response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	var m map[string]any
	require.NoError(t, json.Unmarshal(res.Data, &m))
	require.Contains(t, m, "uptime_seconds")
	require.Contains(t, m, "memory_heap_used_bytes")

	req := httptest.NewRequest(http.MethodGet, "/health/metrics", nil)
	req.Header.Set("Accept", "text/plain")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Contains(t, rec.Body.String(), "verifika_uptime_seconds ")
	require.Contains(t, rec.Body.String(), "verifika_goroutines ")
	require.NotContains(t, rec.Body.String(), "go_version")
}

func TestRouteCapabilities(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	tokens := map[domain.Role]string{}
	for _, role := range domain.Roles {
		acct := s.seedAccount(t, string(role)+"@verifika.com", "password123", role, domain.StatusActive)
		tokens[role] = s.tokenFor(t, acct)
	}

	tests := []struct {
		method, path string
		allowed      []domain.Role
	}{
		{http.MethodGet, "/api/auth/users", []domain.Role{domain.RoleAdmin}},
		{http.MethodGet, "/api/auth/stats", []domain.Role{domain.RoleAdmin}},
		{http.MethodGet, "/api/tecnicos", []domain.Role{domain.RoleAdmin, domain.RoleClient}},
		{http.MethodGet, "/api/tecnicos/available", []domain.Role{domain.RoleAdmin, domain.RoleClient}},
		{http.MethodGet, "/api/clientes", []domain.Role{domain.RoleAdmin}},
		{http.MethodGet, "/api/competencias", domain.Roles},
		{http.MethodGet, "/api/competencias/most-demanded", []domain.Role{domain.RoleAdmin, domain.RoleClient}},
		{http.MethodGet, "/api/competencias/1/tecnicos", []domain.Role{domain.RoleAdmin, domain.RoleClient}},
		{http.MethodGet, "/api/validaciones", []domain.Role{domain.RoleAdmin, domain.RoleValidator}},
	}
	for _, tc := range tests {
		for _, role := range domain.Roles {
			code, res := s.do(t, tc.method, tc.path, tokens[role], nil)
			name := fmt.Sprintf("%s %s as %s", tc.method, tc.path, role)
			if slices.Contains(tc.allowed, role) {
				require.Equal(t, http.StatusOK, code, name)
				continue
			}
			require.Equal(t, http.StatusForbidden, code, name)
			require.Equal(t, httpx.CodeForbidden, errorCode(res), name)
		}
	}
}

func TestCompetencyDemand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newServer(t)
	client := s.seedAccount(t, "cliente@verifika.com", "password123", domain.RoleClient, domain.StatusActive)
	token := s.tokenFor(t, client)
	_, tech := s.seedTechnician(t, "tech@verifika.com")
	require.NoError(t, s.store.Technicians().UpsertTechnicianCompetency(ctx, domain.TechnicianCompetency{
		TechnicianID: tech.ID, CompetencyID: 3, CurrentLevel: domain.SkillExpert, Certified: true,
	}))

	t.Run("most demanded defaults to ten and ranks holders first", func(t *testing.T) {
		code, res := s.do(t, http.MethodGet, "/api/competencias/most-demanded", token, nil)
		require.Equal(t, http.StatusOK, code)
		var data struct {
			Competencies []domain.Competency `json:"competencias"`
		}
		require.NoError(t, json.Unmarshal(res.Data, &data))
		require.Len(t, data.Competencies, service.DefaultDemandLimit)
		require.Equal(t, int64(3), data.Competencies[0].ID)
		require.Equal(t, int64(1), *data.Competencies[0].CertifiedCount)

		code, res = s.do(t, http.MethodGet, "/api/competencias/most-demanded?limit=2", token, nil)
		require.Equal(t, http.StatusOK, code)
		require.NoError(t, json.Unmarshal(res.Data, &data))
		require.Len(t, data.Competencies, 2)
	})

	t.Run("holders of a competency", func(t *testing.T) {
		code, res := s.do(t, http.MethodGet, "/api/competencias/3/tecnicos", token, nil)
		require.Equal(t, http.StatusOK, code)
		var data struct {
			Holders []domain.CompetencyHolder `json:"tecnicos"`
		}
		require.NoError(t, json.Unmarshal(res.Data, &data))
		require.Len(t, data.Holders, 1)
		require.Equal(t, tech.ID, data.Holders[0].TechnicianID)

		code, res = s.do(t, http.MethodGet, "/api/competencias/424242/tecnicos", token, nil)
		require.Equal(t, http.StatusNotFound, code)
		require.Equal(t, httpx.CodeNotFound, errorCode(res))
	})
}

func TestContactEndpoints(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	code, res := s.do(t, http.MethodGet, "/api/contact/services", "", nil)
	require.Equal(t, http.StatusOK, code)
	var catalogue struct {
		Services []domain.ContactOption `json:"services"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &catalogue))
	require.Len(t, catalogue.Services, len(domain.ContactServices))

	valid := map[string]any{
		"name": "Ana Mora", "email": "ana@empresa.cr", "service": "ia",
		"message": "Queremos automatizar la conciliación bancaria.",
	}
	code, res = s.do(t, http.MethodPost, "/api/contact", "", valid)
	require.Equal(t, http.StatusOK, code)
	require.True(t, res.Success)

	spam := map[string]any{"website": "x"}
	for k, v := range valid {
		spam[k] = v
	}
	code, res = s.do(t, http.MethodPost, "/api/contact", "", spam)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, httpx.CodeValidation, errorCode(res))

	code, _ = s.do(t, http.MethodPost, "/api/contact", "", map[string]any{"name": "A"})
	require.Equal(t, http.StatusBadRequest, code)

	code, res = s.do(t, http.MethodPost, "/api/contact", "", valid)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Equal(t, httpx.CodeRateLimited, errorCode(res))
}

func ptr[T any](v T) *T { return &v }
