package http

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/pkg/httpx"
	"github.com/bluesystem/verifika/pkg/jwtx"
	"github.com/bluesystem/verifika/pkg/slogx"
)

// Options tune the edge behaviour of the router.
type Options struct {
	// Debug exposes internal error text and password reset tokens in
	// responses. Only ever set in dev.
	Debug bool

	CORSOrigins []string

	// GeneralLimit applies to every request by client IP. A zero value
	// disables it.
	GeneralLimit httpx.RateLimitConfig
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier jwtx.Verifier
	resolver httpx.PrincipalResolver
	logger   *slog.Logger
	opts     Options
	errs     errorWriter

	AuthService       *service.AuthService
	AccountService    *service.AccountService
	BootstrapService  *service.BootstrapService
	TechnicianService *service.TechnicianService
	ClientService     *service.ClientService
	CompetencyService *service.CompetencyService
	AssignmentService *service.AssignmentService
	ActivityService   *service.ActivityService
	ValidationService *service.ValidationService
	ContactService    *service.ContactService
	HealthService     *service.HealthService
}

func NewRouter(verifier jwtx.Verifier, logger *slog.Logger, opts Options) *Router {
	r := &Router{
		Mux:      http.NewServeMux(),
		verifier: verifier,
		logger:   logger,
		opts:     opts,
		errs:     errorWriter{debug: opts.Debug},
	}

	r.middlewares = []httpx.Middleware{
		chimw.RequestID,
		chimw.RealIP,
		slogx.HTTPMiddleware(r.logger),
		chimw.Recoverer,
		httpx.CORS(opts.CORSOrigins),
	}
	if opts.GeneralLimit.RequestsPerWindow > 0 {
		r.middlewares = append(r.middlewares, httpx.RateLimitByIP(opts.GeneralLimit))
	}

	return r
}

// ApplyRoutes registers every endpoint. Services must be set first.
func (r *Router) ApplyRoutes() {
	r.resolver = principalResolver(r.AuthService)

	r.registerAuth()
	r.registerAccounts()
	r.registerTechnicians()
	r.registerClients()
	r.registerCompetencies()
	r.registerAssignments()
	r.registerActivities()
	r.registerValidations()
	r.registerContact()
	r.registerHealth()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
	r.Mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.ErrNotFound("Endpoint").Write(w)
	}))
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Verifika API
//	@version					1.0.0
//	@description				Authentication, sessions and role-gated administration for the Verifika activity validation platform.
//
//	@contact.name				BlueSystem
//	@contact.url				https://bluesystem.io
//
//	@host						localhost:3001
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured requires a valid token for a live account whose role holds every
// capability in can.
func (r *Router) secured(h http.HandlerFunc, can ...domain.Capability) http.Handler {
	return r.guarded(httpx.LenientLimit, h, can...)
}

// guarded is secured with an explicit per-account limit.
func (r *Router) guarded(limit httpx.RateLimitConfig, h http.HandlerFunc, can ...domain.Capability) http.Handler {
	mws := []httpx.Middleware{httpx.AuthnMiddleware(r.verifier, r.resolver)}
	for _, allowed := range can {
		mws = append(mws, httpx.RequireCapability(func(role string) bool {
			return allowed(domain.Role(role))
		}))
	}
	mws = append(mws, httpx.RateLimitByUser(limit))
	return httpx.Chain(h, mws...)
}

// public guards an unauthenticated credential endpoint with the strict
// limit, keyed by IP and the submitted email.
func public(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h, httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Auth:        r.AuthService,
		Bootstrap:   r.BootstrapService,
		errs:        r.errs,
		exposeReset: r.opts.Debug,
	}

	r.Mux.Handle("POST /api/auth/login", public(h.Login))
	r.Mux.Handle("POST /api/auth/register", public(h.Register))
	r.Mux.Handle("POST /api/auth/activate", public(h.Activate))
	r.Mux.Handle("POST /api/auth/forgot-password", public(h.ForgotPassword))
	r.Mux.Handle("POST /api/auth/reset-password", public(h.ResetPassword))
	r.Mux.Handle("POST /api/auth/bootstrap",
		httpx.Chain(http.HandlerFunc(h.BootstrapAdmin), httpx.RateLimitByIP(httpx.StrictLimit)),
	)

	r.Mux.Handle("POST /api/auth/logout", r.secured(h.Logout))
	r.Mux.Handle("POST /api/auth/logout-all", r.secured(h.Logout))
	r.Mux.Handle("GET /api/auth/me", r.secured(h.Me))
	r.Mux.Handle("PUT /api/auth/me", r.secured(h.UpdateMe))
	r.Mux.Handle("POST /api/auth/change-password",
		httpx.Chain(http.HandlerFunc(h.ChangePassword),
			httpx.AuthnMiddleware(r.verifier, r.resolver),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAccounts() {
	h := &AccountHandler{Accounts: r.AccountService, errs: r.errs}

	r.Mux.Handle("GET /api/auth/users", r.secured(h.List, domain.Role.CanManageAccounts))
	r.Mux.Handle("POST /api/auth/users", r.guarded(httpx.ModerateLimit, h.Create, domain.Role.CanCreateAccounts))
	r.Mux.Handle("GET /api/auth/users/{id}", r.secured(h.Get, domain.Role.CanManageAccounts))
	r.Mux.Handle("PUT /api/auth/users/{id}", r.guarded(httpx.ModerateLimit, h.Update, domain.Role.CanManageAccounts))
	r.Mux.Handle("DELETE /api/auth/users/{id}", r.guarded(httpx.ModerateLimit, h.Delete, domain.Role.CanManageAccounts))
	r.Mux.Handle("GET /api/auth/stats", r.secured(h.Stats, domain.Role.CanViewStats))
}

func (r *Router) registerTechnicians() {
	h := &TechnicianHandler{Technicians: r.TechnicianService, errs: r.errs}

	r.Mux.Handle("GET /api/tecnicos", r.secured(h.List, domain.Role.CanBrowseTechnicians))
	r.Mux.Handle("GET /api/tecnicos/available", r.secured(h.Available, domain.Role.CanBrowseTechnicians))
	r.Mux.Handle("GET /api/tecnicos/stats", r.secured(h.Stats, domain.Role.CanViewStats))
	r.Mux.Handle("POST /api/tecnicos", r.secured(h.Create, domain.Role.CanManageTechnicians))
	r.Mux.Handle("GET /api/tecnicos/{id}", r.secured(h.Get, domain.Role.CanViewTechnicianProfile))
	r.Mux.Handle("PUT /api/tecnicos/{id}", r.secured(h.Update, domain.Role.CanEditTechnicianProfile))
	r.Mux.Handle("PATCH /api/tecnicos/{id}/status", r.secured(h.SetStatus, domain.Role.CanManageTechnicians))
	r.Mux.Handle("PATCH /api/tecnicos/{id}/disponibilidad",
		r.secured(h.SetAvailability, domain.Role.CanEditTechnicianProfile))
	r.Mux.Handle("GET /api/tecnicos/{id}/competencias",
		r.secured(h.Competencies, domain.Role.CanViewTechnicianProfile))
	r.Mux.Handle("POST /api/tecnicos/{id}/competencias",
		r.secured(h.UpsertCompetency, domain.Role.CanEditTechnicianProfile))
	r.Mux.Handle("DELETE /api/tecnicos/{id}/competencias/{competenciaId}",
		r.secured(h.RemoveCompetency, domain.Role.CanEditTechnicianProfile))
}

func (r *Router) registerClients() {
	h := &ClientHandler{Clients: r.ClientService, errs: r.errs}

	r.Mux.Handle("GET /api/clientes", r.secured(h.List, domain.Role.CanManageClients))
	r.Mux.Handle("GET /api/clientes/stats", r.secured(h.Stats, domain.Role.CanViewStats))
	r.Mux.Handle("POST /api/clientes", r.secured(h.Create, domain.Role.CanManageClients))
	r.Mux.Handle("GET /api/clientes/{id}", r.secured(h.Get, domain.Role.CanEditClientProfile))
	r.Mux.Handle("PUT /api/clientes/{id}", r.secured(h.Update, domain.Role.CanEditClientProfile))
	r.Mux.Handle("PATCH /api/clientes/{id}/status", r.secured(h.SetStatus, domain.Role.CanManageClients))
}

func (r *Router) registerCompetencies() {
	h := &CompetencyHandler{Competencies: r.CompetencyService, errs: r.errs}

	r.Mux.Handle("GET /api/competencias", r.secured(h.List))
	r.Mux.Handle("GET /api/competencias/categories", r.secured(h.Categories))
	r.Mux.Handle("GET /api/competencias/stats", r.secured(h.Stats, domain.Role.CanViewStats))
	r.Mux.Handle("GET /api/competencias/most-demanded", r.secured(h.MostDemanded, domain.Role.CanBrowseTechnicians))
	r.Mux.Handle("GET /api/competencias/{id}/tecnicos", r.secured(h.Holders, domain.Role.CanBrowseTechnicians))
	r.Mux.Handle("GET /api/competencias/{id}", r.secured(h.Get))
	r.Mux.Handle("POST /api/competencias", r.secured(h.Create, domain.Role.CanManageCompetencies))
	r.Mux.Handle("PUT /api/competencias/{id}", r.secured(h.Update, domain.Role.CanManageCompetencies))
	r.Mux.Handle("PATCH /api/competencias/{id}/status", r.secured(h.SetActive, domain.Role.CanManageCompetencies))
	r.Mux.Handle("DELETE /api/competencias/{id}", r.secured(h.Delete, domain.Role.CanManageCompetencies))
}

func (r *Router) registerAssignments() {
	h := &AssignmentHandler{Assignments: r.AssignmentService, errs: r.errs}

	r.Mux.Handle("GET /api/asignaciones", r.secured(h.List))
	r.Mux.Handle("GET /api/asignaciones/stats", r.secured(h.Stats, domain.Role.CanViewStats))
	r.Mux.Handle("GET /api/asignaciones/{id}", r.secured(h.Get))
	r.Mux.Handle("POST /api/asignaciones", r.secured(h.Create, domain.Role.CanManageAssignments))
	r.Mux.Handle("PUT /api/asignaciones/{id}", r.secured(h.Update, domain.Role.CanManageAssignments))
	r.Mux.Handle("PATCH /api/asignaciones/{id}/status", r.secured(h.SetStatus, domain.Role.CanManageAssignments))
}

func (r *Router) registerActivities() {
	h := &ActivityHandler{Activities: r.ActivityService, errs: r.errs}

	r.Mux.Handle("GET /api/actividades", r.secured(h.List))
	r.Mux.Handle("GET /api/actividades/{id}", r.secured(h.Get))
	r.Mux.Handle("GET /api/actividades/{id}/historial", r.secured(h.History))
	r.Mux.Handle("POST /api/actividades", r.secured(h.Create, domain.Role.CanCreateActivities))
	r.Mux.Handle("PUT /api/actividades/{id}", r.secured(h.Update, domain.Role.CanCreateActivities))
	r.Mux.Handle("PATCH /api/actividades/{id}/status", r.secured(h.SetStatus, domain.Role.CanCreateActivities))
}

func (r *Router) registerValidations() {
	h := &ValidationHandler{Validations: r.ValidationService, errs: r.errs}
	can := domain.Role.CanValidateActivities

	r.Mux.Handle("GET /api/validaciones", r.secured(h.List, can))
	r.Mux.Handle("GET /api/validaciones/{id}", r.secured(h.Get, can))
	r.Mux.Handle("POST /api/validaciones", r.secured(h.Create, can))
	r.Mux.Handle("PUT /api/validaciones/{id}", r.secured(h.Update, can))
	r.Mux.Handle("PATCH /api/validaciones/{id}/status", r.secured(h.SetStatus, can))
}

func (r *Router) registerContact() {
	h := &ContactHandler{Contact: r.ContactService, errs: r.errs}

	r.Mux.Handle("POST /api/contact",
		httpx.Chain(http.HandlerFunc(h.Submit), httpx.RateLimitByIP(httpx.ContactLimit)))
	r.Mux.Handle("GET /api/contact/services",
		httpx.Chain(http.HandlerFunc(h.Services), httpx.RateLimitByIP(httpx.PublicLimit)))
}

func (r *Router) registerHealth() {
	h := &HealthHandler{Health: r.HealthService}
	limit := httpx.RateLimitByIP(httpx.PublicLimit)

	r.Mux.Handle("GET /health", httpx.Chain(http.HandlerFunc(h.Summary), limit))
	r.Mux.Handle("GET /health/detailed", httpx.Chain(http.HandlerFunc(h.Detailed), limit))
	r.Mux.Handle("GET /health/live", http.HandlerFunc(h.Live))
	r.Mux.Handle("GET /health/ready", http.HandlerFunc(h.Ready))
	r.Mux.Handle("GET /health/database", httpx.Chain(http.HandlerFunc(h.Database), limit))
	r.Mux.Handle("GET /health/redis", httpx.Chain(http.HandlerFunc(h.Redis), limit))
	r.Mux.Handle("GET /health/metrics", httpx.Chain(http.HandlerFunc(h.Metrics), limit))
}
