package httpx

import (
	"net/http"
)

// RequireCapability lets the request through when allowed reports true for
// the caller's role. It must run after AuthnMiddleware.
func RequireCapability(allowed func(role string) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				ErrMissingCredentials().Write(w)
				return
			}
			if !allowed(p.Role) {
				ErrForbidden().Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
