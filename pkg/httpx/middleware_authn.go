package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bluesystem/verifika/pkg/jwtx"
	"github.com/bluesystem/verifika/pkg/slogx"
)

// PrincipalResolver turns verified claims into the current state of the
// account they name. Returning an *Error rejects the request with that error;
// any other error becomes a 500.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, claims jwtx.Claims) (Principal, error)
}

// ResolverFunc adapts a function to PrincipalResolver.
type ResolverFunc func(ctx context.Context, claims jwtx.Claims) (Principal, error)

func (f ResolverFunc) ResolvePrincipal(ctx context.Context, claims jwtx.Claims) (Principal, error) {
	return f(ctx, claims)
}

// AuthnMiddleware verifies the bearer token and re-reads the account it names.
// Claims are never trusted until the signature checks out.
func AuthnMiddleware(v jwtx.Verifier, resolver PrincipalResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				ErrMissingCredentials().Write(w)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				kind := jwtx.KindOf(err)
				log.Warn("jwt verify failed", "kind", kind, "err", err)
				ErrInvalidToken(string(kind)).Write(w)
				return
			}

			p, err := resolver.ResolvePrincipal(ctx, claims)
			if err != nil {
				var herr *Error
				if errors.As(err, &herr) {
					log.Warn("principal rejected",
						"account_id", claims.AccountID,
						"code", herr.Code,
					)
					herr.Write(w)
					return
				}
				log.Error("principal lookup failed", "account_id", claims.AccountID, "err", err)
				ErrInternal().Write(w)
				return
			}

			ctx = context.WithValue(ctx, ctxKeyClaims, claims)
			ctx = context.WithValue(ctx, ctxKeyToken, raw)
			ctx = WithPrincipal(ctx, p)
			ctx = slogx.WithContext(ctx, log.With("account_id", p.ID, "role", p.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
