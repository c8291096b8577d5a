package httpx

import (
	"context"

	"github.com/bluesystem/verifika/pkg/jwtx"
)

type ctxKey string

const (
	ctxKeyPrincipal ctxKey = "principal"
	ctxKeyClaims    ctxKey = "claims"
	ctxKeyToken     ctxKey = "token"
)

// Principal is the caller as re-read from the credential store after the
// bearer token verified.
type Principal struct {
	ID     int64
	Email  string
	Role   string
	Status string
}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}

// ClaimsFrom returns the verified token claims, if any.
func ClaimsFrom(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(jwtx.Claims)
	return c, ok
}

// TokenFrom returns the raw bearer token the request authenticated with.
func TokenFrom(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(ctxKeyToken).(string)
	return t, ok && t != ""
}
