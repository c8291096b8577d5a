package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/pkg/httpx"
	"github.com/bluesystem/verifika/pkg/jwtx"
	"github.com/bluesystem/verifika/pkg/slogx"
)

// errorWriter turns service errors into envelopes. Internal error text is
// only exposed when debug is set.
type errorWriter struct {
	debug bool
}

func (ew errorWriter) write(w http.ResponseWriter, r *http.Request, err error, resource string) {
	ew.translate(r.Context(), err, resource).Write(w)
}

func (ew errorWriter) translate(ctx context.Context, err error, resource string) *httpx.Error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return httpx.NewError(http.StatusBadRequest, httpx.CodeValidation, "Datos de entrada inválidos").
			WithDetails(verr.Fields)
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		return httpx.ErrNotFound(resource)
	case errors.Is(err, service.ErrForbidden):
		return httpx.ErrForbidden()
	case errors.Is(err, service.ErrInvalidCredentials):
		return httpx.NewError(http.StatusUnauthorized, httpx.CodeInvalidCredentials, "Credenciales inválidas")
	case errors.Is(err, service.ErrInvalidToken):
		return httpx.NewError(http.StatusBadRequest, httpx.CodeInvalidActionToken, "Token inválido o expirado")
	case errors.Is(err, service.ErrSpam):
		return httpx.NewError(http.StatusBadRequest, httpx.CodeValidation, "Solicitud inválida")
	case errors.Is(err, service.ErrAccountUnavailable):
		return httpx.ErrAccountUnavailable()
	case errors.Is(err, service.ErrAccountInactive):
		return httpx.ErrAccountInactive()
	case errors.Is(err, service.ErrEmailTaken):
		return httpx.NewError(http.StatusConflict, httpx.CodeDuplicate, "El email ya está registrado")
	case errors.Is(err, service.ErrDuplicate):
		return httpx.NewError(http.StatusConflict, httpx.CodeDuplicate, resource+" duplicado")
	case errors.Is(err, service.ErrRegistrationClosed):
		return httpx.NewError(http.StatusForbidden, httpx.CodeForbidden, "Registro público deshabilitado")
	case errors.Is(err, service.ErrCannotDeleteSelf):
		return httpx.NewError(http.StatusUnprocessableEntity, httpx.CodeBusinessRule, "No puede eliminar su propia cuenta")
	case errors.Is(err, service.ErrLastAdmin):
		return httpx.NewError(http.StatusUnprocessableEntity, httpx.CodeBusinessRule, "Debe existir al menos un administrador activo")
	case errors.Is(err, service.ErrBusinessRule), errors.Is(err, service.ErrInvalidTransition):
		return httpx.NewError(http.StatusUnprocessableEntity, httpx.CodeBusinessRule, service.Reason(err))
	case errors.Is(err, service.ErrBootstrapDisabled):
		return httpx.ErrNotFound("Bootstrap")
	case errors.Is(err, service.ErrBootstrapUnauthorized):
		return httpx.NewError(http.StatusUnauthorized, httpx.CodeInvalidCredentials, "Token de bootstrap inválido")
	case errors.Is(err, service.ErrBootstrapAlready):
		return httpx.NewError(http.StatusConflict, httpx.CodeDuplicate, "El sistema ya fue inicializado")
	}

	slogx.FromContext(ctx).Error("request failed", "err", err)
	herr := httpx.ErrInternal()
	if ew.debug {
		herr = herr.WithDetails(err.Error())
	}
	return herr
}

// principalResolver re-reads the account named by a verified token.
func principalResolver(auth *service.AuthService) httpx.PrincipalResolver {
	return httpx.ResolverFunc(func(ctx context.Context, claims jwtx.Claims) (httpx.Principal, error) {
		acct, err := auth.Authenticate(ctx, claims.AccountID)
		switch {
		case errors.Is(err, service.ErrAccountUnavailable):
			return httpx.Principal{}, httpx.ErrAccountUnavailable()
		case errors.Is(err, service.ErrAccountInactive):
			return httpx.Principal{}, httpx.ErrAccountInactive()
		case err != nil:
			return httpx.Principal{}, err
		}
		return httpx.Principal{
			ID:     acct.ID,
			Email:  acct.Email,
			Role:   string(acct.Role),
			Status: string(acct.Status),
		}, nil
	})
}
