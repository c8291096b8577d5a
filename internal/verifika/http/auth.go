package http

import (
	"net/http"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/pkg/httpx"
)

type AuthHandler struct {
	Auth      *service.AuthService
	Bootstrap *service.BootstrapService

	errs        errorWriter
	exposeReset bool
}

// sessionResponse is returned by login and change-password. ExpiresIn is in
// seconds.
type sessionResponse struct {
	User      domain.Account `json:"user"`
	Token     string         `json:"token"`
	ExpiresIn int64          `json:"expiresIn"`
}

func newSessionResponse(res service.LoginResult) sessionResponse {
	return sessionResponse{
		User:      res.Account,
		Token:     res.Token,
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
	}
}

type userResponse struct {
	User domain.Account `json:"user"`
}

// meResponse reports whether the presented token is still the account's
// latest session. A false value does not block the request.
type meResponse struct {
	User          domain.Account `json:"user"`
	SessionActive bool           `json:"session_active"`
}

// Login exchanges email and password for a bearer token.
//
//	@Summary		Log in with email and password
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body	service.LoginInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		429	{object}	httpx.Envelope	"Rate limited"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Auth.Login(r.Context(), in)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusOK, newSessionResponse(res), "Login exitoso")
}

// Register godoc
//
//	@Summary		Self-register an account
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body	service.RegisterInput	true	"Request body"
//	@Success		201	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		429	{object}	httpx.Envelope	"Rate limited"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	acct, err := h.Auth.Register(r.Context(), in)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusCreated, userResponse{User: acct},
		"Registro completado, la cuenta queda pendiente de activación")
}

// Activate redeems an invitation and sets the first password.
//
//	@Summary		Redeem an invitation
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body	service.TokenPasswordInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		429	{object}	httpx.Envelope	"Rate limited"
//	@Router			/api/auth/activate [post].
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var in service.TokenPasswordInput
	if !decodeJSON(w, r, &in) {
		return
	}
	acct, err := h.Auth.Activate(r.Context(), in)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusOK, userResponse{User: acct}, "Cuenta activada")
}

// ForgotPassword answers the same way whether or not the email exists.
//
//	@Summary		Request a password reset token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body	service.EmailInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		429	{object}	httpx.Envelope	"Rate limited"
//	@Router			/api/auth/forgot-password [post].
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in service.EmailInput
	if !decodeJSON(w, r, &in) {
		return
	}
	token, err := h.Auth.ForgotPassword(r.Context(), in)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	var data any
	if h.exposeReset && token != "" {
		data = map[string]string{"reset_token": token}
	}
	httpx.WriteData(w, http.StatusOK, data,
		"Si el email existe, recibirás instrucciones para restablecer tu contraseña")
}

// ResetPassword godoc
//
//	@Summary		Reset a password with a reset token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body	service.TokenPasswordInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		429	{object}	httpx.Envelope	"Rate limited"
//	@Router			/api/auth/reset-password [post].
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in service.TokenPasswordInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.Auth.ResetPassword(r.Context(), in); err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusOK, nil, "Contraseña restablecida")
}

// BootstrapAdmin creates the first admin when X-Bootstrap-Token matches.
//
//	@Summary		Create the first administrator
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header	string	true	"Bootstrap token"
//	@Param			request	body	service.RegisterInput	true	"Request body"
//	@Success		201	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		429	{object}	httpx.Envelope	"Rate limited"
//	@Router			/api/auth/bootstrap [post].
func (h *AuthHandler) BootstrapAdmin(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Bootstrap-Token")
	if token == "" && h.Bootstrap.Token != "" {
		httpx.ErrMissingCredentials().Write(w)
		return
	}
	var in service.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	acct, err := h.Bootstrap.Bootstrap(r.Context(), token, in)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.NoCache(w)
	httpx.WriteData(w, http.StatusCreated, userResponse{User: acct}, "Administrador creado")
}

// Logout drops the caller's session. It succeeds even when the cache is
// unreachable.
//
//	@Summary		Close the current session
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Router			/api/auth/logout [post].
//	@Router			/api/auth/logout-all [post].
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Auth.Logout(r.Context(), actorFrom(r).AccountID)
	httpx.WriteData(w, http.StatusOK, nil, "Sesión cerrada")
}

// Me godoc
//
//	@Summary		Get the caller's account
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Router			/api/auth/me [get].
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	acct, err := h.Auth.Me(r.Context(), actorFrom(r).AccountID)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	token, _ := httpx.TokenFrom(r.Context())
	httpx.WriteData(w, http.StatusOK, meResponse{
		User:          acct,
		SessionActive: h.Auth.SessionActive(r.Context(), acct.ID, token),
	}, "")
}

// UpdateMe godoc
//
//	@Summary		Update the caller's profile
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	service.ProfileInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Router			/api/auth/me [put].
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}
	acct, err := h.Auth.UpdateProfile(r.Context(), actorFrom(r).AccountID, in)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusOK, userResponse{User: acct}, "Perfil actualizado")
}

// ChangePassword godoc
//
//	@Summary		Change the caller's password
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	service.ChangePasswordInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Router			/api/auth/change-password [post].
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in service.ChangePasswordInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.Auth.ChangePassword(r.Context(), actorFrom(r).AccountID, in)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusOK, newSessionResponse(res), "Contraseña actualizada")
}
