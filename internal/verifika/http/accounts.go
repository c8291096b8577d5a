package http

import (
	"net/http"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/httpx"
)

// AccountHandler serves the admin user management endpoints.
type AccountHandler struct {
	Accounts *service.AccountService
	errs     errorWriter
}

// List godoc
//
//	@Summary		List accounts
//	@Description	Roles: admin.
//	@Tags			Accounts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query	int	false	"Page number, from 1"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/auth/users [get].
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.AccountFilter{
		Role:   domain.Role(q.str("rol")),
		Status: domain.Status(q.str("estado")),
		Search: q.str("search"),
		Page:   pageFrom(r),
	}
	if !q.ok(w) {
		return
	}
	items, page, err := h.Accounts.List(r.Context(), f)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	writeList(w, "usuarios", items, page)
}

type createdAccountResponse struct {
	User            domain.Account `json:"user"`
	InvitationToken string         `json:"invitation_token,omitempty"`
}

// Create godoc
//
//	@Summary		Create an account
//	@Description	Roles: admin.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	service.CreateAccountInput	true	"Request body"
//	@Success		201	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/auth/users [post].
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateAccountInput
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Accounts.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.NoCache(w)
	httpx.WriteData(w, http.StatusCreated, createdAccountResponse{
		User:            out.Account,
		InvitationToken: out.Invitation,
	}, "Usuario creado")
}

// Get godoc
//
//	@Summary		Get an account
//	@Description	Roles: admin.
//	@Tags			Accounts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/auth/users/{id} [get].
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	acct, err := h.Accounts.Get(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusOK, userResponse{User: acct}, "")
}

// Update godoc
//
//	@Summary		Update an account
//	@Description	Roles: admin.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.UpdateAccountInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/auth/users/{id} [put].
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.UpdateAccountInput
	if !decodeJSON(w, r, &in) {
		return
	}
	acct, err := h.Accounts.Update(r.Context(), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusOK, userResponse{User: acct}, "Usuario actualizado")
}

// Delete godoc
//
//	@Summary		Soft delete an account
//	@Description	Roles: admin.
//	@Tags			Accounts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/auth/users/{id} [delete].
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Accounts.Delete(r.Context(), actorFrom(r), id); err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusOK, nil, "Usuario eliminado")
}

// Stats godoc
//
//	@Summary		Account statistics
//	@Description	Roles: admin.
//	@Tags			Accounts
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/auth/stats [get].
func (h *AccountHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Accounts.Stats(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "Usuario")
		return
	}
	httpx.WriteData(w, http.StatusOK, stats, "")
}
