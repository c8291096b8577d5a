package http

import (
	"net/http"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/httpx"
)

type ClientHandler struct {
	Clients *service.ClientService
	errs    errorWriter
}

// ownerOnly restricts a cliente to its own company.
func (h *ClientHandler) ownerOnly(w http.ResponseWriter, r *http.Request, id int64) bool {
	actor := actorFrom(r)
	if actor.Role != domain.RoleClient {
		return true
	}
	if err := h.Clients.CheckOwner(r.Context(), id, actor.AccountID); err != nil {
		h.errs.write(w, r, err, "Cliente")
		return false
	}
	return true
}

// List godoc
//
//	@Summary		List clients
//	@Description	Roles: admin.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query	int	false	"Page number, from 1"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/clientes [get].
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.ClientFilter{
		Sector: q.str("sector_actividad"),
		City:   q.str("ciudad"),
		Status: domain.Status(q.str("estado")),
		Search: q.str("search"),
		Page:   pageFrom(r),
	}
	if !q.ok(w) {
		return
	}
	items, page, err := h.Clients.List(r.Context(), f)
	if err != nil {
		h.errs.write(w, r, err, "Cliente")
		return
	}
	writeList(w, "clientes", items, page)
}

// Stats godoc
//
//	@Summary		Client statistics
//	@Description	Roles: admin.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/clientes/stats [get].
func (h *ClientHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Clients.Stats(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "Cliente")
		return
	}
	httpx.WriteData(w, http.StatusOK, stats, "")
}

// Get godoc
//
//	@Summary		Get a client
//	@Description	Roles: admin, cliente.
//	@Tags			Clients
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/clientes/{id} [get].
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.ownerOnly(w, r, id) {
		return
	}
	c, err := h.Clients.Get(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err, "Cliente")
		return
	}
	httpx.WriteData(w, http.StatusOK, c, "")
}

type createdClientResponse struct {
	Client          domain.Client `json:"cliente"`
	InvitationToken string        `json:"invitation_token,omitempty"`
}

// Create godoc
//
//	@Summary		Create a client
//	@Description	Roles: admin.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	service.CreateClientInput	true	"Request body"
//	@Success		201	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/clientes [post].
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateClientInput
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Clients.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.write(w, r, err, "Cliente")
		return
	}
	httpx.NoCache(w)
	httpx.WriteData(w, http.StatusCreated, createdClientResponse{
		Client:          out.Client,
		InvitationToken: out.Invitation,
	}, "Cliente creado")
}

// Update godoc
//
//	@Summary		Update a client
//	@Description	Roles: admin, cliente.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.UpdateClientInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/clientes/{id} [put].
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.ownerOnly(w, r, id) {
		return
	}
	var in service.UpdateClientInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Clients.Update(r.Context(), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Cliente")
		return
	}
	httpx.WriteData(w, http.StatusOK, c, "Cliente actualizado")
}

// SetStatus godoc
//
//	@Summary		Change a client's account status
//	@Description	Roles: admin.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.StatusInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/clientes/{id}/status [patch].
func (h *ClientHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.StatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Clients.SetStatus(r.Context(), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Cliente")
		return
	}
	httpx.WriteData(w, http.StatusOK, c, "Estado actualizado")
}
