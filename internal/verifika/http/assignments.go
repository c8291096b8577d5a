package http

import (
	"net/http"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/httpx"
)

type AssignmentHandler struct {
	Assignments *service.AssignmentService
	errs        errorWriter
}

// List is scoped by role: tecnicos and clientes only see their own.
//
//	@Summary		List assignments
//	@Tags			Assignments
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query	int	false	"Page number, from 1"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Router			/api/asignaciones [get].
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.AssignmentFilter{
		TechnicianID: q.id("tecnico_id"),
		ClientID:     q.id("cliente_id"),
		Status:       domain.AssignmentStatus(q.str("estado")),
		Page:         pageFrom(r),
	}
	if !q.ok(w) {
		return
	}
	items, page, err := h.Assignments.List(r.Context(), actorFrom(r), f)
	if err != nil {
		h.errs.write(w, r, err, "Asignación")
		return
	}
	writeList(w, "asignaciones", items, page)
}

// Stats godoc
//
//	@Summary		Assignment statistics
//	@Description	Roles: admin.
//	@Tags			Assignments
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/asignaciones/stats [get].
func (h *AssignmentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Assignments.Stats(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "Asignación")
		return
	}
	httpx.WriteData(w, http.StatusOK, stats, "")
}

// Get godoc
//
//	@Summary		Get an assignment
//	@Tags			Assignments
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/asignaciones/{id} [get].
func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.Assignments.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.errs.write(w, r, err, "Asignación")
		return
	}
	httpx.WriteData(w, http.StatusOK, a, "")
}

// Create godoc
//
//	@Summary		Create an assignment
//	@Description	Roles: admin.
//	@Tags			Assignments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	service.AssignmentInput	true	"Request body"
//	@Success		201	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/asignaciones [post].
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.AssignmentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.Assignments.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.write(w, r, err, "Asignación")
		return
	}
	httpx.WriteData(w, http.StatusCreated, a, "Asignación creada")
}

// Update godoc
//
//	@Summary		Update an assignment
//	@Description	Roles: admin.
//	@Tags			Assignments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.AssignmentInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/asignaciones/{id} [put].
func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.AssignmentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.Assignments.Update(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Asignación")
		return
	}
	httpx.WriteData(w, http.StatusOK, a, "Asignación actualizada")
}

// SetStatus godoc
//
//	@Summary		Move an assignment to another status
//	@Description	Roles: admin.
//	@Tags			Assignments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.AssignmentStatusInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/asignaciones/{id}/status [patch].
func (h *AssignmentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.AssignmentStatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.Assignments.SetStatus(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Asignación")
		return
	}
	httpx.WriteData(w, http.StatusOK, a, "Estado actualizado")
}
