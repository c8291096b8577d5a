package http

import (
	"net/http"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/httpx"
)

type ActivityHandler struct {
	Activities *service.ActivityService
	errs       errorWriter
}

// List godoc
//
//	@Summary		List activities
//	@Tags			Activities
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query	int	false	"Page number, from 1"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Router			/api/actividades [get].
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.ActivityFilter{
		AssignmentID: q.id("asignacion_id"),
		Status:       domain.ActivityStatus(q.str("estado")),
		From:         q.date("fecha_desde"),
		To:           q.date("fecha_hasta"),
		Page:         pageFrom(r),
	}
	if !q.ok(w) {
		return
	}
	items, page, err := h.Activities.List(r.Context(), actorFrom(r), f)
	if err != nil {
		h.errs.write(w, r, err, "Actividad")
		return
	}
	writeList(w, "actividades", items, page)
}

// Get godoc
//
//	@Summary		Get an activity
//	@Tags			Activities
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/actividades/{id} [get].
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.Activities.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.errs.write(w, r, err, "Actividad")
		return
	}
	httpx.WriteData(w, http.StatusOK, a, "")
}

// History godoc
//
//	@Summary		Get an activity's validation history
//	@Tags			Activities
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/actividades/{id}/historial [get].
func (h *ActivityHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.Activities.History(r.Context(), actorFrom(r), id)
	if err != nil {
		h.errs.write(w, r, err, "Actividad")
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"historial": entries}, "")
}

// Create godoc
//
//	@Summary		Log an activity
//	@Description	Roles: tecnico.
//	@Tags			Activities
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	service.ActivityInput	true	"Request body"
//	@Success		201	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/actividades [post].
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ActivityInput
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.Activities.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.write(w, r, err, "Actividad")
		return
	}
	httpx.WriteData(w, http.StatusCreated, a, "Actividad creada")
}

// Update godoc
//
//	@Summary		Update a draft activity
//	@Description	Roles: tecnico.
//	@Tags			Activities
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.ActivityInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/actividades/{id} [put].
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.ActivityInput
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.Activities.Update(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Actividad")
		return
	}
	httpx.WriteData(w, http.StatusOK, a, "Actividad actualizada")
}

// SetStatus godoc
//
//	@Summary		Submit or withdraw an activity
//	@Description	Roles: tecnico.
//	@Tags			Activities
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.ActivityStatusInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/actividades/{id}/status [patch].
func (h *ActivityHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.ActivityStatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	a, err := h.Activities.SetStatus(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Actividad")
		return
	}
	httpx.WriteData(w, http.StatusOK, a, "Estado actualizado")
}
