package http

import (
	"net/http"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/httpx"
)

type ValidationHandler struct {
	Validations *service.ValidationService
	errs        errorWriter
}

// List godoc
//
//	@Summary		List validations
//	@Description	Roles: admin, validador.
//	@Tags			Validations
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query	int	false	"Page number, from 1"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/validaciones [get].
func (h *ValidationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.ValidationFilter{
		ActivityID:  q.id("actividad_id"),
		ValidatorID: q.id("validador_id"),
		Status:      domain.ValidationStatus(q.str("estado")),
		Page:        pageFrom(r),
	}
	if !q.ok(w) {
		return
	}
	items, page, err := h.Validations.List(r.Context(), f)
	if err != nil {
		h.errs.write(w, r, err, "Validación")
		return
	}
	writeList(w, "validaciones", items, page)
}

// Get godoc
//
//	@Summary		Get a validation
//	@Description	Roles: admin, validador.
//	@Tags			Validations
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/validaciones/{id} [get].
func (h *ValidationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.Validations.Get(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err, "Validación")
		return
	}
	httpx.WriteData(w, http.StatusOK, v, "")
}

// Create records a review of a submitted activity and moves the activity
// along with it.
//
//	@Summary		Validate an activity
//	@Description	Roles: admin, validador.
//	@Tags			Validations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	service.ValidationInput	true	"Request body"
//	@Success		201	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/validaciones [post].
func (h *ValidationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ValidationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	v, err := h.Validations.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.write(w, r, err, "Validación")
		return
	}
	httpx.WriteData(w, http.StatusCreated, v, "Validación registrada")
}

// Update godoc
//
//	@Summary		Update a validation
//	@Description	Roles: admin, validador.
//	@Tags			Validations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.UpdateValidationInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/validaciones/{id} [put].
func (h *ValidationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.UpdateValidationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	v, err := h.Validations.Update(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Validación")
		return
	}
	httpx.WriteData(w, http.StatusOK, v, "Validación actualizada")
}

// SetStatus godoc
//
//	@Summary		Change a validation's status
//	@Description	Roles: admin, validador.
//	@Tags			Validations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.ValidationStatusInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/validaciones/{id}/status [patch].
func (h *ValidationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.ValidationStatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	v, err := h.Validations.SetStatus(r.Context(), actorFrom(r), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Validación")
		return
	}
	httpx.WriteData(w, http.StatusOK, v, "Estado actualizado")
}
