package http

import (
	"net/http"
	"strconv"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/httpx"
)

type CompetencyHandler struct {
	Competencies *service.CompetencyService
	errs         errorWriter
}

// List godoc
//
//	@Summary		List competencies
//	@Tags			Competencies
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query	int	false	"Page number, from 1"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Router			/api/competencias [get].
func (h *CompetencyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.CompetencyFilter{
		Category:      q.str("categoria"),
		RequiredLevel: domain.SkillLevel(q.str("nivel_requerido")),
		Active:        q.boolean("activo"),
		Search:        q.str("search"),
		Page:          pageFrom(r),
	}
	if !q.ok(w) {
		return
	}
	items, page, err := h.Competencies.List(r.Context(), f)
	if err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	writeList(w, "competencias", items, page)
}

// Categories godoc
//
//	@Summary		List competency categories
//	@Tags			Competencies
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Router			/api/competencias/categories [get].
func (h *CompetencyHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Competencies.Categories(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	if cats == nil {
		cats = []string{}
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"categorias": cats}, "")
}

// Stats godoc
//
//	@Summary		Competency statistics
//	@Description	Roles: admin.
//	@Tags			Competencies
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/competencias/stats [get].
func (h *CompetencyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Competencies.Stats(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	httpx.WriteData(w, http.StatusOK, stats, "")
}

// Get returns one competency. Admins also see who holds it.
//
//	@Summary		Get a competency
//	@Tags			Competencies
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/competencias/{id} [get].
func (h *CompetencyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Competencies.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	httpx.WriteData(w, http.StatusOK, c, "")
}

// MostDemanded ranks competencies by holders. limit defaults to 10.
//
//	@Summary		Rank competencies by holders
//	@Description	Roles: admin, cliente.
//	@Tags			Competencies
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query	int	false	"Maximum entries, 10 when unset"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/competencias/most-demanded [get].
func (h *CompetencyHandler) MostDemanded(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = service.DefaultDemandLimit
	}
	items, err := h.Competencies.MostDemanded(r.Context(), limit)
	if err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"competencias": items}, "")
}

// Holders godoc
//
//	@Summary		List the technicians holding a competency
//	@Description	Roles: admin, cliente.
//	@Tags			Competencies
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/competencias/{id}/tecnicos [get].
func (h *CompetencyHandler) Holders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	holders, err := h.Competencies.Holders(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"tecnicos": holders}, "")
}

// Create godoc
//
//	@Summary		Create a competency
//	@Description	Roles: admin.
//	@Tags			Competencies
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	service.CompetencyInput	true	"Request body"
//	@Success		201	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/competencias [post].
func (h *CompetencyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CompetencyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Competencies.Create(r.Context(), in)
	if err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	httpx.WriteData(w, http.StatusCreated, c, "Competencia creada")
}

// Update godoc
//
//	@Summary		Update a competency
//	@Description	Roles: admin.
//	@Tags			Competencies
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.CompetencyInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/competencias/{id} [put].
func (h *CompetencyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.CompetencyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Competencies.Update(r.Context(), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	httpx.WriteData(w, http.StatusOK, c, "Competencia actualizada")
}

// SetActive godoc
//
//	@Summary		Activate or deactivate a competency
//	@Description	Roles: admin.
//	@Tags			Competencies
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.ActiveInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/competencias/{id}/status [patch].
func (h *CompetencyHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.ActiveInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Competencies.SetActive(r.Context(), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	httpx.WriteData(w, http.StatusOK, c, "Estado actualizado")
}

// Delete godoc
//
//	@Summary		Delete an unused competency
//	@Description	Roles: admin.
//	@Tags			Competencies
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/competencias/{id} [delete].
func (h *CompetencyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Competencies.Delete(r.Context(), id); err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	httpx.WriteData(w, http.StatusOK, nil, "Competencia eliminada")
}
