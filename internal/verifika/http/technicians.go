package http

import (
	"net/http"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/httpx"
)

type TechnicianHandler struct {
	Technicians *service.TechnicianService
	errs        errorWriter
}

// selfOnly lets a tecnico through only for its own profile. The check runs
// before the profile is loaded so that a 403 does not reveal whether id
// exists. Other roles pass; the route gate already decided for them.
func (h *TechnicianHandler) selfOnly(w http.ResponseWriter, r *http.Request, id int64) bool {
	actor := actorFrom(r)
	if actor.Role != domain.RoleTechnician {
		return true
	}
	if err := h.Technicians.CheckOwner(r.Context(), id, actor.AccountID); err != nil {
		h.errs.write(w, r, err, "Técnico")
		return false
	}
	return true
}

// List godoc
//
//	@Summary		List technicians
//	@Description	Roles: admin, cliente.
//	@Tags			Technicians
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page	query	int	false	"Page number, from 1"
//	@Param			limit	query	int	false	"Page size"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/tecnicos [get].
func (h *TechnicianHandler) List(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.TechnicianFilter{
		Availability:    domain.Availability(q.str("disponibilidad")),
		ExperienceLevel: domain.ExperienceLevel(q.str("nivel_experiencia")),
		City:            q.str("ciudad"),
		CompetencyID:    q.id("competencia_id"),
		Search:          q.str("search"),
		Page:            pageFrom(r),
	}
	if !q.ok(w) {
		return
	}
	items, page, err := h.Technicians.List(r.Context(), f)
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	writeList(w, "tecnicos", items, page)
}

// Available lists technicians that can take an assignment now. competencias
// is a CSV of competency ids that must all be held.
//
//	@Summary		List available technicians
//	@Description	Roles: admin, cliente.
//	@Tags			Technicians
//	@Produce		json
//	@Security		BearerAuth
//	@Param			competencias	query	string	false	"Comma separated competency ids"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/tecnicos/available [get].
func (h *TechnicianHandler) Available(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	ids := q.ids("competencias")
	if !q.ok(w) {
		return
	}
	items, err := h.Technicians.Available(r.Context(), ids)
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	if items == nil {
		items = []domain.Technician{}
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{
		"tecnicos": items,
		"total":    len(items),
	}, "")
}

// Stats godoc
//
//	@Summary		Technician statistics
//	@Description	Roles: admin.
//	@Tags			Technicians
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/tecnicos/stats [get].
func (h *TechnicianHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Technicians.Stats(r.Context())
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	httpx.WriteData(w, http.StatusOK, stats, "")
}

// Get godoc
//
//	@Summary		Get a technician
//	@Description	Roles: admin, tecnico, cliente.
//	@Tags			Technicians
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/tecnicos/{id} [get].
func (h *TechnicianHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.selfOnly(w, r, id) {
		return
	}
	t, err := h.Technicians.Get(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	httpx.WriteData(w, http.StatusOK, t, "")
}

type createdTechnicianResponse struct {
	Technician      domain.Technician `json:"tecnico"`
	InvitationToken string            `json:"invitation_token,omitempty"`
}

// Create godoc
//
//	@Summary		Create a technician
//	@Description	Roles: admin.
//	@Tags			Technicians
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body	service.CreateTechnicianInput	true	"Request body"
//	@Success		201	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Router			/api/tecnicos [post].
func (h *TechnicianHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTechnicianInput
	if !decodeJSON(w, r, &in) {
		return
	}
	out, err := h.Technicians.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	httpx.NoCache(w)
	httpx.WriteData(w, http.StatusCreated, createdTechnicianResponse{
		Technician:      out.Technician,
		InvitationToken: out.Invitation,
	}, "Técnico creado")
}

// Update godoc
//
//	@Summary		Update a technician profile
//	@Description	Roles: admin, tecnico.
//	@Tags			Technicians
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.UpdateTechnicianInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/tecnicos/{id} [put].
func (h *TechnicianHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.selfOnly(w, r, id) {
		return
	}
	var in service.UpdateTechnicianInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.Technicians.Update(r.Context(), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	httpx.WriteData(w, http.StatusOK, t, "Técnico actualizado")
}

// SetStatus godoc
//
//	@Summary		Change a technician's account status
//	@Description	Roles: admin.
//	@Tags			Technicians
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
//	@Router			/api/tecnicos/{id}/status [patch].
func (h *TechnicianHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.StatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.Technicians.SetStatus(r.Context(), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	httpx.WriteData(w, http.StatusOK, t, "Estado actualizado")
}

// SetAvailability godoc
//
//	@Summary		Change a technician's availability
//	@Description	Roles: admin, tecnico.
//	@Tags			Technicians
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.AvailabilityInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/tecnicos/{id}/disponibilidad [patch].
func (h *TechnicianHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.selfOnly(w, r, id) {
		return
	}
	var in service.AvailabilityInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.Technicians.SetAvailability(r.Context(), id, in)
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	httpx.WriteData(w, http.StatusOK, t, "Disponibilidad actualizada")
}

// Competencies godoc
//
//	@Summary		List a technician's competencies
//	@Description	Roles: admin, tecnico, cliente.
//	@Tags			Technicians
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/tecnicos/{id}/competencias [get].
func (h *TechnicianHandler) Competencies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.selfOnly(w, r, id) {
		return
	}
	items, err := h.Technicians.Competencies(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	if items == nil {
		items = []domain.TechnicianCompetency{}
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"competencias": items}, "")
}

// UpsertCompetency godoc
//
//	@Summary		Add or update a technician competency
//	@Description	Roles: admin, tecnico.
//	@Tags			Technicians
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			request	body	service.CompetencyAssignmentInput	true	"Request body"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/tecnicos/{id}/competencias [post].
func (h *TechnicianHandler) UpsertCompetency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.selfOnly(w, r, id) {
		return
	}
	var in service.CompetencyAssignmentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	items, err := h.Technicians.UpsertCompetency(r.Context(), id, actorFrom(r), in)
	if err != nil {
		h.errs.write(w, r, err, "Técnico")
		return
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"competencias": items}, "Competencia asignada")
}

// RemoveCompetency godoc
//
//	@Summary		Remove a technician competency
//	@Description	Roles: admin, tecnico.
//	@Tags			Technicians
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Identifier"
//	@Param			competenciaId	path	int	true	"Identifier"
//	@Success		200	{object}	httpx.Envelope
//	@Failure		400	{object}	httpx.Envelope	"Invalid input"
//	@Failure		401	{object}	httpx.Envelope	"Missing or invalid bearer token"
//	@Failure		403	{object}	httpx.Envelope	"Role not allowed"
//	@Failure		404	{object}	httpx.Envelope	"Not found"
//	@Router			/api/tecnicos/{id}/competencias/{competenciaId} [delete].
func (h *TechnicianHandler) RemoveCompetency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok || !h.selfOnly(w, r, id) {
		return
	}
	competencyID, ok := pathID(w, r, "competenciaId")
	if !ok {
		return
	}
	if err := h.Technicians.RemoveCompetency(r.Context(), id, competencyID); err != nil {
		h.errs.write(w, r, err, "Competencia")
		return
	}
	httpx.WriteData(w, http.StatusOK, nil, "Competencia eliminada")
}
