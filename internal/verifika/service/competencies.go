package service

import (
	"context"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/slogx"
)

type CompetencyService struct {
	Store store.Store
}

func (s *CompetencyService) List(ctx context.Context, f store.CompetencyFilter) ([]domain.Competency, domain.Pagination, error) {
	items, total, err := s.Store.Competencies().ListCompetencies(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(f.Page, total), nil
}

func (s *CompetencyService) Categories(ctx context.Context) ([]string, error) {
	return s.Store.Competencies().ListCategories(ctx)
}

func (s *CompetencyService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.Store.Competencies().CompetencyStats(ctx)
}

// Get returns competency id. Actors who manage the catalogue also see the
// technicians holding it.
func (s *CompetencyService) Get(ctx context.Context, actor Actor, id int64) (domain.Competency, error) {
	c, err := s.Store.Competencies().GetCompetencyByID(ctx, id)
	if err != nil {
		return domain.Competency{}, fromStore(err)
	}
	if actor.Role.CanManageCompetencies() {
		c.Holders, err = s.Store.Competencies().ListCompetencyHolders(ctx, id)
		if err != nil {
			return domain.Competency{}, err
		}
	}
	return c, nil
}

const (
	DefaultDemandLimit = 10
	MaxDemandLimit     = 50
)

// MostDemanded ranks active competencies by how many technicians hold them.
// A limit outside 1..MaxDemandLimit falls back to the default or the cap.
func (s *CompetencyService) MostDemanded(ctx context.Context, limit int) ([]domain.Competency, error) {
	switch {
	case limit < 1:
		limit = DefaultDemandLimit
	case limit > MaxDemandLimit:
		limit = MaxDemandLimit
	}
	return s.Store.Competencies().MostDemandedCompetencies(ctx, limit)
}

// Holders lists the technicians holding competency id.
func (s *CompetencyService) Holders(ctx context.Context, id int64) ([]domain.CompetencyHolder, error) {
	if _, err := s.Store.Competencies().GetCompetencyByID(ctx, id); err != nil {
		return nil, fromStore(err)
	}
	holders, err := s.Store.Competencies().ListCompetencyHolders(ctx, id)
	if err != nil {
		return nil, err
	}
	if holders == nil {
		holders = []domain.CompetencyHolder{}
	}
	return holders, nil
}

type CompetencyInput struct {
	Name                  *string            `json:"nombre"`
	Description           *string            `json:"descripcion"`
	Category              *string            `json:"categoria"`
	RequiredLevel         *domain.SkillLevel `json:"nivel_requerido"`
	CertificationRequired *bool              `json:"certificacion_requerida"`
}

func (in CompetencyInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&in.Description, validation.Length(0, 2000)),
		validation.Field(&in.Category, validation.Length(1, 50)),
		validation.Field(&in.RequiredLevel, oneOf[domain.SkillLevel]()),
	)
}

func (in CompetencyInput) apply(c *domain.Competency) {
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Category != nil {
		c.Category = *in.Category
	}
	if in.RequiredLevel != nil {
		c.RequiredLevel = *in.RequiredLevel
	}
	if in.CertificationRequired != nil {
		c.CertificationRequired = *in.CertificationRequired
	}
}

func (s *CompetencyService) Create(ctx context.Context, in CompetencyInput) (domain.Competency, error) {
	if err := validate(in); err != nil {
		return domain.Competency{}, err
	}
	if in.Name == nil {
		return domain.Competency{}, invalidField("nombre", "cannot be blank")
	}
	c := domain.Competency{Active: true}
	in.apply(&c)
	if err := s.Store.Competencies().CreateCompetency(ctx, &c); err != nil {
		return domain.Competency{}, fromStore(err)
	}
	slogx.FromContext(ctx).Info("competency created", slog.Int64("competency_id", c.ID))
	return s.Get(ctx, Actor{}, c.ID)
}

func (s *CompetencyService) Update(ctx context.Context, id int64, in CompetencyInput) (domain.Competency, error) {
	if err := validate(in); err != nil {
		return domain.Competency{}, err
	}
	c, err := s.Store.Competencies().GetCompetencyByID(ctx, id)
	if err != nil {
		return domain.Competency{}, fromStore(err)
	}
	in.apply(&c)
	if err := s.Store.Competencies().UpdateCompetency(ctx, c); err != nil {
		return domain.Competency{}, fromStore(err)
	}
	return s.Get(ctx, Actor{}, id)
}

type ActiveInput struct {
	Active *bool `json:"activo"`
}

func (in ActiveInput) Validate() error {
	return validation.ValidateStruct(&in, validation.Field(&in.Active, validation.NotNil))
}

func (s *CompetencyService) SetActive(ctx context.Context, id int64, in ActiveInput) (domain.Competency, error) {
	if err := validate(in); err != nil {
		return domain.Competency{}, err
	}
	if err := s.Store.Competencies().SetCompetencyActive(ctx, id, *in.Active); err != nil {
		return domain.Competency{}, fromStore(err)
	}
	return s.Get(ctx, Actor{}, id)
}

// Delete removes a competency nobody holds.
func (s *CompetencyService) Delete(ctx context.Context, id int64) error {
	c, err := s.Store.Competencies().GetCompetencyByID(ctx, id)
	if err != nil {
		return fromStore(err)
	}
	if c.TechnicianCount > 0 {
		return businessRule("No se puede eliminar una competencia asignada a técnicos")
	}
	if err := s.Store.Competencies().DeleteCompetency(ctx, id); err != nil {
		return fromStore(err)
	}
	slogx.FromContext(ctx).Info("competency deleted", slog.Int64("competency_id", id))
	return nil
}
