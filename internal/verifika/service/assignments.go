package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/slogx"
)

const defaultCurrency = "EUR"

type AssignmentService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *AssignmentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns the assignments visible to actor. A tecnico or cliente filter
// outside the actor's own scope yields an empty page.
func (s *AssignmentService) List(ctx context.Context, actor Actor, f store.AssignmentFilter) ([]domain.Assignment, domain.Pagination, error) {
	sc, err := scopeFor(ctx, s.Store, actor)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	if !sc.allows(orDefault(f.TechnicianID, sc.TechnicianID), orDefault(f.ClientID, sc.ClientID)) {
		return []domain.Assignment{}, domain.NewPagination(f.Page, 0), nil
	}
	if sc.TechnicianID != 0 {
		f.TechnicianID = sc.TechnicianID
	}
	if sc.ClientID != 0 {
		f.ClientID = sc.ClientID
	}
	items, total, err := s.Store.Assignments().ListAssignments(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(f.Page, total), nil
}

func orDefault(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}

func (s *AssignmentService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.Store.Assignments().AssignmentStats(ctx)
}

// Get returns assignment id when actor may see it.
func (s *AssignmentService) Get(ctx context.Context, actor Actor, id int64) (domain.Assignment, error) {
	sc, err := scopeFor(ctx, s.Store, actor)
	if err != nil {
		return domain.Assignment{}, err
	}
	a, err := s.Store.Assignments().GetAssignmentByID(ctx, id)
	if err != nil {
		return domain.Assignment{}, fromStore(err)
	}
	if !sc.allows(a.TechnicianID, a.ClientID) {
		return domain.Assignment{}, ErrForbidden
	}
	return a, nil
}

type AssignmentInput struct {
	TechnicianID         *int64       `json:"tecnico_id"`
	ClientID             *int64       `json:"cliente_id"`
	ProjectName          *string      `json:"proyecto_nombre"`
	Description          *string      `json:"descripcion"`
	StartDate            *domain.Date `json:"fecha_inicio"`
	EstimatedEndDate     *domain.Date `json:"fecha_fin_estimada"`
	AgreedRate           *float64     `json:"tarifa_acordada"`
	Currency             *string      `json:"moneda"`
	EstimatedHours       *int         `json:"horas_estimadas"`
	RequiredCompetencies []int64      `json:"competencias_requeridas"`
	Notes                *string      `json:"observaciones"`
}

func (in AssignmentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.TechnicianID, validation.Min(int64(1))),
		validation.Field(&in.ClientID, validation.Min(int64(1))),
		validation.Field(&in.ProjectName, validation.Length(1, 200)),
		validation.Field(&in.Description, validation.Length(0, 5000)),
		validation.Field(&in.AgreedRate, validation.Min(0.0)),
		validation.Field(&in.Currency, currencyRules...),
		validation.Field(&in.EstimatedHours, validation.Min(1)),
		validation.Field(&in.RequiredCompetencies, validation.By(positiveIDs)),
	)
}

func positiveIDs(value interface{}) error {
	ids, _ := value.([]int64)
	for _, id := range ids {
		if id < 1 {
			return errors.New("identificador no válido")
		}
	}
	return nil
}

func (in AssignmentInput) apply(a *domain.Assignment) {
	if in.TechnicianID != nil {
		a.TechnicianID = *in.TechnicianID
	}
	if in.ClientID != nil {
		a.ClientID = *in.ClientID
	}
	if in.ProjectName != nil {
		a.ProjectName = *in.ProjectName
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.StartDate != nil {
		a.StartDate = *in.StartDate
	}
	if in.EstimatedEndDate != nil {
		a.EstimatedEndDate = in.EstimatedEndDate
	}
	if in.AgreedRate != nil {
		a.AgreedRate = in.AgreedRate
	}
	if in.Currency != nil {
		a.Currency = *in.Currency
	}
	if in.EstimatedHours != nil {
		a.EstimatedHours = in.EstimatedHours
	}
	if in.RequiredCompetencies != nil {
		a.RequiredCompetencies = in.RequiredCompetencies
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
}

// checkParties verifies the technician and client an assignment points at.
func checkParties(ctx context.Context, tx store.Tx, a domain.Assignment) error {
	t, err := tx.Technicians().GetTechnicianByID(ctx, a.TechnicianID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalidField("tecnico_id", "técnico no encontrado")
		}
		return err
	}
	if t.AccountStatus != domain.StatusActive {
		return businessRule("El técnico no está activo")
	}
	if _, err := tx.Clients().GetClientByID(ctx, a.ClientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalidField("cliente_id", "cliente no encontrado")
		}
		return err
	}
	if a.EstimatedEndDate != nil && a.EstimatedEndDate.Before(a.StartDate) {
		return invalidField("fecha_fin_estimada", "debe ser posterior a fecha_inicio")
	}
	return nil
}

func (s *AssignmentService) Create(ctx context.Context, actor Actor, in AssignmentInput) (domain.Assignment, error) {
	if !actor.Role.CanManageAssignments() {
		return domain.Assignment{}, ErrForbidden
	}
	if err := validate(in); err != nil {
		return domain.Assignment{}, err
	}
	switch {
	case in.TechnicianID == nil:
		return domain.Assignment{}, invalidField("tecnico_id", "cannot be blank")
	case in.ClientID == nil:
		return domain.Assignment{}, invalidField("cliente_id", "cannot be blank")
	case in.StartDate == nil || in.StartDate.IsZero():
		return domain.Assignment{}, invalidField("fecha_inicio", "cannot be blank")
	}

	a := domain.Assignment{
		Status:    domain.AssignmentActive,
		Currency:  defaultCurrency,
		CreatedBy: actor.AccountID,
	}
	in.apply(&a)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := checkParties(ctx, tx, a); err != nil {
			return err
		}
		return tx.Assignments().CreateAssignment(ctx, &a)
	})
	if err != nil {
		return domain.Assignment{}, fromStore(err)
	}
	slogx.FromContext(ctx).Info("assignment created",
		slog.Int64("assignment_id", a.ID),
		slog.Int64("technician_id", a.TechnicianID),
		slog.Int64("client_id", a.ClientID),
	)
	return s.Get(ctx, actor, a.ID)
}

func (s *AssignmentService) Update(ctx context.Context, actor Actor, id int64, in AssignmentInput) (domain.Assignment, error) {
	if err := validate(in); err != nil {
		return domain.Assignment{}, err
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		a, err := tx.Assignments().GetAssignmentByID(ctx, id)
		if err != nil {
			return err
		}
		if !a.Status.Open() {
			return businessRule("La asignación está cerrada")
		}
		in.apply(&a)
		if err := checkParties(ctx, tx, a); err != nil {
			return err
		}
		return tx.Assignments().UpdateAssignment(ctx, a)
	})
	if err != nil {
		return domain.Assignment{}, fromStore(err)
	}
	return s.Get(ctx, actor, id)
}

type AssignmentStatusInput struct {
	Status domain.AssignmentStatus `json:"estado"`
}

func (in AssignmentStatusInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Status, validation.Required, oneOf[domain.AssignmentStatus]()),
	)
}

// SetStatus applies a lifecycle move. Finishing stamps today's date as the
// actual end.
func (s *AssignmentService) SetStatus(ctx context.Context, actor Actor, id int64, in AssignmentStatusInput) (domain.Assignment, error) {
	if err := validate(in); err != nil {
		return domain.Assignment{}, err
	}
	a, err := s.Store.Assignments().GetAssignmentByID(ctx, id)
	if err != nil {
		return domain.Assignment{}, fromStore(err)
	}
	if !a.Status.CanTransition(in.Status) {
		return domain.Assignment{}, badTransition(fmt.Sprintf("No se puede pasar de %s a %s", a.Status, in.Status))
	}
	var end *domain.Date
	if in.Status == domain.AssignmentFinished {
		y, m, d := s.now().Date()
		today := domain.NewDate(y, m, d)
		end = &today
	}
	if err := s.Store.Assignments().SetAssignmentStatus(ctx, id, in.Status, end); err != nil {
		return domain.Assignment{}, fromStore(err)
	}
	slogx.FromContext(ctx).Info("assignment status changed",
		slog.Int64("assignment_id", id),
		slog.String("from", string(a.Status)),
		slog.String("to", string(in.Status)),
	)
	return s.Get(ctx, actor, id)
}
