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

type ActivityService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *ActivityService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ActivityService) List(ctx context.Context, actor Actor, f store.ActivityFilter) ([]domain.Activity, domain.Pagination, error) {
	sc, err := scopeFor(ctx, s.Store, actor)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	if sc.TechnicianID != 0 {
		f.TechnicianID = sc.TechnicianID
	}
	if sc.ClientID != 0 {
		f.ClientID = sc.ClientID
	}
	items, total, err := s.Store.Activities().ListActivities(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(f.Page, total), nil
}

func (s *ActivityService) Get(ctx context.Context, actor Actor, id int64) (domain.Activity, error) {
	sc, err := scopeFor(ctx, s.Store, actor)
	if err != nil {
		return domain.Activity{}, err
	}
	a, err := s.Store.Activities().GetActivityByID(ctx, id)
	if err != nil {
		return domain.Activity{}, fromStore(err)
	}
	if !sc.allows(a.TechnicianID, a.ClientID) {
		return domain.Activity{}, ErrForbidden
	}
	return a, nil
}

// History returns the review trail of an activity the actor may see.
func (s *ActivityService) History(ctx context.Context, actor Actor, id int64) ([]domain.HistoryEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.Store.Activities().ListHistory(ctx, id)
}

type ActivityInput struct {
	AssignmentID    *int64               `json:"asignacion_id"`
	Title           *string              `json:"titulo"`
	Description     *string              `json:"descripcion"`
	Date            *domain.Date         `json:"fecha_actividad"`
	StartTime       *string              `json:"hora_inicio"`
	EndTime         *string              `json:"hora_fin"`
	Type            *domain.ActivityType `json:"tipo_actividad"`
	Location        *string              `json:"ubicacion"`
	TechnicianNotes *string              `json:"observaciones_tecnico"`
}

func (in ActivityInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.AssignmentID, validation.Min(int64(1))),
		validation.Field(&in.Title, validation.NilOrNotEmpty, validation.Length(3, 200)),
		validation.Field(&in.Description, validation.NilOrNotEmpty, validation.Length(1, 5000)),
		validation.Field(&in.StartTime, validation.Match(clockPattern)),
		validation.Field(&in.EndTime, validation.Match(clockPattern)),
		validation.Field(&in.Type, oneOf[domain.ActivityType]()),
		validation.Field(&in.Location, validation.Length(0, 200)),
		validation.Field(&in.TechnicianNotes, validation.Length(0, 2000)),
	)
}

func (in ActivityInput) apply(a *domain.Activity) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.Title, in.Title)
	set(&a.Description, in.Description)
	set(&a.StartTime, in.StartTime)
	set(&a.EndTime, in.EndTime)
	set(&a.Location, in.Location)
	set(&a.TechnicianNotes, in.TechnicianNotes)
	if in.Date != nil {
		a.Date = *in.Date
	}
	if in.Type != nil {
		a.Type = *in.Type
	}
}

func checkClock(a domain.Activity) error {
	start, err := domain.ParseClock(a.StartTime)
	if err != nil {
		return invalidField("hora_inicio", "formato HH:MM")
	}
	end, err := domain.ParseClock(a.EndTime)
	if err != nil {
		return invalidField("hora_fin", "formato HH:MM")
	}
	if end <= start {
		return invalidField("hora_fin", "debe ser posterior a hora_inicio")
	}
	return nil
}

// ownProfile returns the technician profile of a tecnico actor.
func ownProfile(ctx context.Context, st store.Store, actor Actor) (domain.Technician, error) {
	if !actor.Role.CanCreateActivities() {
		return domain.Technician{}, ErrForbidden
	}
	t, err := st.Technicians().GetTechnicianByAccountID(ctx, actor.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Technician{}, ErrForbidden
	}
	return t, err
}

// Create logs a borrador activity against an open assignment of the caller.
func (s *ActivityService) Create(ctx context.Context, actor Actor, in ActivityInput) (domain.Activity, error) {
	if err := validate(in); err != nil {
		return domain.Activity{}, err
	}
	for _, req := range []struct {
		field   string
		missing bool
	}{
		{"asignacion_id", in.AssignmentID == nil},
		{"titulo", in.Title == nil},
		{"descripcion", in.Description == nil},
		{"fecha_actividad", in.Date == nil || in.Date.IsZero()},
		{"hora_inicio", in.StartTime == nil},
		{"hora_fin", in.EndTime == nil},
	} {
		if req.missing {
			return domain.Activity{}, invalidField(req.field, "cannot be blank")
		}
	}
	tech, err := ownProfile(ctx, s.Store, actor)
	if err != nil {
		return domain.Activity{}, err
	}
	asg, err := s.Store.Assignments().GetAssignmentByID(ctx, *in.AssignmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Activity{}, invalidField("asignacion_id", "asignación no encontrada")
		}
		return domain.Activity{}, err
	}
	if asg.TechnicianID != tech.ID {
		return domain.Activity{}, ErrForbidden
	}
	if !asg.Status.Open() {
		return domain.Activity{}, businessRule("La asignación no admite nuevas actividades")
	}

	a := domain.Activity{
		AssignmentID: asg.ID,
		TechnicianID: tech.ID,
		Type:         domain.ActivityDevelopment,
		Status:       domain.ActivityDraft,
	}
	in.apply(&a)
	if err := checkClock(a); err != nil {
		return domain.Activity{}, err
	}
	if err := s.Store.Activities().CreateActivity(ctx, &a); err != nil {
		return domain.Activity{}, fromStore(err)
	}
	slogx.FromContext(ctx).Info("activity created",
		slog.Int64("activity_id", a.ID),
		slog.Int64("assignment_id", a.AssignmentID),
	)
	return s.Get(ctx, actor, a.ID)
}

// owned loads activity id and checks that actor is the technician behind it.
func ownedActivity(ctx context.Context, st store.Store, actor Actor, id int64) (domain.Activity, error) {
	tech, err := ownProfile(ctx, st, actor)
	if err != nil {
		return domain.Activity{}, err
	}
	a, err := st.Activities().GetActivityByID(ctx, id)
	if err != nil {
		return domain.Activity{}, err
	}
	if a.TechnicianID != tech.ID {
		return domain.Activity{}, ErrForbidden
	}
	return a, nil
}

func (s *ActivityService) Update(ctx context.Context, actor Actor, id int64, in ActivityInput) (domain.Activity, error) {
	if err := validate(in); err != nil {
		return domain.Activity{}, err
	}
	if in.AssignmentID != nil {
		return domain.Activity{}, invalidField("asignacion_id", "no se puede cambiar")
	}
	a, err := ownedActivity(ctx, s.Store, actor, id)
	if err != nil {
		return domain.Activity{}, fromStore(err)
	}
	if !a.Status.Editable() {
		return domain.Activity{}, businessRule("Solo se pueden editar actividades en borrador o rechazadas")
	}
	in.apply(&a)
	if err := checkClock(a); err != nil {
		return domain.Activity{}, err
	}
	if err := s.Store.Activities().UpdateActivity(ctx, a); err != nil {
		return domain.Activity{}, fromStore(err)
	}
	return s.Get(ctx, actor, id)
}

type ActivityStatusInput struct {
	Status domain.ActivityStatus `json:"estado"`
}

func (in ActivityStatusInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Status, validation.Required, oneOf[domain.ActivityStatus]()),
	)
}

// SetStatus applies a technician move. Submitting stamps fecha_envio and
// records the submission in the history.
func (s *ActivityService) SetStatus(ctx context.Context, actor Actor, id int64, in ActivityStatusInput) (domain.Activity, error) {
	if err := validate(in); err != nil {
		return domain.Activity{}, err
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		a, err := ownedActivity(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !a.Status.CanTechnicianTransition(in.Status) {
			return badTransition(fmt.Sprintf("No se puede pasar de %s a %s", a.Status, in.Status))
		}
		var submitted *time.Time
		if in.Status == domain.ActivitySubmitted {
			now := s.now().UTC()
			submitted = &now
		}
		if err := tx.Activities().SetActivityStatus(ctx, id, in.Status, submitted); err != nil {
			return err
		}
		if in.Status != domain.ActivitySubmitted {
			return nil
		}
		return tx.Activities().AppendHistory(ctx, &domain.HistoryEntry{
			ActivityID:     id,
			Action:         domain.HistorySubmitted,
			AccountID:      actor.AccountID,
			PreviousStatus: string(a.Status),
			NewStatus:      string(in.Status),
		})
	})
	if err != nil {
		return domain.Activity{}, fromStore(err)
	}
	slogx.FromContext(ctx).Info("activity status changed",
		slog.Int64("activity_id", id),
		slog.String("to", string(in.Status)),
	)
	return s.Get(ctx, actor, id)
}
