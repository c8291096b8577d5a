package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/slogx"
)

type ValidationService struct {
	Store store.Store
}

func (s *ValidationService) List(ctx context.Context, f store.ValidationFilter) ([]domain.Validation, domain.Pagination, error) {
	items, total, err := s.Store.Validations().ListValidations(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(f.Page, total), nil
}

func (s *ValidationService) Get(ctx context.Context, id int64) (domain.Validation, error) {
	v, err := s.Store.Validations().GetValidationByID(ctx, id)
	return v, fromStore(err)
}

type ValidationInput struct {
	ActivityID     int64                   `json:"actividad_id"`
	Status         domain.ValidationStatus `json:"estado"`
	Comments       string                  `json:"comentarios"`
	ApprovedHours  *float64                `json:"horas_aprobadas"`
	ApprovedAmount *float64                `json:"monto_aprobado"`
}

func (in ValidationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ActivityID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.Status, validation.Required, oneOf[domain.ValidationStatus]()),
		validation.Field(&in.Comments, validation.Length(0, 2000), validation.By(func(interface{}) error {
			if in.Status == domain.ValidationRejected && strings.TrimSpace(in.Comments) == "" {
				return errors.New("obligatorio al rechazar")
			}
			return nil
		})),
		validation.Field(&in.ApprovedHours, validation.Min(0.0), validation.Max(24.0)),
		validation.Field(&in.ApprovedAmount, validation.Min(0.0)),
	)
}

// Create records a verdict on a submitted activity. The activity moves to
// the outcome state and the history gains an entry, all in one transaction.
func (s *ValidationService) Create(ctx context.Context, actor Actor, in ValidationInput) (domain.Validation, error) {
	if !actor.Role.CanValidateActivities() {
		return domain.Validation{}, ErrForbidden
	}
	if err := validate(in); err != nil {
		return domain.Validation{}, err
	}
	v := domain.Validation{
		ActivityID:     in.ActivityID,
		ValidatorID:    actor.AccountID,
		Status:         in.Status,
		Comments:       strings.TrimSpace(in.Comments),
		ApprovedHours:  in.ApprovedHours,
		ApprovedAmount: in.ApprovedAmount,
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		act, err := tx.Activities().GetActivityByID(ctx, in.ActivityID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return invalidField("actividad_id", "actividad no encontrada")
			}
			return err
		}
		if act.Status != domain.ActivitySubmitted {
			return businessRule("Solo se pueden validar actividades enviadas")
		}
		if v.ApprovedHours != nil && *v.ApprovedHours > act.HoursWorked {
			return invalidField("horas_aprobadas", "supera las horas trabajadas")
		}
		if err := tx.Validations().CreateValidation(ctx, &v); err != nil {
			return err
		}
		return applyOutcome(ctx, tx, actor, act, v)
	})
	if err != nil {
		return domain.Validation{}, fromStore(err)
	}
	slogx.FromContext(ctx).Info("activity validated",
		slog.Int64("validation_id", v.ID),
		slog.Int64("activity_id", v.ActivityID),
		slog.String("status", string(v.Status)),
	)
	return s.Get(ctx, v.ID)
}

// applyOutcome moves the activity to the state the verdict implies and
// appends the history entry.
func applyOutcome(ctx context.Context, tx store.Tx, actor Actor, act domain.Activity, v domain.Validation) error {
	next := v.Status.ActivityOutcome()
	if next != act.Status {
		if err := tx.Activities().SetActivityStatus(ctx, act.ID, next, nil); err != nil {
			return err
		}
	}
	validationID := v.ID
	return tx.Activities().AppendHistory(ctx, &domain.HistoryEntry{
		ActivityID:     act.ID,
		ValidationID:   &validationID,
		Action:         v.Status.HistoryAction(),
		AccountID:      actor.AccountID,
		PreviousStatus: string(act.Status),
		NewStatus:      string(next),
		Comments:       v.Comments,
	})
}

type UpdateValidationInput struct {
	Comments       *string  `json:"comentarios"`
	ApprovedHours  *float64 `json:"horas_aprobadas"`
	ApprovedAmount *float64 `json:"monto_aprobado"`
}

func (in UpdateValidationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Comments, validation.Length(0, 2000)),
		validation.Field(&in.ApprovedHours, validation.Min(0.0), validation.Max(24.0)),
		validation.Field(&in.ApprovedAmount, validation.Min(0.0)),
	)
}

// Update lets the author amend a verdict that is still under review.
func (s *ValidationService) Update(ctx context.Context, actor Actor, id int64, in UpdateValidationInput) (domain.Validation, error) {
	if err := validate(in); err != nil {
		return domain.Validation{}, err
	}
	v, err := s.Store.Validations().GetValidationByID(ctx, id)
	if err != nil {
		return domain.Validation{}, fromStore(err)
	}
	if v.ValidatorID != actor.AccountID {
		return domain.Validation{}, ErrForbidden
	}
	if v.Status != domain.ValidationPendingReview {
		return domain.Validation{}, businessRule("Solo se pueden editar validaciones pendientes de revisión")
	}
	if in.Comments != nil {
		v.Comments = strings.TrimSpace(*in.Comments)
	}
	if in.ApprovedHours != nil {
		v.ApprovedHours = in.ApprovedHours
	}
	if in.ApprovedAmount != nil {
		v.ApprovedAmount = in.ApprovedAmount
	}
	if err := s.Store.Validations().UpdateValidation(ctx, v); err != nil {
		return domain.Validation{}, fromStore(err)
	}
	return s.Get(ctx, id)
}

type ValidationStatusInput struct {
	Status   domain.ValidationStatus `json:"estado"`
	Comments *string                 `json:"comentarios"`
}

func (in ValidationStatusInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Status, validation.Required, oneOf[domain.ValidationStatus]()),
		validation.Field(&in.Comments, validation.Length(0, 2000)),
	)
}

// SetStatus resolves a pending review into aprobada or rechazada.
func (s *ValidationService) SetStatus(ctx context.Context, actor Actor, id int64, in ValidationStatusInput) (domain.Validation, error) {
	if !actor.Role.CanValidateActivities() {
		return domain.Validation{}, ErrForbidden
	}
	if err := validate(in); err != nil {
		return domain.Validation{}, err
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		v, err := tx.Validations().GetValidationByID(ctx, id)
		if err != nil {
			return err
		}
		if v.Status != domain.ValidationPendingReview || in.Status == domain.ValidationPendingReview {
			return badTransition(fmt.Sprintf("No se puede pasar de %s a %s", v.Status, in.Status))
		}
		if in.Comments != nil {
			v.Comments = strings.TrimSpace(*in.Comments)
			if err := tx.Validations().UpdateValidation(ctx, v); err != nil {
				return err
			}
		}
		if err := tx.Validations().SetValidationStatus(ctx, id, in.Status); err != nil {
			return err
		}
		v.Status = in.Status
		act, err := tx.Activities().GetActivityByID(ctx, v.ActivityID)
		if err != nil {
			return err
		}
		return applyOutcome(ctx, tx, actor, act, v)
	})
	if err != nil {
		return domain.Validation{}, fromStore(err)
	}
	slogx.FromContext(ctx).Info("validation resolved",
		slog.Int64("validation_id", id),
		slog.String("status", string(in.Status)),
	)
	return s.Get(ctx, id)
}
