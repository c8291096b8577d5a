package domain

import (
	"encoding/json"
	"time"
)

type ValidationStatus string

const (
	ValidationApproved      ValidationStatus = "aprobada"
	ValidationRejected      ValidationStatus = "rechazada"
	ValidationPendingReview ValidationStatus = "pendiente_revision"
)

func (s ValidationStatus) Valid() bool {
	switch s {
	case ValidationApproved, ValidationRejected, ValidationPendingReview:
		return true
	}
	return false
}

// ActivityOutcome is the activity state a validation result implies. A
// pending review leaves the activity submitted.
func (s ValidationStatus) ActivityOutcome() ActivityStatus {
	switch s {
	case ValidationApproved:
		return ActivityValidated
	case ValidationRejected:
		return ActivityRejected
	}
	return ActivitySubmitted
}

// HistoryAction is the history verb recorded for s.
func (s ValidationStatus) HistoryAction() HistoryAction {
	switch s {
	case ValidationApproved:
		return HistoryApproved
	case ValidationRejected:
		return HistoryRejected
	}
	return HistoryReviewRequested
}

// Validation is a validator's verdict on a submitted activity.
type Validation struct {
	ID             int64            `json:"id"`
	ActivityID     int64            `json:"actividad_id"`
	ValidatorID    int64            `json:"validador_id"`
	Status         ValidationStatus `json:"estado"`
	Comments       string           `json:"comentarios,omitempty"`
	ApprovedHours  *float64         `json:"horas_aprobadas,omitempty"`
	ApprovedAmount *float64         `json:"monto_aprobado,omitempty"`
	ValidatedAt    time.Time        `json:"fecha_validacion"`

	ValidatorName string `json:"validador_nombre,omitempty"`
	ActivityTitle string `json:"actividad_titulo,omitempty"`
}

type HistoryAction string

const (
	HistorySubmitted       HistoryAction = "enviada"
	HistoryApproved        HistoryAction = "aprobada"
	HistoryRejected        HistoryAction = "rechazada"
	HistoryReviewRequested HistoryAction = "revision_solicitada"
)

// HistoryEntry is one append-only record of an activity's review trail.
type HistoryEntry struct {
	ID             int64           `json:"id"`
	ActivityID     int64           `json:"actividad_id"`
	ValidationID   *int64          `json:"validacion_id,omitempty"`
	Action         HistoryAction   `json:"accion"`
	AccountID      int64           `json:"usuario_id"`
	PreviousStatus string          `json:"estado_anterior,omitempty"`
	NewStatus      string          `json:"estado_nuevo,omitempty"`
	Comments       string          `json:"comentarios,omitempty"`
	Metadata       json.RawMessage `json:"metadatos,omitempty"`
	At             time.Time       `json:"fecha_accion"`

	AccountName string `json:"usuario_nombre,omitempty"`
}
