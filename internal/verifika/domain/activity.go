package domain

import (
	"fmt"
	"strings"
	"time"
)

type ActivityStatus string

const (
	ActivityDraft     ActivityStatus = "borrador"
	ActivitySubmitted ActivityStatus = "enviada"
	ActivityValidated ActivityStatus = "validada"
	ActivityRejected  ActivityStatus = "rechazada"
)

func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityDraft, ActivitySubmitted, ActivityValidated, ActivityRejected:
		return true
	}
	return false
}

// Editable reports whether the owning technician may still change the entry.
func (s ActivityStatus) Editable() bool {
	return s == ActivityDraft || s == ActivityRejected
}

// CanTechnicianTransition covers the moves a technician makes on its own
// entries. Validation outcomes are applied by validators.
func (s ActivityStatus) CanTechnicianTransition(next ActivityStatus) bool {
	return (s == ActivityDraft && next == ActivitySubmitted) ||
		(s == ActivityRejected && next == ActivityDraft)
}

type ActivityType string

const (
	ActivityDevelopment ActivityType = "desarrollo"
	ActivityMaintenance ActivityType = "mantenimiento"
	ActivitySupport     ActivityType = "soporte"
	ActivityConsulting  ActivityType = "consultoria"
	ActivityOther       ActivityType = "otro"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityDevelopment, ActivityMaintenance, ActivitySupport, ActivityConsulting, ActivityOther:
		return true
	}
	return false
}

// Activity is a unit of work logged by a technician against an assignment.
type Activity struct {
	ID              int64          `json:"id"`
	AssignmentID    int64          `json:"asignacion_id"`
	TechnicianID    int64          `json:"tecnico_id"`
	Title           string         `json:"titulo"`
	Description     string         `json:"descripcion"`
	Date            Date           `json:"fecha_actividad"`
	StartTime       string         `json:"hora_inicio"`
	EndTime         string         `json:"hora_fin"`
	HoursWorked     float64        `json:"horas_trabajadas"`
	Type            ActivityType   `json:"tipo_actividad"`
	Location        string         `json:"ubicacion,omitempty"`
	Status          ActivityStatus `json:"estado"`
	TechnicianNotes string         `json:"observaciones_tecnico,omitempty"`
	SubmittedAt     *time.Time     `json:"fecha_envio,omitempty"`
	CreatedAt       time.Time      `json:"fecha_creacion"`
	UpdatedAt       time.Time      `json:"fecha_actualizacion"`

	TechnicianAccountID int64 `json:"-"`
	ClientID            int64 `json:"cliente_id,omitempty"`
	ClientAccountID     int64 `json:"-"`
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
}
