package domain

import "time"

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "activa"
	AssignmentPaused    AssignmentStatus = "pausada"
	AssignmentFinished  AssignmentStatus = "finalizada"
	AssignmentCancelled AssignmentStatus = "cancelada"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentActive, AssignmentPaused, AssignmentFinished, AssignmentCancelled:
		return true
	}
	return false
}

// Open reports whether work may still be logged against the assignment.
func (s AssignmentStatus) Open() bool {
	return s == AssignmentActive || s == AssignmentPaused
}

// CanTransition reports whether an assignment may move from s to next.
// Finished and cancelled assignments are terminal.
func (s AssignmentStatus) CanTransition(next AssignmentStatus) bool {
	switch s {
	case AssignmentActive:
		return next == AssignmentPaused || next == AssignmentFinished || next == AssignmentCancelled
	case AssignmentPaused:
		return next == AssignmentActive || next == AssignmentFinished || next == AssignmentCancelled
	}
	return false
}

// Assignment binds a technician to a client for a period of work.
type Assignment struct {
	ID                   int64            `json:"id"`
	TechnicianID         int64            `json:"tecnico_id"`
	ClientID             int64            `json:"cliente_id"`
	ProjectName          string           `json:"proyecto_nombre,omitempty"`
	Description          string           `json:"descripcion,omitempty"`
	StartDate            Date             `json:"fecha_inicio"`
	EstimatedEndDate     *Date            `json:"fecha_fin_estimada,omitempty"`
	ActualEndDate        *Date            `json:"fecha_fin_real,omitempty"`
	Status               AssignmentStatus `json:"estado"`
	AgreedRate           *float64         `json:"tarifa_acordada,omitempty"`
	Currency             string           `json:"moneda,omitempty"`
	EstimatedHours       *int             `json:"horas_estimadas,omitempty"`
	RequiredCompetencies []int64          `json:"competencias_requeridas,omitempty"`
	Notes                string           `json:"observaciones,omitempty"`
	CreatedBy            int64            `json:"creado_por"`
	CreatedAt            time.Time        `json:"fecha_creacion"`
	UpdatedAt            time.Time        `json:"fecha_actualizacion"`

	TechnicianAccountID int64  `json:"-"`
	ClientAccountID     int64  `json:"-"`
	TechnicianName      string `json:"tecnico_nombre,omitempty"`
	CompanyName         string `json:"nombre_empresa,omitempty"`
}
