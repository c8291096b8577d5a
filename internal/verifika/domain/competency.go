package domain

import "time"

type SkillLevel string

const (
	SkillBasic        SkillLevel = "basico"
	SkillIntermediate SkillLevel = "intermedio"
	SkillAdvanced     SkillLevel = "avanzado"
	SkillExpert       SkillLevel = "experto"
)

func (l SkillLevel) Valid() bool {
	switch l {
	case SkillBasic, SkillIntermediate, SkillAdvanced, SkillExpert:
		return true
	}
	return false
}

// Competency is an entry of the competency catalogue.
type Competency struct {
	ID                    int64      `json:"id"`
	Name                  string     `json:"nombre"`
	Description           string     `json:"descripcion,omitempty"`
	Category              string     `json:"categoria,omitempty"`
	RequiredLevel         SkillLevel `json:"nivel_requerido"`
	CertificationRequired bool       `json:"certificacion_requerida"`
	Active                bool       `json:"activo"`
	CreatedAt             time.Time  `json:"fecha_creacion"`

	TechnicianCount int64              `json:"total_tecnicos"`
	CertifiedCount  *int64             `json:"tecnicos_certificados,omitempty"`
	Holders         []CompetencyHolder `json:"tecnicos,omitempty"`
}

// CompetencyHolder is a technician holding a given competency.
type CompetencyHolder struct {
	TechnicianID int64      `json:"tecnico_id"`
	FirstName    string     `json:"nombre"`
	LastName     string     `json:"apellido"`
	Email        string     `json:"email"`
	Level        SkillLevel `json:"nivel_actual"`
	Certified    bool       `json:"certificado"`
}
