package domain

import "time"

type Availability string

const (
	AvailabilityAvailable Availability = "disponible"
	AvailabilityBusy      Availability = "ocupado"
	AvailabilityHoliday   Availability = "vacaciones"
	AvailabilityInactive  Availability = "inactivo"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityHoliday, AvailabilityInactive:
		return true
	}
	return false
}

type ExperienceLevel string

const (
	ExperienceJunior       ExperienceLevel = "junior"
	ExperienceIntermediate ExperienceLevel = "intermedio"
	ExperienceSenior       ExperienceLevel = "senior"
	ExperienceExpert       ExperienceLevel = "experto"
)

func (l ExperienceLevel) Valid() bool {
	switch l {
	case ExperienceJunior, ExperienceIntermediate, ExperienceSenior, ExperienceExpert:
		return true
	}
	return false
}

// Technician is a technician profile joined with the account that owns it.
type Technician struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"usuario_id"`
	IDNumber        string          `json:"numero_identificacion,omitempty"`
	BirthDate       *Date           `json:"fecha_nacimiento,omitempty"`
	Address         string          `json:"direccion,omitempty"`
	City            string          `json:"ciudad,omitempty"`
	Country         string          `json:"pais,omitempty"`
	YearsExperience int             `json:"experiencia_anos"`
	ExperienceLevel ExperienceLevel `json:"nivel_experiencia"`
	Availability    Availability    `json:"disponibilidad"`
	HourlyRate      *float64        `json:"tarifa_por_hora,omitempty"`
	Currency        string          `json:"moneda,omitempty"`
	Bio             string          `json:"biografia,omitempty"`
	CreatedAt       time.Time       `json:"fecha_creacion"`
	UpdatedAt       time.Time       `json:"fecha_actualizacion"`

	Email         string `json:"email"`
	FirstName     string `json:"nombre"`
	LastName      string `json:"apellido"`
	Phone         string `json:"telefono,omitempty"`
	AccountStatus Status `json:"estado"`

	Competencies []TechnicianCompetency `json:"competencias,omitempty"`
}

// OwnedBy reports whether accountID is the account behind this profile.
func (t *Technician) OwnedBy(accountID int64) bool {
	return t != nil && t.AccountID == accountID
}

// Assignable reports whether the technician may receive new work.
func (t *Technician) Assignable() bool {
	return t.AccountStatus == StatusActive && t.Availability == AvailabilityAvailable
}

// TechnicianCompetency is a competency held by a technician, with catalogue
// fields joined in.
type TechnicianCompetency struct {
	ID           int64      `json:"id"`
	TechnicianID int64      `json:"tecnico_id"`
	CompetencyID int64      `json:"competencia_id"`
	CurrentLevel SkillLevel `json:"nivel_actual"`
	Certified    bool       `json:"certificado"`
	CertifiedOn  *Date      `json:"fecha_certificacion,omitempty"`
	ExpiresOn    *Date      `json:"fecha_vencimiento,omitempty"`
	ValidatedBy  *int64     `json:"validado_por,omitempty"`
	CreatedAt    time.Time  `json:"fecha_creacion"`

	Name     string `json:"nombre"`
	Category string `json:"categoria,omitempty"`
}
