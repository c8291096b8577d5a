package store

import "github.com/bluesystem/verifika/internal/verifika/domain"

// Zero-valued fields are not applied.

type AccountFilter struct {
	Role   domain.Role
	Status domain.Status
	Search string
	Page   domain.Page
}

type TechnicianFilter struct {
	Availability    domain.Availability
	ExperienceLevel domain.ExperienceLevel
	City            string
	CompetencyID    int64
	Search          string
	Page            domain.Page
}

type ClientFilter struct {
	Sector string
	City   string
	Status domain.Status
	Search string
	Page   domain.Page
}

type CompetencyFilter struct {
	Category      string
	RequiredLevel domain.SkillLevel
	Active        *bool
	Search        string
	Page          domain.Page
}

type AssignmentFilter struct {
	TechnicianID int64
	ClientID     int64
	Status       domain.AssignmentStatus
	Page         domain.Page
}

type ActivityFilter struct {
	AssignmentID int64
	TechnicianID int64
	ClientID     int64
	Status       domain.ActivityStatus
	From         *domain.Date
	To           *domain.Date
	Page         domain.Page
}

type ValidationFilter struct {
	ActivityID  int64
	ValidatorID int64
	Status      domain.ValidationStatus
	Page        domain.Page
}
