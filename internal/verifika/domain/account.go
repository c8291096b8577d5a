package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/jwtx"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "tecnico"
	RoleClient     Role = "cliente"
	RoleValidator  Role = "validador"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleTechnician, RoleClient, RoleValidator}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleClient, RoleValidator:
		return true
	}
	return false
}

// Capability reports whether a role may take some action. Role methods
// with this shape are used directly, as in Role.CanViewStats.
type Capability func(Role) bool

func (r Role) CanCreateAccounts() bool     { return r == RoleAdmin }
func (r Role) CanManageAccounts() bool     { return r == RoleAdmin }
func (r Role) CanViewStats() bool          { return r == RoleAdmin }
func (r Role) CanManageTechnicians() bool  { return r == RoleAdmin }
func (r Role) CanManageClients() bool      { return r == RoleAdmin }
func (r Role) CanManageCompetencies() bool { return r == RoleAdmin }
func (r Role) CanManageAssignments() bool  { return r == RoleAdmin }
func (r Role) CanCreateActivities() bool   { return r == RoleTechnician }
func (r Role) CanValidateActivities() bool { return r == RoleValidator || r == RoleAdmin }

// CanBrowseTechnicians covers searching the technician pool and the demand
// for competencies, which clients need when staffing a project.
func (r Role) CanBrowseTechnicians() bool { return r == RoleAdmin || r == RoleClient }

// CanViewTechnicianProfile lets technicians read profiles. Service code
// narrows a technician to their own.
func (r Role) CanViewTechnicianProfile() bool {
	return r == RoleAdmin || r == RoleTechnician || r == RoleClient
}

// CanEditTechnicianProfile is limited to a technician's own profile by the
// service layer.
func (r Role) CanEditTechnicianProfile() bool { return r == RoleAdmin || r == RoleTechnician }

// CanEditClientProfile is limited to a client's own record by the service
// layer.
func (r Role) CanEditClientProfile() bool { return r == RoleAdmin || r == RoleClient }

type Status string

const (
	StatusPending   Status = "pendiente"
	StatusActive    Status = "activo"
	StatusInactive  Status = "inactivo"
	StatusSuspended Status = "suspendido"
	StatusDeleted   Status = "eliminado"
)

// Statuses lists the states an admin may set directly. StatusDeleted is
// reached only through soft delete.
var Statuses = []Status{StatusPending, StatusActive, StatusInactive, StatusSuspended}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusInactive, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

// Unavailable reports whether a token for this account must be treated as if
// the account did not exist.
func (s Status) Unavailable() bool {
	return s == StatusDeleted || s == StatusSuspended
}

// Account is a persisted user of the system. PasswordHash never leaves the
// process: it has no JSON name.
type Account struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	PasswordHash  string          `json:"-"`
	FirstName     string          `json:"nombre"`
	LastName      string          `json:"apellido"`
	Phone         string          `json:"telefono,omitempty"`
	Role          Role            `json:"rol"`
	Status        Status          `json:"estado"`
	EmailVerified bool            `json:"email_verificado"`
	LastLoginAt   *time.Time      `json:"fecha_ultimo_login,omitempty"`
	CreatedAt     time.Time       `json:"fecha_creacion"`
	UpdatedAt     time.Time       `json:"fecha_actualizacion"`
	CreatedBy     *int64          `json:"creado_por,omitempty"`
	Metadata      json.RawMessage `json:"metadatos,omitempty"`
}

// VerifyPassword reports whether plain matches the stored hash. It is false
// whenever either side is empty and never panics.
func (a *Account) VerifyPassword(plain string) bool {
	if a == nil || plain == "" || a.PasswordHash == "" {
		return false
	}
	return cryptox.VerifyPassword(plain, a.PasswordHash) == nil
}

// Identity is the snapshot placed in bearer tokens.
func (a *Account) Identity() jwtx.Identity {
	return jwtx.Identity{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      string(a.Role),
		Status:    string(a.Status),
	}
}

func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// NormalizeEmail is applied before every store write and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
