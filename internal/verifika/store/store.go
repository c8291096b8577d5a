package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// Sub-repositories are exposed as methods so that a Tx hands out repos bound
// to the transaction and nobody nests transactions by accident.
type Store interface {
	Accounts() Accounts
	Technicians() Technicians
	Clients() Clients
	Competencies() Competencies
	Assignments() Assignments
	Activities() Activities
	Validations() Validations

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. An error from fn (or a panic)
	// rolls back; nil commits. The connection is released on every path.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error

	// Stats reports connection pool usage.
	Stats() sql.DBStats
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Accounts never return rows in the eliminado state: lookups of a soft
// deleted account report ErrNotFound.
type Accounts interface {
	CreateAccount(ctx context.Context, a *domain.Account) error
	GetAccountByID(ctx context.Context, id int64) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
	ListAccounts(ctx context.Context, f AccountFilter) ([]domain.Account, int64, error)

	// UpdateAccount writes nombre, apellido, telefono, rol, estado and metadatos.
	UpdateAccount(ctx context.Context, a domain.Account) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	SetAccountStatus(ctx context.Context, id int64, status domain.Status) error

	// ActivateAccount sets the password, marks the email verified and the
	// account activo.
	ActivateAccount(ctx context.Context, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error

	// SoftDeleteAccount flips estado to eliminado. The row is kept.
	SoftDeleteAccount(ctx context.Context, id int64) error

	CountAdmins(ctx context.Context, status domain.Status) (int64, error)
	AccountStats(ctx context.Context) (domain.Stats, error)
}

type Technicians interface {
	CreateTechnician(ctx context.Context, t *domain.Technician) error
	GetTechnicianByID(ctx context.Context, id int64) (domain.Technician, error)
	GetTechnicianByAccountID(ctx context.Context, accountID int64) (domain.Technician, error)
	ListTechnicians(ctx context.Context, f TechnicianFilter) ([]domain.Technician, int64, error)

	// ListAvailableTechnicians returns disponible technicians whose account is
	// activo and who hold every competency in competencyIDs.
	ListAvailableTechnicians(ctx context.Context, competencyIDs []int64) ([]domain.Technician, error)
	UpdateTechnician(ctx context.Context, t domain.Technician) error
	SetAvailability(ctx context.Context, id int64, a domain.Availability) error
	TechnicianStats(ctx context.Context) (domain.Stats, error)

	ListTechnicianCompetencies(ctx context.Context, technicianID int64) ([]domain.TechnicianCompetency, error)
	UpsertTechnicianCompetency(ctx context.Context, tc domain.TechnicianCompetency) error
	RemoveTechnicianCompetency(ctx context.Context, technicianID, competencyID int64) error
}

type Clients interface {
	CreateClient(ctx context.Context, c *domain.Client) error
	GetClientByID(ctx context.Context, id int64) (domain.Client, error)
	GetClientByAccountID(ctx context.Context, accountID int64) (domain.Client, error)
	ListClients(ctx context.Context, f ClientFilter) ([]domain.Client, int64, error)
	UpdateClient(ctx context.Context, c domain.Client) error
	ClientStats(ctx context.Context) (domain.Stats, error)
}

type Competencies interface {
	CreateCompetency(ctx context.Context, c *domain.Competency) error
	GetCompetencyByID(ctx context.Context, id int64) (domain.Competency, error)
	ListCompetencies(ctx context.Context, f CompetencyFilter) ([]domain.Competency, int64, error)
	ListCategories(ctx context.Context) ([]string, error)
	UpdateCompetency(ctx context.Context, c domain.Competency) error
	SetCompetencyActive(ctx context.Context, id int64, active bool) error
	DeleteCompetency(ctx context.Context, id int64) error
	ListCompetencyHolders(ctx context.Context, id int64) ([]domain.CompetencyHolder, error)

	// MostDemandedCompetencies ranks active competencies by holders, then
	// by certified holders. CertifiedCount is set on every result.
	MostDemandedCompetencies(ctx context.Context, limit int) ([]domain.Competency, error)
	CompetencyStats(ctx context.Context) (domain.Stats, error)
}

type Assignments interface {
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	GetAssignmentByID(ctx context.Context, id int64) (domain.Assignment, error)
	ListAssignments(ctx context.Context, f AssignmentFilter) ([]domain.Assignment, int64, error)
	UpdateAssignment(ctx context.Context, a domain.Assignment) error

	// SetAssignmentStatus moves the assignment to status; actualEnd is stored
	// in fecha_fin_real when non-nil.
	SetAssignmentStatus(ctx context.Context, id int64, status domain.AssignmentStatus, actualEnd *domain.Date) error
	AssignmentStats(ctx context.Context) (domain.Stats, error)
}

type Activities interface {
	CreateActivity(ctx context.Context, a *domain.Activity) error
	GetActivityByID(ctx context.Context, id int64) (domain.Activity, error)
	ListActivities(ctx context.Context, f ActivityFilter) ([]domain.Activity, int64, error)
	UpdateActivity(ctx context.Context, a domain.Activity) error

	// SetActivityStatus moves the activity to status; submittedAt is stored in
	// fecha_envio when non-nil.
	SetActivityStatus(ctx context.Context, id int64, status domain.ActivityStatus, submittedAt *time.Time) error
	ListHistory(ctx context.Context, activityID int64) ([]domain.HistoryEntry, error)
	AppendHistory(ctx context.Context, e *domain.HistoryEntry) error
}

type Validations interface {
	CreateValidation(ctx context.Context, v *domain.Validation) error
	GetValidationByID(ctx context.Context, id int64) (domain.Validation, error)
	ListValidations(ctx context.Context, f ValidationFilter) ([]domain.Validation, int64, error)
	UpdateValidation(ctx context.Context, v domain.Validation) error
	SetValidationStatus(ctx context.Context, id int64, status domain.ValidationStatus) error
}
