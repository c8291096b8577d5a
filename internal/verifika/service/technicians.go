package service

import (
	"context"
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/slogx"
)

type TechnicianService struct {
	Store      store.Store
	Sessions   Sessions
	BcryptCost int
}

func (s *TechnicianService) List(ctx context.Context, f store.TechnicianFilter) ([]domain.Technician, domain.Pagination, error) {
	items, total, err := s.Store.Technicians().ListTechnicians(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(f.Page, total), nil
}

// Available lists assignable technicians holding every competency listed.
func (s *TechnicianService) Available(ctx context.Context, competencyIDs []int64) ([]domain.Technician, error) {
	return s.Store.Technicians().ListAvailableTechnicians(ctx, competencyIDs)
}

func (s *TechnicianService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.Store.Technicians().TechnicianStats(ctx)
}

// Get returns the profile with its competencies.
func (s *TechnicianService) Get(ctx context.Context, id int64) (domain.Technician, error) {
	t, err := s.Store.Technicians().GetTechnicianByID(ctx, id)
	if err != nil {
		return domain.Technician{}, fromStore(err)
	}
	t.Competencies, err = s.Store.Technicians().ListTechnicianCompetencies(ctx, id)
	if err != nil {
		return domain.Technician{}, err
	}
	return t, nil
}

// CheckOwner reports ErrForbidden unless accountID owns technician id. It
// does not reveal whether id exists.
func (s *TechnicianService) CheckOwner(ctx context.Context, id, accountID int64) error {
	own, err := s.Store.Technicians().GetTechnicianByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if own.ID != id {
		return ErrForbidden
	}
	return nil
}

type TechnicianProfileInput struct {
	IDNumber        *string                 `json:"numero_identificacion"`
	BirthDate       *domain.Date            `json:"fecha_nacimiento"`
	Address         *string                 `json:"direccion"`
	City            *string                 `json:"ciudad"`
	Country         *string                 `json:"pais"`
	YearsExperience *int                    `json:"experiencia_anos"`
	ExperienceLevel *domain.ExperienceLevel `json:"nivel_experiencia"`
	HourlyRate      *float64                `json:"tarifa_por_hora"`
	Currency        *string                 `json:"moneda"`
	Bio             *string                 `json:"biografia"`
}

func (in TechnicianProfileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.IDNumber, validation.Length(1, 50)),
		validation.Field(&in.City, validation.Length(1, 100)),
		validation.Field(&in.Country, validation.Length(1, 100)),
		validation.Field(&in.YearsExperience, validation.Min(0), validation.Max(70)),
		validation.Field(&in.ExperienceLevel, oneOf[domain.ExperienceLevel]()),
		validation.Field(&in.HourlyRate, validation.Min(0.0)),
		validation.Field(&in.Currency, currencyRules...),
		validation.Field(&in.Bio, validation.Length(0, 5000)),
	)
}

func (in TechnicianProfileInput) apply(t *domain.Technician) {
	if in.IDNumber != nil {
		t.IDNumber = *in.IDNumber
	}
	if in.BirthDate != nil {
		t.BirthDate = in.BirthDate
	}
	if in.Address != nil {
		t.Address = *in.Address
	}
	if in.City != nil {
		t.City = *in.City
	}
	if in.Country != nil {
		t.Country = *in.Country
	}
	if in.YearsExperience != nil {
		t.YearsExperience = *in.YearsExperience
	}
	if in.ExperienceLevel != nil {
		t.ExperienceLevel = *in.ExperienceLevel
	}
	if in.HourlyRate != nil {
		t.HourlyRate = in.HourlyRate
	}
	if in.Currency != nil {
		t.Currency = *in.Currency
	}
	if in.Bio != nil {
		t.Bio = *in.Bio
	}
}

type CreateTechnicianInput struct {
	Email     string `json:"email"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Phone     string `json:"telefono"`
	TechnicianProfileInput
}

func (in CreateTechnicianInput) Validate() error {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.FirstName, nameRules...),
		validation.Field(&in.LastName, nameRules...),
		validation.Field(&in.Phone, phoneRules...),
	); err != nil {
		return err
	}
	return in.TechnicianProfileInput.Validate()
}

// CreatedTechnician is a new profile and the invitation its owner activates
// the account with.
type CreatedTechnician struct {
	Technician domain.Technician
	Invitation string
}

// Create adds a pendiente tecnico account and its profile in one transaction.
func (s *TechnicianService) Create(ctx context.Context, actor Actor, in CreateTechnicianInput) (CreatedTechnician, error) {
	if !actor.Role.CanManageTechnicians() {
		return CreatedTechnician{}, ErrForbidden
	}
	if err := validate(in); err != nil {
		return CreatedTechnician{}, err
	}
	password, err := cryptox.GeneratePassword()
	if err != nil {
		return CreatedTechnician{}, err
	}
	hash, err := cryptox.HashPassword(password, s.BcryptCost)
	if err != nil {
		return CreatedTechnician{}, err
	}

	createdBy := actor.AccountID
	acct := domain.Account{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         domain.RoleTechnician,
		Status:       domain.StatusPending,
		CreatedBy:    &createdBy,
	}
	var tech domain.Technician
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, &acct); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		tech = domain.Technician{AccountID: acct.ID}
		in.TechnicianProfileInput.apply(&tech)
		if err := tx.Technicians().CreateTechnician(ctx, &tech); err != nil {
			return fromStore(err)
		}
		return nil
	})
	if err != nil {
		return CreatedTechnician{}, err
	}

	created, err := s.Get(ctx, tech.ID)
	if err != nil {
		return CreatedTechnician{}, err
	}
	invitation, err := issueInvitation(ctx, s.Sessions, acct.Email)
	if err != nil {
		return CreatedTechnician{}, err
	}
	slogx.FromContext(ctx).Info("technician created",
		slog.Int64("technician_id", tech.ID),
		slog.Int64("account_id", acct.ID),
		slog.Int64("created_by", actor.AccountID),
	)
	return CreatedTechnician{Technician: created, Invitation: invitation}, nil
}

type UpdateTechnicianInput struct {
	ProfileInput
	TechnicianProfileInput
}

func (in UpdateTechnicianInput) Validate() error {
	if err := in.ProfileInput.Validate(); err != nil {
		return err
	}
	return in.TechnicianProfileInput.Validate()
}

// Update changes the profile and the owning account's name and phone.
func (s *TechnicianService) Update(ctx context.Context, id int64, in UpdateTechnicianInput) (domain.Technician, error) {
	if err := validate(in); err != nil {
		return domain.Technician{}, err
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		t, err := tx.Technicians().GetTechnicianByID(ctx, id)
		if err != nil {
			return err
		}
		in.TechnicianProfileInput.apply(&t)
		if err := tx.Technicians().UpdateTechnician(ctx, t); err != nil {
			return err
		}
		if in.FirstName == nil && in.LastName == nil && in.Phone == nil {
			return nil
		}
		acct, err := tx.Accounts().GetAccountByID(ctx, t.AccountID)
		if err != nil {
			return err
		}
		in.ProfileInput.apply(&acct)
		return tx.Accounts().UpdateAccount(ctx, acct)
	})
	if err != nil {
		return domain.Technician{}, fromStore(err)
	}
	return s.Get(ctx, id)
}

type StatusInput struct {
	Status domain.Status `json:"estado"`
}

func (in StatusInput) Validate() error {
	return validation.ValidateStruct(&in, validation.Field(&in.Status, validation.Required, settableStatus))
}

// SetStatus changes the status of the account behind technician id. Leaving
// activo drops the cached session.
func (s *TechnicianService) SetStatus(ctx context.Context, id int64, in StatusInput) (domain.Technician, error) {
	if err := validate(in); err != nil {
		return domain.Technician{}, err
	}
	t, err := s.Store.Technicians().GetTechnicianByID(ctx, id)
	if err != nil {
		return domain.Technician{}, fromStore(err)
	}
	if err := s.Store.Accounts().SetAccountStatus(ctx, t.AccountID, in.Status); err != nil {
		return domain.Technician{}, fromStore(err)
	}
	if in.Status != domain.StatusActive {
		s.Sessions.DeleteSession(ctx, t.AccountID)
	}
	slogx.FromContext(ctx).Info("technician status changed",
		slog.Int64("technician_id", id),
		slog.String("estado", string(in.Status)),
	)
	return s.Get(ctx, id)
}

type AvailabilityInput struct {
	Availability domain.Availability `json:"disponibilidad"`
}

func (in AvailabilityInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Availability, validation.Required, oneOf[domain.Availability]()),
	)
}

func (s *TechnicianService) SetAvailability(ctx context.Context, id int64, in AvailabilityInput) (domain.Technician, error) {
	if err := validate(in); err != nil {
		return domain.Technician{}, err
	}
	if err := s.Store.Technicians().SetAvailability(ctx, id, in.Availability); err != nil {
		return domain.Technician{}, fromStore(err)
	}
	return s.Get(ctx, id)
}

func (s *TechnicianService) Competencies(ctx context.Context, id int64) ([]domain.TechnicianCompetency, error) {
	if _, err := s.Store.Technicians().GetTechnicianByID(ctx, id); err != nil {
		return nil, fromStore(err)
	}
	return s.Store.Technicians().ListTechnicianCompetencies(ctx, id)
}

type CompetencyAssignmentInput struct {
	CompetencyID int64             `json:"competencia_id"`
	CurrentLevel domain.SkillLevel `json:"nivel_actual"`
	Certified    bool              `json:"certificado"`
	CertifiedOn  *domain.Date      `json:"fecha_certificacion"`
	ExpiresOn    *domain.Date      `json:"fecha_vencimiento"`
}

func (in CompetencyAssignmentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CompetencyID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.CurrentLevel, oneOf[domain.SkillLevel]()),
		validation.Field(&in.ExpiresOn, validation.By(func(interface{}) error {
			if in.CertifiedOn != nil && in.ExpiresOn != nil && in.ExpiresOn.Before(*in.CertifiedOn) {
				return errors.New("debe ser posterior a fecha_certificacion")
			}
			return nil
		})),
	)
}

// UpsertCompetency records or replaces a competency held by technician id.
// validatedBy is set when an admin makes the change.
func (s *TechnicianService) UpsertCompetency(ctx context.Context, id int64, actor Actor, in CompetencyAssignmentInput) ([]domain.TechnicianCompetency, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if _, err := s.Store.Technicians().GetTechnicianByID(ctx, id); err != nil {
		return nil, fromStore(err)
	}
	comp, err := s.Store.Competencies().GetCompetencyByID(ctx, in.CompetencyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidField("competencia_id", "competencia no encontrada")
		}
		return nil, err
	}
	if !comp.Active {
		return nil, businessRule("La competencia está inactiva")
	}
	level := in.CurrentLevel
	if level == "" {
		level = domain.SkillBasic
	}
	tc := domain.TechnicianCompetency{
		TechnicianID: id,
		CompetencyID: in.CompetencyID,
		CurrentLevel: level,
		Certified:    in.Certified,
		CertifiedOn:  in.CertifiedOn,
		ExpiresOn:    in.ExpiresOn,
	}
	if actor.Role == domain.RoleAdmin {
		by := actor.AccountID
		tc.ValidatedBy = &by
	}
	if err := s.Store.Technicians().UpsertTechnicianCompetency(ctx, tc); err != nil {
		return nil, fromStore(err)
	}
	return s.Store.Technicians().ListTechnicianCompetencies(ctx, id)
}

func (s *TechnicianService) RemoveCompetency(ctx context.Context, id, competencyID int64) error {
	return fromStore(s.Store.Technicians().RemoveTechnicianCompetency(ctx, id, competencyID))
}
