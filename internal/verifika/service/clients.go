package service

import (
	"context"
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/slogx"
)

type ClientService struct {
	Store      store.Store
	Sessions   Sessions
	BcryptCost int
}

func (s *ClientService) List(ctx context.Context, f store.ClientFilter) ([]domain.Client, domain.Pagination, error) {
	items, total, err := s.Store.Clients().ListClients(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(f.Page, total), nil
}

func (s *ClientService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.Store.Clients().ClientStats(ctx)
}

func (s *ClientService) Get(ctx context.Context, id int64) (domain.Client, error) {
	c, err := s.Store.Clients().GetClientByID(ctx, id)
	return c, fromStore(err)
}

// CheckOwner reports ErrForbidden unless accountID manages client id.
func (s *ClientService) CheckOwner(ctx context.Context, id, accountID int64) error {
	own, err := s.Store.Clients().GetClientByAccountID(ctx, accountID)
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

type CompanyInput struct {
	CompanyName             *string `json:"nombre_empresa"`
	CIF                     *string `json:"cif"`
	TaxAddress              *string `json:"direccion_fiscal"`
	City                    *string `json:"ciudad"`
	Country                 *string `json:"pais"`
	CorporatePhone          *string `json:"telefono_corporativo"`
	Website                 *string `json:"sitio_web"`
	Sector                  *string `json:"sector_actividad"`
	Employees               *int    `json:"numero_empleados"`
	DoubleValidation        *bool   `json:"requiere_validacion_doble"`
	ValidationDeadlineHours *int    `json:"tiempo_limite_validacion"`
}

func (in CompanyInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CompanyName, validation.NilOrNotEmpty, validation.Length(2, 200)),
		validation.Field(&in.CIF, validation.Length(9, 20), is.Alphanumeric),
		validation.Field(&in.City, validation.Length(1, 100)),
		validation.Field(&in.Country, validation.Length(1, 100)),
		validation.Field(&in.CorporatePhone, phoneRules...),
		validation.Field(&in.Website, validation.Length(1, 255), is.URL),
		validation.Field(&in.Sector, validation.Length(1, 100)),
		validation.Field(&in.Employees, validation.Min(0)),
		validation.Field(&in.ValidationDeadlineHours, validation.Min(1), validation.Max(720)),
	)
}

func (in CompanyInput) apply(c *domain.Client) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.CompanyName, in.CompanyName)
	set(&c.CIF, in.CIF)
	set(&c.TaxAddress, in.TaxAddress)
	set(&c.City, in.City)
	set(&c.Country, in.Country)
	set(&c.CorporatePhone, in.CorporatePhone)
	set(&c.Website, in.Website)
	set(&c.Sector, in.Sector)
	if in.Employees != nil {
		c.Employees = in.Employees
	}
	if in.DoubleValidation != nil {
		c.DoubleValidation = *in.DoubleValidation
	}
	if in.ValidationDeadlineHours != nil {
		c.ValidationDeadlineHours = *in.ValidationDeadlineHours
	}
}

type CreateClientInput struct {
	Email     string `json:"email"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Phone     string `json:"telefono"`
	CompanyInput
}

func (in CreateClientInput) Validate() error {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.FirstName, nameRules...),
		validation.Field(&in.LastName, nameRules...),
		validation.Field(&in.Phone, phoneRules...),
	); err != nil {
		return err
	}
	if in.CompanyName == nil {
		return invalidField("nombre_empresa", "cannot be blank")
	}
	return in.CompanyInput.Validate()
}

type CreatedClient struct {
	Client     domain.Client
	Invitation string
}

// Create adds a pendiente cliente account and its company in one
// transaction. A duplicate email or CIF rolls both back.
func (s *ClientService) Create(ctx context.Context, actor Actor, in CreateClientInput) (CreatedClient, error) {
	if !actor.Role.CanManageClients() {
		return CreatedClient{}, ErrForbidden
	}
	if err := validate(in); err != nil {
		return CreatedClient{}, err
	}
	password, err := cryptox.GeneratePassword()
	if err != nil {
		return CreatedClient{}, err
	}
	hash, err := cryptox.HashPassword(password, s.BcryptCost)
	if err != nil {
		return CreatedClient{}, err
	}

	createdBy := actor.AccountID
	acct := domain.Account{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         domain.RoleClient,
		Status:       domain.StatusPending,
		CreatedBy:    &createdBy,
	}
	var client domain.Client
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, &acct); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		client = domain.Client{AccountID: acct.ID}
		in.CompanyInput.apply(&client)
		return fromStore(tx.Clients().CreateClient(ctx, &client))
	})
	if err != nil {
		return CreatedClient{}, err
	}

	created, err := s.Get(ctx, client.ID)
	if err != nil {
		return CreatedClient{}, err
	}
	invitation, err := issueInvitation(ctx, s.Sessions, acct.Email)
	if err != nil {
		return CreatedClient{}, err
	}
	slogx.FromContext(ctx).Info("client created",
		slog.Int64("client_id", client.ID),
		slog.Int64("account_id", acct.ID),
		slog.Int64("created_by", actor.AccountID),
	)
	return CreatedClient{Client: created, Invitation: invitation}, nil
}

type UpdateClientInput struct {
	ProfileInput
	CompanyInput
}

func (in UpdateClientInput) Validate() error {
	if err := in.ProfileInput.Validate(); err != nil {
		return err
	}
	return in.CompanyInput.Validate()
}

func (s *ClientService) Update(ctx context.Context, id int64, in UpdateClientInput) (domain.Client, error) {
	if err := validate(in); err != nil {
		return domain.Client{}, err
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.Clients().GetClientByID(ctx, id)
		if err != nil {
			return err
		}
		in.CompanyInput.apply(&c)
		if err := tx.Clients().UpdateClient(ctx, c); err != nil {
			return err
		}
		if in.FirstName == nil && in.LastName == nil && in.Phone == nil {
			return nil
		}
		acct, err := tx.Accounts().GetAccountByID(ctx, c.AccountID)
		if err != nil {
			return err
		}
		in.ProfileInput.apply(&acct)
		return tx.Accounts().UpdateAccount(ctx, acct)
	})
	if err != nil {
		return domain.Client{}, fromStore(err)
	}
	return s.Get(ctx, id)
}

func (s *ClientService) SetStatus(ctx context.Context, id int64, in StatusInput) (domain.Client, error) {
	if err := validate(in); err != nil {
		return domain.Client{}, err
	}
	c, err := s.Store.Clients().GetClientByID(ctx, id)
	if err != nil {
		return domain.Client{}, fromStore(err)
	}
	if err := s.Store.Accounts().SetAccountStatus(ctx, c.AccountID, in.Status); err != nil {
		return domain.Client{}, fromStore(err)
	}
	if in.Status != domain.StatusActive {
		s.Sessions.DeleteSession(ctx, c.AccountID)
	}
	return s.Get(ctx, id)
}
