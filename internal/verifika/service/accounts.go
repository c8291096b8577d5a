package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/slogx"
)

var (
	ErrCannotDeleteSelf = errors.New("cannot delete own account")
	ErrLastAdmin        = errors.New("last active admin")
)

// AccountService is the admin side of account management.
type AccountService struct {
	Store      store.Store
	Sessions   Sessions
	BcryptCost int
}

func (s *AccountService) List(ctx context.Context, f store.AccountFilter) ([]domain.Account, domain.Pagination, error) {
	items, total, err := s.Store.Accounts().ListAccounts(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return items, domain.NewPagination(f.Page, total), nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (domain.Account, error) {
	acct, err := s.Store.Accounts().GetAccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrNotFound
	}
	return acct, err
}

type CreateAccountInput struct {
	Email          string          `json:"email"`
	Password       string          `json:"password"`
	FirstName      string          `json:"nombre"`
	LastName       string          `json:"apellido"`
	Phone          string          `json:"telefono"`
	Role           domain.Role     `json:"rol"`
	Status         domain.Status   `json:"estado"`
	Metadata       json.RawMessage `json:"metadatos"`
	SendInvitation bool            `json:"enviar_invitacion"`
}

func (in CreateAccountInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.Password, validation.Length(8, 128)),
		validation.Field(&in.FirstName, nameRules...),
		validation.Field(&in.LastName, nameRules...),
		validation.Field(&in.Phone, phoneRules...),
		validation.Field(&in.Role, validation.Required, oneOf[domain.Role]()),
		validation.Field(&in.Status, settableStatus),
		validation.Field(&in.Metadata, validation.By(jsonObject)),
	)
}

func jsonObject(v interface{}) error {
	raw, _ := v.(json.RawMessage)
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return errors.New("debe ser un objeto JSON")
	}
	return nil
}

// CreatedAccount is a new account and, when requested, its invitation token.
type CreatedAccount struct {
	Account    domain.Account
	Invitation string
}

// Create adds an account on behalf of an admin. Without a password a random
// one is set and the account is expected to be activated by invitation.
func (s *AccountService) Create(ctx context.Context, actor Actor, in CreateAccountInput) (CreatedAccount, error) {
	if !actor.Role.CanCreateAccounts() {
		return CreatedAccount{}, ErrForbidden
	}
	if err := validate(in); err != nil {
		return CreatedAccount{}, err
	}
	password := in.Password
	if password == "" {
		generated, err := cryptox.GeneratePassword()
		if err != nil {
			return CreatedAccount{}, err
		}
		password = generated
	}
	hash, err := cryptox.HashPassword(password, s.BcryptCost)
	if err != nil {
		return CreatedAccount{}, err
	}
	status := in.Status
	if status == "" {
		status = domain.StatusPending
	}
	createdBy := actor.AccountID
	acct := domain.Account{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         in.Role,
		Status:       status,
		CreatedBy:    &createdBy,
		Metadata:     in.Metadata,
	}
	if err := s.Store.Accounts().CreateAccount(ctx, &acct); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return CreatedAccount{}, ErrEmailTaken
		}
		return CreatedAccount{}, err
	}

	out := CreatedAccount{Account: acct}
	if in.SendInvitation {
		out.Invitation, err = issueInvitation(ctx, s.Sessions, acct.Email)
		if err != nil {
			return CreatedAccount{}, err
		}
	}
	slogx.FromContext(ctx).Info("account created",
		slog.Int64("account_id", acct.ID),
		slog.String("rol", string(acct.Role)),
		slog.Int64("created_by", actor.AccountID),
	)
	return out, nil
}

type UpdateAccountInput struct {
	ProfileInput
	Role     *domain.Role    `json:"rol"`
	Status   *domain.Status  `json:"estado"`
	Metadata json.RawMessage `json:"metadatos"`
}

func (in UpdateAccountInput) Validate() error {
	if err := in.ProfileInput.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Role, oneOf[domain.Role]()),
		validation.Field(&in.Status, settableStatus),
		validation.Field(&in.Metadata, validation.By(jsonObject)),
	)
}

// Update changes profile, role, status and metadata. Demoting or disabling
// the last active admin is refused.
func (s *AccountService) Update(ctx context.Context, id int64, in UpdateAccountInput) (domain.Account, error) {
	if err := validate(in); err != nil {
		return domain.Account{}, err
	}
	var updated domain.Account
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		acct, err := tx.Accounts().GetAccountByID(ctx, id)
		if err != nil {
			return err
		}
		wasActiveAdmin := acct.Role == domain.RoleAdmin && acct.Status == domain.StatusActive

		in.apply(&acct)
		if in.Role != nil {
			acct.Role = *in.Role
		}
		if in.Status != nil {
			acct.Status = *in.Status
		}
		if len(in.Metadata) > 0 {
			acct.Metadata = in.Metadata
		}

		stillActiveAdmin := acct.Role == domain.RoleAdmin && acct.Status == domain.StatusActive
		if wasActiveAdmin && !stillActiveAdmin {
			if err := ensureAnotherAdmin(ctx, tx); err != nil {
				return err
			}
		}
		if err := tx.Accounts().UpdateAccount(ctx, acct); err != nil {
			return err
		}
		updated = acct
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrNotFound
		}
		return domain.Account{}, err
	}
	if updated.Status != domain.StatusActive {
		s.Sessions.DeleteSession(ctx, id)
	}
	return s.Get(ctx, id)
}

func ensureAnotherAdmin(ctx context.Context, tx store.Tx) error {
	n, err := tx.Accounts().CountAdmins(ctx, domain.StatusActive)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// Delete soft deletes id. Admins cannot delete themselves or the last
// active admin.
func (s *AccountService) Delete(ctx context.Context, actor Actor, id int64) error {
	if actor.AccountID == id {
		return ErrCannotDeleteSelf
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		acct, err := tx.Accounts().GetAccountByID(ctx, id)
		if err != nil {
			return err
		}
		if acct.Role == domain.RoleAdmin && acct.Status == domain.StatusActive {
			if err := ensureAnotherAdmin(ctx, tx); err != nil {
				return err
			}
		}
		return tx.Accounts().SoftDeleteAccount(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.Sessions.DeleteSession(ctx, id)
	slogx.FromContext(ctx).Info("account deleted", slog.Int64("account_id", id), slog.Int64("deleted_by", actor.AccountID))
	return nil
}

func (s *AccountService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.Store.Accounts().AccountStats(ctx)
}
