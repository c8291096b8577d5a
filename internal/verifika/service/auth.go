package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/idx"
	"github.com/bluesystem/verifika/pkg/slogx"
)

var ErrRegistrationClosed = errors.New("public registration disabled")

type AuthService struct {
	Store    store.Store
	Sessions Sessions
	Tokens   *TokenService

	BcryptCost        int
	AllowRegistration bool

	decoyOnce sync.Once
	decoyHash string
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Password, validation.Required, validation.Length(1, 128)),
	)
}

// LoginResult is what a successful login or password change hands back.
type LoginResult struct {
	Account   domain.Account
	Token     string
	ExpiresIn time.Duration
}

// Login checks credentials and opens a session. Unknown emails, wrong
// passwords and accounts that are not activo all yield
// ErrInvalidCredentials; only the log line tells them apart.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if err := validate(in); err != nil {
		return LoginResult{}, err
	}
	log := slogx.FromContext(ctx)
	email := domain.NormalizeEmail(in.Email)

	acct, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.compareDecoy(in.Password)
			log.Info("login rejected", slog.String("reason", "unknown_email"), slog.String("email", email))
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !acct.VerifyPassword(in.Password) {
		log.Info("login rejected", slog.String("reason", "bad_password"), slog.Int64("account_id", acct.ID))
		return LoginResult{}, ErrInvalidCredentials
	}
	if acct.Status != domain.StatusActive {
		log.Info("login rejected",
			slog.String("reason", "account_unavailable"),
			slog.Int64("account_id", acct.ID),
			slog.String("estado", string(acct.Status)),
		)
		return LoginResult{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.Store.Accounts().TouchLastLogin(ctx, acct.ID, now); err != nil {
		log.Warn("last login not recorded", slog.Int64("account_id", acct.ID), slog.Any("error", err))
	} else {
		acct.LastLoginAt = &now
	}

	res, err := s.openSession(ctx, acct, in.Remember)
	if err != nil {
		return LoginResult{}, err
	}
	log.Info("login", slog.Int64("account_id", acct.ID), slog.String("rol", string(acct.Role)))
	return res, nil
}

// compareDecoy spends one bcrypt comparison at the configured cost so an
// unknown email answers no faster than a wrong password.
func (s *AuthService) compareDecoy(password string) {
	s.decoyOnce.Do(func() {
		s.decoyHash, _ = cryptox.HashPassword(idx.New().String(), s.BcryptCost)
	})
	_ = cryptox.VerifyPassword(password, s.decoyHash)
}

func (s *AuthService) openSession(ctx context.Context, acct domain.Account, remember bool) (LoginResult, error) {
	issued, err := s.Tokens.Issue(acct, remember)
	if err != nil {
		return LoginResult{}, err
	}
	if !s.Sessions.SetSession(ctx, acct.ID, issued.Token, issued.TTL) {
		slogx.FromContext(ctx).Warn("session not cached", slog.Int64("account_id", acct.ID))
	}
	return LoginResult{Account: acct, Token: issued.Token, ExpiresIn: issued.TTL}, nil
}

// Authenticate loads the account behind a verified token. Missing, deleted
// and suspended accounts are unavailable; inactivo and pendiente ones are
// inactive.
func (s *AuthService) Authenticate(ctx context.Context, accountID int64) (domain.Account, error) {
	acct, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrAccountUnavailable
		}
		return domain.Account{}, err
	}
	switch {
	case acct.Status.Unavailable():
		return domain.Account{}, ErrAccountUnavailable
	case acct.Status != domain.StatusActive:
		return domain.Account{}, ErrAccountInactive
	}
	return acct, nil
}

type RegisterInput struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FirstName string      `json:"nombre"`
	LastName  string      `json:"apellido"`
	Phone     string      `json:"telefono"`
	Role      domain.Role `json:"rol"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.Password, passwordRules...),
		validation.Field(&in.FirstName, nameRules...),
		validation.Field(&in.LastName, nameRules...),
		validation.Field(&in.Phone, phoneRules...),
		validation.Field(&in.Role, validation.In(domain.RoleTechnician)),
	)
}

// Register creates a pendiente tecnico account when self registration is on.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	if !s.AllowRegistration {
		return domain.Account{}, ErrRegistrationClosed
	}
	if err := validate(in); err != nil {
		return domain.Account{}, err
	}
	hash, err := cryptox.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return domain.Account{}, err
	}
	acct := domain.Account{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         domain.RoleTechnician,
		Status:       domain.StatusPending,
	}
	if err := s.Store.Accounts().CreateAccount(ctx, &acct); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, err
	}
	slogx.FromContext(ctx).Info("account registered", slog.Int64("account_id", acct.ID))
	return acct, nil
}

type TokenPasswordInput struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (in TokenPasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.Token, validation.Required, validation.Length(16, 128)),
		validation.Field(&in.Password, passwordRules...),
	)
}

// Activate redeems an invitation: it sets the password, verifies the email
// and moves the account to activo.
func (s *AuthService) Activate(ctx context.Context, in TokenPasswordInput) (domain.Account, error) {
	if err := validate(in); err != nil {
		return domain.Account{}, err
	}
	acct, err := s.Store.Accounts().GetAccountByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrInvalidToken
		}
		return domain.Account{}, err
	}
	if acct.Status.Unavailable() {
		return domain.Account{}, ErrInvalidToken
	}
	hash, err := cryptox.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return domain.Account{}, err
	}
	if !s.Sessions.ConsumeInvitation(ctx, in.Email, in.Token) {
		slogx.FromContext(ctx).Info("activation rejected", slog.Int64("account_id", acct.ID))
		return domain.Account{}, ErrInvalidToken
	}
	if err := s.Store.Accounts().ActivateAccount(ctx, acct.ID, hash); err != nil {
		// Hand the invitation back so the user can retry.
		if !s.Sessions.SetInvitation(ctx, in.Email, in.Token) {
			slogx.FromContext(ctx).Warn("invitation not restored", slog.Int64("account_id", acct.ID))
		}
		return domain.Account{}, err
	}
	acct.PasswordHash = hash
	acct.Status = domain.StatusActive
	acct.EmailVerified = true
	slogx.FromContext(ctx).Info("account activated", slog.Int64("account_id", acct.ID))
	return acct, nil
}

type EmailInput struct {
	Email string `json:"email"`
}

func (in EmailInput) Validate() error {
	return validation.ValidateStruct(&in, validation.Field(&in.Email, emailRules...))
}

// ForgotPassword caches a reset token when the email belongs to a live
// account. The returned token is empty otherwise; callers answer the same
// way in both cases.
func (s *AuthService) ForgotPassword(ctx context.Context, in EmailInput) (string, error) {
	if err := validate(in); err != nil {
		return "", err
	}
	log := slogx.FromContext(ctx)
	acct, err := s.Store.Accounts().GetAccountByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("password reset for unknown email")
			return "", nil
		}
		return "", err
	}
	if acct.Status.Unavailable() {
		log.Info("password reset for unavailable account", slog.Int64("account_id", acct.ID))
		return "", nil
	}
	token, err := cryptox.GenerateHexToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	if !s.Sessions.SetResetToken(ctx, acct.Email, token) {
		return "", nil
	}
	log.Info("password reset requested", slog.Int64("account_id", acct.ID))
	return token, nil
}

// ResetPassword redeems a reset token and drops the current session.
func (s *AuthService) ResetPassword(ctx context.Context, in TokenPasswordInput) error {
	if err := validate(in); err != nil {
		return err
	}
	acct, err := s.Store.Accounts().GetAccountByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	hash, err := cryptox.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return err
	}
	if !s.Sessions.ConsumeResetToken(ctx, acct.Email, in.Token) {
		return ErrInvalidToken
	}
	if err := s.Store.Accounts().UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		if !s.Sessions.SetResetToken(ctx, acct.Email, in.Token) {
			slogx.FromContext(ctx).Warn("reset token not restored", slog.Int64("account_id", acct.ID))
		}
		return err
	}
	s.Sessions.DeleteSession(ctx, acct.ID)
	slogx.FromContext(ctx).Info("password reset", slog.Int64("account_id", acct.ID))
	return nil
}

// Logout drops the cached session. It never fails.
func (s *AuthService) Logout(ctx context.Context, accountID int64) {
	if !s.Sessions.DeleteSession(ctx, accountID) {
		slogx.FromContext(ctx).Warn("session not removed", slog.Int64("account_id", accountID))
	}
}

// SessionActive reports whether token is the account's most recent session.
func (s *AuthService) SessionActive(ctx context.Context, accountID int64, token string) bool {
	return s.Sessions.SessionActive(ctx, accountID, token)
}

type ProfileInput struct {
	FirstName *string `json:"nombre"`
	LastName  *string `json:"apellido"`
	Phone     *string `json:"telefono"`
}

func (in ProfileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&in.LastName, validation.NilOrNotEmpty, validation.Length(2, 100)),
		validation.Field(&in.Phone, phoneRules...),
	)
}

func (in ProfileInput) apply(a *domain.Account) {
	if in.FirstName != nil {
		a.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.LastName = *in.LastName
	}
	if in.Phone != nil {
		a.Phone = *in.Phone
	}
}

func (s *AuthService) Me(ctx context.Context, accountID int64) (domain.Account, error) {
	acct, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrNotFound
	}
	return acct, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, accountID int64, in ProfileInput) (domain.Account, error) {
	if err := validate(in); err != nil {
		return domain.Account{}, err
	}
	acct, err := s.Me(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	in.apply(&acct)
	if err := s.Store.Accounts().UpdateAccount(ctx, acct); err != nil {
		return domain.Account{}, err
	}
	return s.Me(ctx, accountID)
}

type ChangePasswordInput struct {
	Current string `json:"password_actual"`
	New     string `json:"password_nuevo"`
}

func (in ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Current, validation.Required),
		validation.Field(&in.New, validation.Required, validation.Length(8, 128), validation.By(func(v interface{}) error {
			if v.(string) == in.Current {
				return errors.New("debe ser distinta de la actual")
			}
			return nil
		})),
	)
}

// ChangePassword replaces the password and opens a new session, which
// supersedes the previous one.
func (s *AuthService) ChangePassword(ctx context.Context, accountID int64, in ChangePasswordInput) (LoginResult, error) {
	if err := validate(in); err != nil {
		return LoginResult{}, err
	}
	acct, err := s.Me(ctx, accountID)
	if err != nil {
		return LoginResult{}, err
	}
	if !acct.VerifyPassword(in.Current) {
		return LoginResult{}, invalidField("password_actual", "contraseña actual incorrecta")
	}
	hash, err := cryptox.HashPassword(in.New, s.BcryptCost)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Store.Accounts().UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		return LoginResult{}, err
	}
	acct.PasswordHash = hash
	slogx.FromContext(ctx).Info("password changed", slog.Int64("account_id", acct.ID))
	return s.openSession(ctx, acct, false)
}
