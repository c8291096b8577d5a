package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/internal/verifika/store"
	"github.com/bluesystem/verifika/pkg/cryptox"
	"github.com/bluesystem/verifika/pkg/slogx"
)

var (
	ErrBootstrapDisabled     = errors.New("bootstrap disabled")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
)

type BootstrapService struct {
	Store      store.Store
	Token      string
	BcryptCost int
}

// Bootstrap creates the first admin. It is refused once any admin exists.
func (s *BootstrapService) Bootstrap(ctx context.Context, token string, in RegisterInput) (domain.Account, error) {
	log := slogx.FromContext(ctx)
	if s.Token == "" {
		return domain.Account{}, ErrBootstrapDisabled
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		log.Warn("unauthorized bootstrap attempt")
		return domain.Account{}, ErrBootstrapUnauthorized
	}
	in.Role = ""
	if err := validate(in); err != nil {
		return domain.Account{}, err
	}
	hash, err := cryptox.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return domain.Account{}, err
	}

	acct := domain.Account{
		Email:         in.Email,
		PasswordHash:  hash,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Phone:         in.Phone,
		Role:          domain.RoleAdmin,
		Status:        domain.StatusActive,
		EmailVerified: true,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.Accounts().CountAdmins(ctx, "")
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrBootstrapAlready
		}
		return tx.Accounts().CreateAccount(ctx, &acct)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrEmailTaken
		}
		if errors.Is(err, ErrBootstrapAlready) {
			log.Warn("attempted bootstrap on already-bootstrapped system")
		}
		return domain.Account{}, err
	}
	log.Info("system bootstrapped", slog.Int64("account_id", acct.ID))
	return acct, nil
}
