package service

import (
	"time"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/pkg/jwtx"
)

// TokenService issues bearer tokens for accounts.
type TokenService struct {
	Signer      jwtx.Signer
	Issuer      string
	TTL         time.Duration
	RememberTTL time.Duration

	// Now is overridden in tests.
	Now func() time.Time
}

// IssuedToken is a signed token and how long it stays valid.
type IssuedToken struct {
	Token string
	TTL   time.Duration
}

// Issue signs a token carrying a's identity. remember selects the long TTL.
func (s *TokenService) Issue(a domain.Account, remember bool) (IssuedToken, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}
	if remember {
		ttl = s.RememberTTL
		if ttl <= 0 {
			ttl = jwtx.DefaultRememberTokenTTL
		}
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	claims := jwtx.NewAccessClaims(a.Identity(), s.Issuer, ttl, now().UTC())
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: token, TTL: ttl}, nil
}
