package jwtx

import (
	"slices"
	"strconv"
	"time"

	"github.com/bluesystem/verifika/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTokenTTL is the lifetime of a login token.
	DefaultAccessTokenTTL = 24 * time.Hour

	// DefaultRememberTokenTTL is the lifetime of a "remember me" login token.
	DefaultRememberTokenTTL = 30 * 24 * time.Hour
)

// Claims carry the identity snapshot taken when the token was issued. The
// JSON names are shared with the web frontends.
type Claims struct {
	jwt.RegisteredClaims

	AccountID int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Role      string `json:"rol"`
	Status    string `json:"estado"`
}

// Identity is the subset of an account that ends up in a token.
type Identity struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	Role      string
	Status    string
}

// AudienceFor binds a token to a single account.
func AudienceFor(accountID int64) string {
	return "user-" + strconv.FormatInt(accountID, 10)
}

// NewAccessClaims builds claims for id valid for ttl from now.
func NewAccessClaims(id Identity, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(id.ID, 10),
			Audience:  jwt.ClaimStrings{AudienceFor(id.ID)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		AccountID: id.ID,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Role:      id.Role,
		Status:    id.Status,
	}
}

// NewJTI returns a unique token id.
func NewJTI() string {
	return idx.New().String()
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// Identity returns the identity snapshot stored in the claims.
func (c *Claims) Identity() Identity {
	return Identity{
		ID:        c.AccountID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Role:      c.Role,
		Status:    c.Status,
	}
}
