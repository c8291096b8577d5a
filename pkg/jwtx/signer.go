package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted at startup.
const MinSecretLength = 32

var (
	ErrNoSecret    = errors.New("jwtx: signing secret not configured")
	ErrWeakSecret  = errors.New("jwtx: signing secret too short")
	ErrSignFailure = errors.New("jwtx: failed to sign token")
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

type hs256Signer struct {
	secret []byte
}

// NewSignerHS256 creates an HMAC-SHA256 signer. An empty secret is a startup
// error, never a per-call one.
func NewSignerHS256(secret []byte) (Signer, error) {
	if err := CheckSecret(secret); err != nil {
		return nil, err
	}
	return &hs256Signer{secret: secret}, nil
}

// CheckSecret reports whether secret is usable for HS256.
func CheckSecret(secret []byte) error {
	if len(secret) == 0 {
		return ErrNoSecret
	}
	if len(secret) < MinSecretLength {
		return ErrWeakSecret
	}
	return nil
}

func (s *hs256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (s *hs256Signer) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", errors.Join(ErrSignFailure, err)
	}
	return signed, nil
}
