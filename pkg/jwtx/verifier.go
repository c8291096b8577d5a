package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Leeway allows small clock skew when validating exp/nbf/iat.
	Leeway time.Duration
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrClaims      = errors.New("jwtx: invalid claims")
)

// Kind groups verification failures the way clients see them.
type Kind string

const (
	KindExpired      Kind = "TOKEN_EXPIRED"
	KindInvalid      Kind = "TOKEN_INVALID"
	KindVerification Kind = "TOKEN_VERIFICATION_ERROR"
)

// VerifyError is returned by Verify for every rejected token.
type VerifyError struct {
	Kind Kind
	Err  error
}

func (e *VerifyError) Error() string { return e.Err.Error() }
func (e *VerifyError) Unwrap() error { return e.Err }

// KindOf classifies err. Errors not produced by a Verifier are verification
// errors.
func KindOf(err error) Kind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindVerification
}

// HS256Verifier checks HMAC-SHA256 tokens issued by this service.
type HS256Verifier struct {
	secret []byte
	opts   VerifyOptions
	parser *jwt.Parser
}

// NewVerifierHS256 returns a verifier bound to secret.
func NewVerifierHS256(secret []byte, opts VerifyOptions) (*HS256Verifier, error) {
	if err := CheckSecret(secret); err != nil {
		return nil, err
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	return &HS256Verifier{
		secret: secret,
		opts:   opts,
		parser: jwt.NewParser(parserOpts...),
	}, nil
}

// Verify parses raw, checks the signature before trusting any claim, then
// checks expiry, issuer and the per-account audience.
func (v *HS256Verifier) Verify(raw string) (Claims, error) {
	var claims Claims
	tok, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}
	if !tok.Valid {
		return Claims{}, &VerifyError{Kind: KindInvalid, Err: ErrInvalidSig}
	}

	if claims.AccountID <= 0 {
		return Claims{}, &VerifyError{Kind: KindInvalid, Err: ErrClaims}
	}
	if err := claims.ValidateAudience([]string{AudienceFor(claims.AccountID)}); err != nil {
		return Claims{}, &VerifyError{Kind: KindInvalid, Err: err}
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerifyError{Kind: KindExpired, Err: fmt.Errorf("%w: %w", ErrExpired, err)}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &VerifyError{Kind: KindInvalid, Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &VerifyError{Kind: KindInvalid, Err: fmt.Errorf("%w: %w", ErrInvalidSig, err)}
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return &VerifyError{Kind: KindInvalid, Err: fmt.Errorf("%w: %w", ErrIssuer, err)}
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return &VerifyError{Kind: KindInvalid, Err: fmt.Errorf("%w: %w", ErrAudience, err)}
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return &VerifyError{Kind: KindInvalid, Err: fmt.Errorf("%w: %w", ErrClaims, err)}
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return &VerifyError{Kind: KindVerification, Err: fmt.Errorf("%w: %w", ErrNotYetValid, err)}
	default:
		return &VerifyError{Kind: KindVerification, Err: err}
	}
}
