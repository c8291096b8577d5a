package service

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/bluesystem/verifika/internal/verifika/store"
)

// Sentinels shared by every service. The HTTP layer maps each to a status.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrDuplicate = errors.New("duplicate")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountUnavailable = errors.New("account unavailable")
	ErrAccountInactive    = errors.New("account inactive")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrSpam = errors.New("submission rejected")

	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrBusinessRule      = errors.New("business rule violated")
)

// ValidationError carries per-field messages keyed by the JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// validate runs v.Validate and turns ozzo field errors into a
// ValidationError.
func validate(v validation.Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
		for name, fe := range fieldErrs {
			out.Fields[name] = fe.Error()
		}
		return out
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	return &ValidationError{Fields: map[string]string{"body": err.Error()}}
}

// ruleError wraps a sentinel with a human readable reason. errors.Is still
// matches the sentinel.
type ruleError struct {
	sentinel error
	reason   string
}

func (e *ruleError) Error() string { return e.reason }
func (e *ruleError) Unwrap() error { return e.sentinel }

func businessRule(reason string) error {
	return &ruleError{sentinel: ErrBusinessRule, reason: reason}
}

func badTransition(reason string) error {
	return &ruleError{sentinel: ErrInvalidTransition, reason: reason}
}

// Reason returns the human readable part of a rule error, or "".
func Reason(err error) string {
	var re *ruleError
	if errors.As(err, &re) {
		return re.reason
	}
	return ""
}

// fromStore maps store sentinels onto service ones.
func fromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrDuplicate
	}
	return err
}
