package service

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/bluesystem/verifika/internal/verifika/domain"
)

var (
	emailRules    = []validation.Rule{validation.Required, validation.Length(5, 255), is.Email}
	passwordRules = []validation.Rule{validation.Required, validation.Length(8, 128)}
	nameRules     = []validation.Rule{validation.Required, validation.Length(2, 100)}
	phoneRules    = []validation.Rule{validation.Length(6, 20), validation.Match(phonePattern)}
	currencyRules = []validation.Rule{validation.Length(3, 3), is.UpperCase}
	clockRules    = []validation.Rule{validation.Required, validation.Match(clockPattern)}

	phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]+$`)
	clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)
)

type enum interface {
	~string
	Valid() bool
}

// oneOf accepts empty values and any value of T whose Valid method agrees.
func oneOf[T enum]() validation.Rule {
	return validation.By(func(value interface{}) error {
		v, isNil := validation.Indirect(value)
		if isNil || validation.IsEmpty(v) {
			return nil
		}
		if e, ok := v.(T); ok && e.Valid() {
			return nil
		}
		return errors.New("valor no permitido")
	})
}

// settableStatus rejects eliminado, which only soft delete may set.
var settableStatus = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil || validation.IsEmpty(v) {
		return nil
	}
	if s, ok := v.(domain.Status); ok && s.Valid() && s != domain.StatusDeleted {
		return nil
	}
	return errors.New("estado no permitido")
})

// Actor is the authenticated caller an operation runs on behalf of.
type Actor struct {
	AccountID int64
	Role      domain.Role
}
