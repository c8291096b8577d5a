package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/bluesystem/verifika/internal/verifika/domain"
	"github.com/bluesystem/verifika/pkg/slogx"
)

var contactPhonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,20}$`)

// ContactService accepts submissions of the public contact form. Delivery
// is out of band: the submission is logged for the sales inbox to pick up.
type ContactService struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

type ContactInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Company    string `json:"company"`
	Employees  string `json:"employees"`
	Country    string `json:"country"`
	Service    string `json:"service"`
	Message    string `json:"message"`
	Timeline   string `json:"timeline"`
	Newsletter bool   `json:"newsletter"`

	// Website is never shown to people. Bots fill it in.
	Website string `json:"website"`
}

func (in ContactInput) Validate() error {
	services := make([]string, len(domain.ContactServices))
	for i, s := range domain.ContactServices {
		services[i] = s.Value
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(2, 50)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Phone, validation.Match(contactPhonePattern)),
		validation.Field(&in.Company, validation.Length(0, 100)),
		validation.Field(&in.Employees, oneOfStrings(domain.ContactCompanySizes)),
		validation.Field(&in.Country, oneOfStrings(domain.ContactCountries)),
		validation.Field(&in.Service, oneOfStrings(services)),
		validation.Field(&in.Message, validation.Required, validation.Length(10, 1000)),
		validation.Field(&in.Timeline, oneOfStrings(domain.ContactTimelines)),
	)
}

func oneOfStrings(values []string) validation.Rule {
	allowed := make([]interface{}, len(values))
	for i, v := range values {
		allowed[i] = v
	}
	return validation.In(allowed...)
}

// ContactOrigin describes where a submission came from.
type ContactOrigin struct {
	IP        string
	UserAgent string
}

// Services lists what the contact form offers.
func (s *ContactService) Services() []domain.ContactOption {
	return domain.ContactServices
}

// Submit validates and records a contact request. A filled honeypot field
// yields ErrSpam without revealing which field gave it away.
func (s *ContactService) Submit(ctx context.Context, in ContactInput, from ContactOrigin) (domain.ContactRequest, error) {
	log := slogx.FromContext(ctx)
	if in.Website != "" {
		log.Warn("contact form rejected", slog.String("reason", "honeypot"), slog.String("ip", from.IP))
		return domain.ContactRequest{}, ErrSpam
	}
	if err := validate(in); err != nil {
		return domain.ContactRequest{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	req := domain.ContactRequest{
		Name:        strings.TrimSpace(in.Name),
		Email:       domain.NormalizeEmail(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		Company:     strings.TrimSpace(in.Company),
		Employees:   orDefaultString(in.Employees, "no-especificado"),
		Country:     orDefaultString(in.Country, "no-especificado"),
		Service:     orDefaultString(in.Service, "no-especificado"),
		Message:     strings.TrimSpace(in.Message),
		Timeline:    orDefaultString(in.Timeline, "no-definido"),
		Newsletter:  in.Newsletter,
		SubmittedAt: now().UTC(),
		IP:          from.IP,
		UserAgent:   from.UserAgent,
	}
	log.Info("contact form received",
		slog.String("name", req.Name),
		slog.String("email", req.Email),
		slog.String("service", req.Service),
		slog.String("ip", req.IP),
	)
	return req, nil
}

func orDefaultString(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
