package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"credit-coupling-api/internal/models"
)

var (
	validate   = validator.New(validator.WithRequiredStructEnabled())
	hundred    = decimal.NewFromInt(100)
	maxOffsets = 32
)

// ValidationError is a malformed request field at the HTTP boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ConfigurationError is a malformed credit offer. The catalog must not be used when one is raised.
type ConfigurationError struct {
	OfferID string
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.OfferID == "" {
		return fmt.Sprintf("configuration error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error on offer '%s' field '%s': %s", e.OfferID, e.Field, e.Message)
}

// InvalidFeedbackError is a feedback record that cannot be accepted.
type InvalidFeedbackError struct {
	Field   string
	Message string
}

func (e *InvalidFeedbackError) Error() string {
	return fmt.Sprintf("invalid feedback field '%s': %s", e.Field, e.Message)
}

// ValidateOffer checks a single catalog entry.
func ValidateOffer(offer models.CreditOffer) error {
	if err := validate.Struct(offer); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ConfigurationError{
				OfferID: offer.ID,
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed '%s' check", fe.Tag()),
			}
		}
		return &ConfigurationError{OfferID: offer.ID, Field: "offer", Message: err.Error()}
	}

	if offer.DiscountPercent.IsNegative() || offer.DiscountPercent.GreaterThan(hundred) {
		return &ConfigurationError{
			OfferID: offer.ID,
			Field:   "discount_percent",
			Message: "must be between 0 and 100",
		}
	}

	if offer.MinimumSpend.IsNegative() {
		return &ConfigurationError{
			OfferID: offer.ID,
			Field:   "minimum_spend",
			Message: "must be non-negative",
		}
	}

	return validateOffsets(offer.ID, offer.Attestation.ReminderOffsetsDays)
}

func validateOffsets(offerID string, offsets []int) error {
	if len(offsets) > maxOffsets {
		return &ConfigurationError{
			OfferID: offerID,
			Field:   "attestation.reminder_offsets_days",
			Message: fmt.Sprintf("cannot contain more than %d offsets", maxOffsets),
		}
	}

	for i, offset := range offsets {
		if offset < 0 {
			return &ConfigurationError{
				OfferID: offerID,
				Field:   fmt.Sprintf("attestation.reminder_offsets_days[%d]", i),
				Message: "must be non-negative",
			}
		}
		if i > 0 && offset >= offsets[i-1] {
			return &ConfigurationError{
				OfferID: offerID,
				Field:   "attestation.reminder_offsets_days",
				Message: "must be strictly decreasing",
			}
		}
	}

	return nil
}

// ValidateCatalog checks every offer and that ids are unique.
func ValidateCatalog(offers []models.CreditOffer) error {
	seen := make(map[string]bool, len(offers))
	for _, offer := range offers {
		if err := ValidateOffer(offer); err != nil {
			return err
		}
		if seen[offer.ID] {
			return &ConfigurationError{
				OfferID: offer.ID,
				Field:   "id",
				Message: "duplicate offer id",
			}
		}
		seen[offer.ID] = true
	}
	return nil
}

// ValidateAction accepts only accepted and rejected.
func ValidateAction(action models.Action) error {
	switch action {
	case models.ActionAccepted, models.ActionRejected:
		return nil
	case "":
		return &InvalidFeedbackError{Field: "action", Message: "is required"}
	default:
		return &InvalidFeedbackError{
			Field:   "action",
			Message: fmt.Sprintf("must be 'accepted' or 'rejected', got '%s'", action),
		}
	}
}

// ValidateSpend rejects negative spend values.
func ValidateSpend(spend models.ServiceSpend) error {
	for service, amount := range spend {
		if amount.IsNegative() {
			return &ValidationError{
				Field:   fmt.Sprintf("spend[%s]", service),
				Message: "must be non-negative",
			}
		}
	}
	return nil
}

// SanitizeSpend sanitizes service names. Two names that sanitize to the same
// service are rejected rather than merged.
func SanitizeSpend(raw models.ServiceSpend) (models.ServiceSpend, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(models.ServiceSpend, len(raw))
	seen := make(map[string]string, len(raw))
	for _, name := range names {
		clean := SanitizeString(name)
		if prev, ok := seen[clean]; ok {
			return nil, &ValidationError{
				Field:   fmt.Sprintf("spend[%s]", clean),
				Message: fmt.Sprintf("%q and %q name the same service", prev, name),
			}
		}
		seen[clean] = name
		out[clean] = raw[name]
	}
	return out, nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
