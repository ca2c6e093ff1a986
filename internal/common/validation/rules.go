package validation

import (
	"regexp"
	"strings"

	apperrors "barangay-portal/internal/common/errors"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// DigitsOnly strips everything but 0-9.
func DigitsOnly(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// ValidatePhone accepts 10 or 11 digits once separators are stripped,
// e.g. "0917 123 4567" or "(02) 8123-4567".
func ValidatePhone(phone string) bool {
	n := len(DigitsOnly(phone))
	return n == 10 || n == 11
}

// Checker accumulates field errors in the order checks are made.
type Checker struct {
	errs []ValidationError
}

func NewChecker() *Checker {
	return &Checker{}
}

func (c *Checker) Add(field, message, code string) *Checker {
	c.errs = append(c.errs, ValidationError{Field: field, Message: message, Code: code})
	return c
}

// Required flags blank (whitespace only) values.
func (c *Checker) Required(field, value string) *Checker {
	if strings.TrimSpace(value) == "" {
		c.Add(field, "This field is required", CodeRequired)
	}
	return c
}

// Email requires a value and checks the address shape.
func (c *Checker) Email(field, value string) *Checker {
	if strings.TrimSpace(value) == "" {
		return c.Required(field, value)
	}
	if !ValidateEmail(value) {
		c.Add(field, "Please enter a valid email address", CodeInvalidEmail)
	}
	return c
}

// Phone requires a value and checks the digit count.
func (c *Checker) Phone(field, value string) *Checker {
	if strings.TrimSpace(value) == "" {
		return c.Required(field, value)
	}
	if !ValidatePhone(value) {
		c.Add(field, "Phone number must have 10 to 11 digits", CodeInvalidPhone)
	}
	return c
}

// OneOf checks value against a closed set; blank values are left to Required.
func (c *Checker) OneOf(field, value string, allowed []string) *Checker {
	if value != "" && !contains(allowed, value) {
		c.Add(field, "Unsupported value", CodeInvalidEnum)
	}
	return c
}

// Check adds message when ok is false.
func (c *Checker) Check(ok bool, field, message string) *Checker {
	if !ok {
		c.Add(field, message, CodeInvalidValue)
	}
	return c
}

// Merge folds another result in, prefixing its fields.
func (c *Checker) Merge(prefix string, vr *ValidationResult) *Checker {
	if vr == nil {
		return c
	}
	for _, e := range vr.Errors {
		field := e.Field
		if prefix != "" {
			field = prefix + "." + field
		}
		c.Add(field, e.Message, e.Code)
	}
	return c
}

func (c *Checker) Result() *ValidationResult {
	return &ValidationResult{Valid: len(c.errs) == 0, Errors: c.errs}
}

// Err returns a VALIDATION_FAILED StandardError, or nil when every check passed.
func (c *Checker) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return apperrors.NewValidationError("Please correct the highlighted fields", c.Result().FieldMessages())
}
