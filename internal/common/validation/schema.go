package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// JSONSchema is a small structural schema used for homepage sections and
// other admin-edited JSON documents.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type       string              `json:"type"`
	Enum       []string            `json:"enum,omitempty"`
	Pattern    *string             `json:"pattern,omitempty"`
	MinLength  *int                `json:"minLength,omitempty"`
	MaxLength  *int                `json:"maxLength,omitempty"`
	Minimum    *float64            `json:"minimum,omitempty"`
	Items      *Property           `json:"items,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const (
	CodeRequired        = "REQUIRED_FIELD_MISSING"
	CodeInvalidType     = "INVALID_TYPE"
	CodePatternMismatch = "PATTERN_MISMATCH"
	CodeInvalidEnum     = "INVALID_ENUM_VALUE"
	CodeMinLength       = "MIN_LENGTH_VIOLATION"
	CodeMaxLength       = "MAX_LENGTH_VIOLATION"
	CodeMinimum         = "MINIMUM_VIOLATION"
	CodeExtraField      = "EXTRA_FIELD"
	CodeInvalidEmail    = "INVALID_EMAIL"
	CodeInvalidPhone    = "INVALID_PHONE"
	CodeInvalidValue    = "INVALID_VALUE"
)

func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	var errs []ValidationError

	for _, requiredField := range schema.Required {
		v, exists := input[requiredField]
		if !exists || v == nil {
			errs = append(errs, ValidationError{Field: requiredField, Message: "required field missing", Code: CodeRequired})
		}
	}

	for fieldName, value := range input {
		prop, exists := schema.Properties[fieldName]
		if !exists {
			if !schema.AdditionalProperties {
				errs = append(errs, ValidationError{Field: fieldName, Message: "field not allowed in schema", Code: CodeExtraField})
			}
			continue
		}
		if value == nil {
			continue
		}
		errs = append(errs, validateField(fieldName, value, prop)...)
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateField(fieldName string, value interface{}, prop Property) []ValidationError {
	var errs []ValidationError

	if typeErr := validateType(value, prop.Type); typeErr != nil {
		return []ValidationError{{Field: fieldName, Message: typeErr.Error(), Code: CodeInvalidType}}
	}

	if strVal, ok := value.(string); ok {
		if prop.MinLength != nil && len(strings.TrimSpace(strVal)) < *prop.MinLength {
			errs = append(errs, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength),
				Code:    CodeMinLength,
			})
		}
		if prop.MaxLength != nil && len(strVal) > *prop.MaxLength {
			errs = append(errs, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength),
				Code:    CodeMaxLength,
			})
		}
		if prop.Pattern != nil {
			matched, err := regexp.MatchString(*prop.Pattern, strVal)
			if err != nil || !matched {
				errs = append(errs, ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("value must match pattern %s", *prop.Pattern),
					Code:    CodePatternMismatch,
				})
			}
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, strVal) {
			errs = append(errs, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be one of %v", prop.Enum),
				Code:    CodeInvalidEnum,
			})
		}
	}

	if numVal, ok := value.(float64); ok && prop.Minimum != nil && numVal < *prop.Minimum {
		errs = append(errs, ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("value must be >= %v", *prop.Minimum),
			Code:    CodeMinimum,
		})
	}

	if arrVal, ok := value.([]interface{}); ok && prop.Items != nil {
		for i, item := range arrVal {
			errs = append(errs, validateField(fmt.Sprintf("%s[%d]", fieldName, i), item, *prop.Items)...)
		}
	}

	if objVal, ok := value.(map[string]interface{}); ok && prop.Properties != nil {
		nested := ValidateInput(objVal, JSONSchema{
			Type:                 "object",
			Properties:           prop.Properties,
			Required:             prop.Required,
			AdditionalProperties: true,
		})
		for _, nestedErr := range nested.Errors {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.%s", fieldName, nestedErr.Field),
				Message: nestedErr.Message,
				Code:    nestedErr.Code,
			})
		}
	}

	return errs
}

func validateType(value interface{}, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// FieldMessages flattens the result to one message per field, first wins.
func (vr *ValidationResult) FieldMessages() map[string]string {
	out := make(map[string]string, len(vr.Errors))
	for _, err := range vr.Errors {
		if _, seen := out[err.Field]; !seen {
			out[err.Field] = err.Message
		}
	}
	return out
}
