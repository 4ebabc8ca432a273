// Package validation checks template declarations before they reach the
// store and user input before it is accepted for a variable.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/models"
)

// DateLayout is the only accepted shape for date variables
const DateLayout = "2006-01-02"

const (
	maxTitleLength       = 500
	maxCategoryLength    = 200
	maxDescriptionLength = 2000
	maxContentLength     = 100000
	maxTagLength         = 50
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	tagPattern  = regexp.MustCompile(`^[\p{L}\p{N} _.-]+$`)
)

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors,omitempty"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationWarning represents a field validation warning
type ValidationWarning struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func newResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

func (r *ValidationResult) fail(field, code, message string, value interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Code:    code,
		Message: message,
		Value:   value,
	})
}

func (r *ValidationResult) warn(field, message string, value interface{}) {
	r.Warnings = append(r.Warnings, ValidationWarning{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// ValidateCreate validates the fields of a new template
func ValidateCreate(in models.CreateInput) *ValidationResult {
	r := newResult()
	checkRequired(r, "title", in.Title)
	checkRequired(r, "category", in.Category)
	checkLength(r, "title", in.Title, maxTitleLength)
	checkLength(r, "category", in.Category, maxCategoryLength)
	checkLength(r, "description", in.Description, maxDescriptionLength)
	checkLength(r, "content", in.Content, maxContentLength)
	checkTags(r, in.Tags)
	checkVariables(r, in.Variables)
	return r
}

// ValidateUpdate validates the fields present in a partial update
func ValidateUpdate(in models.UpdateInput) *ValidationResult {
	r := newResult()
	checkRequired(r, "id", in.ID)
	if in.Title != nil {
		checkRequired(r, "title", *in.Title)
		checkLength(r, "title", *in.Title, maxTitleLength)
	}
	if in.Category != nil {
		checkRequired(r, "category", *in.Category)
		checkLength(r, "category", *in.Category, maxCategoryLength)
	}
	if in.Description != nil {
		checkLength(r, "description", *in.Description, maxDescriptionLength)
	}
	if in.Content != nil {
		checkLength(r, "content", *in.Content, maxContentLength)
	}
	if in.Tags != nil {
		checkTags(r, *in.Tags)
	}
	if in.Variables != nil {
		checkVariables(r, *in.Variables)
	}
	return r
}

// ValidateVariables validates a declaration list on its own
func ValidateVariables(vars []models.Variable) *ValidationResult {
	r := newResult()
	checkVariables(r, vars)
	return r
}

func checkRequired(r *ValidationResult, field, value string) {
	if strings.TrimSpace(value) == "" {
		r.fail(field, "REQUIRED_FIELD_MISSING", fmt.Sprintf("Field '%s' is required", field), nil)
	}
}

func checkLength(r *ValidationResult, field, value string, max int) {
	if len(value) > max {
		r.fail(field, "MAX_LENGTH_VIOLATION",
			fmt.Sprintf("Field '%s' must be at most %d characters long", field, max), nil)
	}
}

func checkTags(r *ValidationResult, tags []string) {
	for i, tag := range tags {
		switch {
		case len(tag) > maxTagLength:
			r.fail("tags", "MAX_LENGTH_VIOLATION",
				fmt.Sprintf("tag at position %d is too long (max %d characters)", i, maxTagLength), tag)
		case !tagPattern.MatchString(tag):
			r.fail("tags", "PATTERN_MISMATCH",
				fmt.Sprintf("tag at position %d contains invalid characters", i), tag)
		}
	}
}

func checkVariables(r *ValidationResult, vars []models.Variable) {
	seen := make(map[string]bool, len(vars))
	for i, v := range vars {
		field := fmt.Sprintf("variables[%d]", i)

		if v.Name == "" {
			r.fail(field, "REQUIRED_FIELD_MISSING", "variable name is required", nil)
			continue
		}
		// A '}' in the name can never be matched by the scanner.
		if strings.Contains(v.Name, "}") {
			r.fail(field, "PATTERN_MISMATCH",
				fmt.Sprintf("variable name %q must not contain '}'", v.Name), v.Name)
		}
		if !v.Type.IsValid() {
			r.fail(field, "INVALID_OPTION",
				fmt.Sprintf("variable %q has unknown type %q", v.Name, v.Type), string(v.Type))
		}
		if v.Type == models.VariableSelect && len(v.Options) == 0 {
			r.fail(field, "REQUIRED_FIELD_MISSING",
				fmt.Sprintf("select variable %q needs at least one option", v.Name), nil)
		}
		if v.DefaultValue != "" {
			if err := ValidateInput(v.Type, v.DefaultValue); err != nil {
				r.fail(field, "INVALID_FORMAT",
					fmt.Sprintf("default value of %q: %v", v.Name, err), v.DefaultValue)
			}
		}
		if seen[v.Name] {
			r.warn(field, fmt.Sprintf("variable %q is declared more than once; the last declaration wins", v.Name), v.Name)
		}
		seen[v.Name] = true
	}
}

// ValidateInput checks a non-empty user-supplied value against the
// syntactic rules of its variable type. Empty input is always accepted; it
// means "no value supplied".
func ValidateInput(t models.VariableType, value string) error {
	if value == "" {
		return nil
	}
	switch t {
	case models.VariableNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%q is not a number", value)
		}
	case models.VariableDate:
		if !datePattern.MatchString(value) {
			return fmt.Errorf("%q is not a date in YYYY-MM-DD form", value)
		}
	}
	return nil
}

// ToAppError converts validation result to AppError
func (r *ValidationResult) ToAppError() *errors.AppError {
	if r.Valid {
		return nil
	}

	if len(r.Errors) == 0 {
		return errors.ValidationError("Validation failed")
	}

	appErr := errors.ValidationError(r.Errors[0].Message)

	var details []string
	for _, validationErr := range r.Errors {
		details = append(details, fmt.Sprintf("%s: %s", validationErr.Field, validationErr.Message))
	}
	appErr.WithDetails(strings.Join(details, "; "))

	appErr.WithContext("validation_errors", r.Errors)
	if len(r.Warnings) > 0 {
		appErr.WithContext("validation_warnings", r.Warnings)
	}

	return appErr
}
