package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"benefit-recommendation-api/internal/models"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field names are reported by their
// json tag.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateRecommendRequest checks a sanitized request. The first failing
// field is returned as a *ValidationError.
func ValidateRecommendRequest(req models.RecommendRequest) error {
	return validateStruct(req)
}

// ValidateFeatureUpdate checks the body of a feature flag update.
func ValidateFeatureUpdate(req models.FeatureUpdateRequest) error {
	return validateStruct(req)
}

func validateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "request", Message: err.Error()}
	}

	fe := fieldErrs[0]
	return &ValidationError{
		Field:   fieldPath(fe.Namespace()),
		Message: message(fe),
	}
}

// fieldPath drops the top-level struct name: "RecommendRequest.user.telecom"
// becomes "user.telecom".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}

// SanitizeRecommendRequest strips control characters and surrounding space
// from every string the engine compares. Empty payment entries are kept so
// validation can reject them.
func SanitizeRecommendRequest(req *models.RecommendRequest) {
	req.User.Telecom = SanitizeString(req.User.Telecom)
	for i, p := range req.User.Payments {
		req.User.Payments[i] = SanitizeString(p)
	}
	req.Plan.Datetime = SanitizeString(req.Plan.Datetime)
	req.Plan.Brand = SanitizeString(req.Plan.Brand)
	req.Plan.Category = SanitizeString(req.Plan.Category)
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
