package recommend

import (
	"errors"
	"fmt"

	"benefit-recommendation-api/internal/models"
)

// ErrInvalidRequest is wrapped by every FieldError.
var ErrInvalidRequest = errors.New("invalid ranking request")

// FieldError reports a required user or plan field that reached the engine
// empty. The transport layer is expected to reject these first.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("ranking request field '%s' is required", e.Field)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidRequest
}

func checkRequest(user models.UserProfile, plan models.Plan) error {
	switch {
	case user.Telecom == "":
		return &FieldError{Field: "user.telecom"}
	case len(user.Payments) == 0:
		return &FieldError{Field: "user.payments"}
	case plan.Datetime == "":
		return &FieldError{Field: "plan.datetime"}
	case plan.Brand == "":
		return &FieldError{Field: "plan.brand"}
	case plan.Category == "":
		return &FieldError{Field: "plan.category"}
	}
	return nil
}
