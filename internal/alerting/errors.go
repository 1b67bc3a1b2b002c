package alerting

import (
	"errors"

	"bloodalert/pkg/types"
)

func forbidden(caller types.Caller, operation string) error {
	var role types.Role
	if caller != nil {
		role = caller.CallerRole()
	}
	return &types.AuthorizationError{Role: role, Operation: operation}
}

func invalid(field, reason string) error {
	return &types.ValidationError{Field: field, Reason: reason}
}

// alertNotFound converts the store sentinel into the typed error callers
// match on; other errors pass through.
func alertNotFound(err error, alertID string) error {
	if errors.Is(err, types.ErrAlertNotFound) {
		return &types.NotFoundError{Resource: "alert", ID: alertID}
	}
	return err
}
