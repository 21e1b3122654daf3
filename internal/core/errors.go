package core

import (
	"errors"
	"strings"
)

// Error kinds. Every domain error wraps exactly one of these so the HTTP boundary
// can map it with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrConflict          = errors.New("conflict")
)

var (
	ErrDonorNotFound    = kindError{msg: "Donor not found", kind: ErrNotFound}
	ErrCampaignNotFound = kindError{msg: "Campaign not found", kind: ErrNotFound}
	ErrDonationNotFound = kindError{msg: "Donation not found", kind: ErrNotFound}

	ErrInvalidDonorID    = kindError{msg: "Invalid donor ID", kind: ErrInvalidIdentifier}
	ErrInvalidCampaignID = kindError{msg: "Invalid campaign ID", kind: ErrInvalidIdentifier}
	ErrInvalidDonationID = kindError{msg: "Invalid donation ID", kind: ErrInvalidIdentifier}

	ErrDuplicateEmail          = kindError{msg: "A donor with this email already exists", kind: ErrConflict}
	ErrDuplicateTransactionID  = kindError{msg: "A donation with this transaction ID already exists", kind: ErrConflict}
	ErrCompletedDonationDelete = kindError{msg: "Cannot delete completed donations", kind: ErrConflict}
	ErrCampaignHasDonations    = kindError{msg: "Cannot delete campaign with existing donations. Consider cancelling it instead.", kind: ErrConflict}
)

// kindError carries a user-facing message and the kind it belongs to.
type kindError struct {
	msg  string
	kind error
}

func (e kindError) Error() string { return e.msg }

func (e kindError) Unwrap() error { return e.kind }

// Message returns the user-facing message of the outermost domain error in err's
// chain, or "" when err carries none.
func Message(err error) string {
	var ke kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return ""
}

// FieldError describes a single violated field constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every violated constraint of a write or a query.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// Err returns nil when nothing was collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsValidation reports whether err is (or wraps) a ValidationErrors.
func IsValidation(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
