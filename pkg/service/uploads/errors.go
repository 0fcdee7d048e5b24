package uploads

import (
	"errors"
	"fmt"
)

// RequiredFieldsMessage describes the fields an upload request must carry.
const RequiredFieldsMessage = "The following fields are required in the body: extension, tierListId"

// ErrSigningFailed is returned when the presigner could not produce an upload
// URL.
var ErrSigningFailed = errors.New("failed to generate upload URL")

// ErrMissingBucket is returned when a service is constructed without a bucket.
var ErrMissingBucket = errors.New("bucket name is required")

// ValidationError is returned when an upload request is missing data or
// cannot be decoded.
type ValidationError struct {
	msg string
	err error
}

func (ve ValidationError) Error() string {
	if ve.err != nil {
		return fmt.Sprintf("%s: %s", ve.msg, ve.err)
	}
	return ve.msg
}

func (ve ValidationError) Unwrap() error {
	return ve.err
}

// NewValidationError creates a ValidationError with the given message and an
// optional cause.
func NewValidationError(msg string, err error) ValidationError {
	return ValidationError{msg: msg, err: err}
}
