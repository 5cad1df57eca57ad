package recordstore

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a record id the store does not know.
var ErrNotFound = errors.New("record not found")

// ValidationError is the store rejecting a patch because a field's configured
// type refused the payload. Callers may retry once with an alternate value
// representation; any other failure class must surface verbatim.
type ValidationError struct {
	StatusCode int
	Body       string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store rejected field payload (%d): %s", e.StatusCode, e.Body)
}

// UpstreamError is any other non-2xx answer from the store. Nothing was
// partially applied, so the caller may safely retry.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("store request failed (%d): %s", e.StatusCode, e.Body)
}

// IsValidation reports whether err is a field-type validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
