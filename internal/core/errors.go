package core

import (
	"errors"
	"fmt"
)

// Caller errors. These are detected before any write is issued and map to
// 4xx responses; none of them is retried automatically.
var (
	ErrInvalidQuantity          = errors.New("invalid qty (must be > 0)")
	ErrQuantityExceedsRemaining = errors.New("done exceeds left qty")
	ErrInvalidMachine           = errors.New("invalid machine (must be 6/8/10)")
	ErrInvalidCartons           = errors.New("invalid cartons (must be >= 0)")
	ErrMissingStatus            = errors.New("missing status")
	ErrUnknownRegion            = errors.New("unknown region")
)

// IllegalTransitionError is returned in strict workflow mode when a status
// write would move a job backwards through its region's stage sequence.
type IllegalTransitionError struct {
	From string
	To   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition from %q to %q", e.From, e.To)
}

// MalformedQuantityError reports a stored remaining-quantity value that does
// not parse as a number even after separator cleanup. It indicates upstream
// data corruption and is surfaced as a server-side failure, never coerced
// to zero.
type MalformedQuantityError struct {
	Raw string
}

func (e *MalformedQuantityError) Error() string {
	return fmt.Sprintf("invalid remaining quantity on record: %q", e.Raw)
}
