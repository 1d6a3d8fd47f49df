package errors

import (
	"errors"
	"fmt"
	"time"

	"roomly/pkg/model"
)

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrInvalidInterval = errors.New("invalid booking interval")
)

// ConflictError reports the first existing booking that overlaps a proposed interval.
type ConflictError struct {
	Booking *model.Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking overlaps %s on resource %s (%s - %s)",
		e.Booking.ID,
		e.Booking.ResourceID,
		e.Booking.StartTime.Format(time.RFC3339),
		e.Booking.EndTime.Format(time.RFC3339),
	)
}

// IntervalError explains why a start/end pair was rejected.
type IntervalError struct {
	Reason string
}

func (e *IntervalError) Error() string {
	return e.Reason
}

func (e *IntervalError) Unwrap() error {
	return ErrInvalidInterval
}
