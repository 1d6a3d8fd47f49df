package service

import (
	"context"
	"fmt"
	"time"

	bookingserrors "roomly/internal/bookings/errors"
	"roomly/internal/bookings/repository"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
)

// ConflictChecker finds bookings of the same resource that intersect a
// proposed interval. Run it inside the write transaction, after the resource
// guard, or the answer may be stale by the time the write commits.
type ConflictChecker struct {
	bookings repository.BookingRepository
}

func NewConflictChecker(bookings repository.BookingRepository) *ConflictChecker {
	return &ConflictChecker{bookings: bookings}
}

// Conflicts returns every overlapping booking ordered by start time.
func (c *ConflictChecker) Conflicts(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]*model.Booking, error) {
	candidates, err := c.bookings.FindOverlapping(ctx, resourceID, start, end, excludeID)
	if err != nil {
		return nil, err
	}

	conflicts := candidates[:0]
	for _, b := range candidates {
		if b.ID != excludeID && b.Overlaps(start, end) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}

// Check fails with a CONFLICT AppError wrapping *ConflictError for the first
// overlapping booking.
func (c *ConflictChecker) Check(ctx context.Context, resourceID string, start, end time.Time, excludeID string) error {
	conflicts, err := c.Conflicts(ctx, resourceID, start, end, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}
	if len(conflicts) == 0 {
		return nil
	}
	return conflictError(conflicts[0])
}

func conflictError(existing *model.Booking) *apperrors.AppError {
	return apperrors.Conflict(fmt.Sprintf(
		"Booking time overlaps with existing booking (%s - %s)",
		existing.StartTime.Format(time.RFC3339),
		existing.EndTime.Format(time.RFC3339),
	)).
		WithCause(&bookingserrors.ConflictError{Booking: existing}).
		WithDetails(map[string]any{"conflicting_booking": existing})
}
