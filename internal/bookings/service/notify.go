package service

import (
	"context"
	"fmt"
	"time"

	"roomly/pkg/kafka"
	"roomly/pkg/model"
)

const (
	NotificationEventType     = "booking.notification"
	notificationSchemaVersion = "1"
	whenLayout                = "Mon 2 Jan 2006 15:04"
)

func (s *bookingService) notification(kind string, userID string, b *model.Booking) *model.Notification {
	return &model.Notification{
		UserID:    userID,
		BookingID: b.ID,
		Kind:      kind,
		Message:   s.message(kind, b),
	}
}

func (s *bookingService) message(kind string, b *model.Booking) string {
	loc := s.cfg.BookingLocation()
	when := fmt.Sprintf("%s-%s", b.StartTime.In(loc).Format(whenLayout), b.EndTime.In(loc).Format("15:04"))

	switch kind {
	case model.NotificationCreated:
		return fmt.Sprintf("You booked %s for %q on %s", b.ResourceName, b.Title, when)
	case model.NotificationAdded:
		return fmt.Sprintf("You were invited to %q in %s on %s", b.Title, b.ResourceName, when)
	case model.NotificationUpdated:
		return fmt.Sprintf("%q was changed and is now in %s on %s", b.Title, b.ResourceName, when)
	case model.NotificationRemoved:
		return fmt.Sprintf("You were removed from %q in %s on %s", b.Title, b.ResourceName, when)
	case model.NotificationCancelled:
		return fmt.Sprintf("%q in %s on %s was cancelled", b.Title, b.ResourceName, when)
	default:
		return fmt.Sprintf("%q in %s on %s", b.Title, b.ResourceName, when)
	}
}

// publish hands committed notifications to the broker in the background.
// Failures are logged and counted; the booking is already committed.
func (s *bookingService) publish(correlationID string, notifications []*model.Notification) {
	if s.publisher == nil || len(notifications) == 0 {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotificationPublishTimeout)
		defer cancel()

		for _, n := range notifications {
			msg, err := kafka.NewMessage().
				WithKey(n.UserID).
				WithValue(n.Event()).
				WithEventType(NotificationEventType).
				WithCorrelationID(correlationID).
				WithSchemaVersion(notificationSchemaVersion).
				WithSource(s.cfg.ServiceName).
				Build()
			if err == nil {
				err = s.publisher.Publish(ctx, msg)
			}
			if err != nil {
				s.cfg.Log.Warn("Failed to publish notification",
					"notification_id", n.ID,
					"booking_id", n.BookingID,
					"user_id", n.UserID,
					"error", err,
				)
				if s.metrics != nil {
					s.metrics.NotificationsFailed.Inc()
				}
				continue
			}
			if s.metrics != nil {
				s.metrics.NotificationsQueued.Inc()
			}
		}
	}()
}

// Wait blocks until background notification publishing has finished.
func (s *bookingService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func since(t time.Time) time.Duration {
	return time.Since(t).Round(time.Millisecond)
}
