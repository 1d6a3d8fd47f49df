package model

import "time"

const (
	NotificationCreated   = "created"
	NotificationAdded     = "added"
	NotificationUpdated   = "updated"
	NotificationRemoved   = "removed"
	NotificationCancelled = "cancelled"
)

type Notification struct {
	ID          string     `json:"id,omitempty" bson:"_id,omitempty"`
	UserID      string     `json:"user_id" bson:"user_id"`
	BookingID   string     `json:"booking_id" bson:"booking_id"`
	Kind        string     `json:"kind" bson:"kind"`
	Message     string     `json:"message" bson:"message"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty" bson:"read_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
}

// NotificationEvent is the message published for each committed notification row.
type NotificationEvent struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	BookingID      string    `json:"booking_id"`
	Kind           string    `json:"kind"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

func (n *Notification) Event() NotificationEvent {
	return NotificationEvent{
		NotificationID: n.ID,
		UserID:         n.UserID,
		BookingID:      n.BookingID,
		Kind:           n.Kind,
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
	}
}
