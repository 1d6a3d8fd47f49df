package model

import "time"

const (
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// BookingChange is an append-only audit record of a booking mutation.
type BookingChange struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID string    `json:"booking_id" bson:"booking_id"`
	Action    string    `json:"action" bson:"action"`
	ActorID   string    `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Before    *Booking  `json:"before,omitempty" bson:"before,omitempty"`
	After     *Booking  `json:"after,omitempty" bson:"after,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
