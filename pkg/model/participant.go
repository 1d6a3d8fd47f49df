package model

import "time"

// Participant links a user to a booking. TeamID is set only when the user was
// added by expanding a team.
type Participant struct {
	ID        string    `json:"-" bson:"_id,omitempty"`
	BookingID string    `json:"booking_id" bson:"booking_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	TeamID    *string   `json:"team_id,omitempty" bson:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
