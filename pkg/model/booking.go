package model

import (
	"time"
)

// Booking is a reservation of one resource for a half-open interval [StartTime, EndTime).
type Booking struct {
	ID           string        `json:"id,omitempty" bson:"_id,omitempty"`
	ResourceID   string        `json:"resource_id" bson:"resource_id"`
	ResourceName string        `json:"resource_name" bson:"resource_name"`
	Title        string        `json:"title" bson:"title"`
	OrganizerID  string        `json:"organizer_id" bson:"organizer_id"`
	StartTime    time.Time     `json:"start_time" bson:"start_time"`
	EndTime      time.Time     `json:"end_time" bson:"end_time"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" bson:"updated_at"`
	Participants []Participant `json:"participants,omitempty" bson:"-"`
}

// Overlaps applies the half-open rule: touching endpoints do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

type CreateBookingRequest struct {
	ResourceID     string   `json:"resource_id" validate:"required,mongodb"`
	Title          string   `json:"title" validate:"required,min=1,max=200"`
	OrganizerID    string   `json:"organizer_id" validate:"required,mongodb"`
	Start          string   `json:"start" validate:"required"`
	End            string   `json:"end" validate:"required"`
	TeamIDs        []string `json:"team_ids,omitempty" validate:"omitempty,dive,mongodb"`
	ParticipantIDs []string `json:"participant_ids,omitempty" validate:"omitempty,dive,mongodb"`
}

// UpdateBookingRequest replaces the booking's fields. A nil TeamIDs and nil
// ParticipantIDs keep the current participant set; any non-nil list makes the
// set be resolved again from the given lists.
type UpdateBookingRequest struct {
	ResourceID     string    `json:"resource_id" validate:"required,mongodb"`
	Title          string    `json:"title" validate:"required,min=1,max=200"`
	Start          string    `json:"start" validate:"required"`
	End            string    `json:"end" validate:"required"`
	ActorID        string    `json:"actor_id,omitempty" validate:"omitempty,mongodb"`
	TeamIDs        *[]string `json:"team_ids,omitempty" validate:"omitempty,dive,mongodb"`
	ParticipantIDs *[]string `json:"participant_ids,omitempty" validate:"omitempty,dive,mongodb"`
}

func (r *UpdateBookingRequest) ReplacesParticipants() bool {
	return r.TeamIDs != nil || r.ParticipantIDs != nil
}
