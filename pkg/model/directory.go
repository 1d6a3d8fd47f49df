package model

type Room struct {
	ID       string `json:"id" bson:"_id,omitempty"`
	Name     string `json:"name" bson:"name"`
	Capacity int    `json:"capacity" bson:"capacity"`
	Branch   string `json:"branch" bson:"branch"`
}

type User struct {
	ID     string `json:"id" bson:"_id,omitempty"`
	Name   string `json:"name" bson:"name"`
	Email  string `json:"email" bson:"email"`
	Branch string `json:"branch" bson:"branch"`
}

type Team struct {
	ID     string `json:"id" bson:"_id,omitempty"`
	Name   string `json:"name" bson:"name"`
	Branch string `json:"branch" bson:"branch"`
}

// TeamMember is one (team, user) membership row.
type TeamMember struct {
	ID     string `json:"-" bson:"_id,omitempty"`
	TeamID string `json:"team_id" bson:"team_id"`
	UserID string `json:"user_id" bson:"user_id"`
}

// Member is a resolved team member together with the team it came from.
type Member struct {
	UserID string `json:"user_id" bson:"user_id"`
	TeamID string `json:"team_id" bson:"team_id"`
}
