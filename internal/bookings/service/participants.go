package service

import (
	"context"

	directory "roomly/internal/directory/repository"
	"roomly/pkg/model"
)

// ParticipantResolver expands teams into users. Only members in the
// organizer's branch are kept. Membership is read fresh on every call.
type ParticipantResolver struct {
	teams directory.TeamRepository
}

func NewParticipantResolver(teams directory.TeamRepository) *ParticipantResolver {
	return &ParticipantResolver{teams: teams}
}

// Resolve returns the deduplicated participant set in insertion order: team
// members tagged with their team, then the listed users, then the organizer.
// A user keeps the tag of the first way they were added.
func (r *ParticipantResolver) Resolve(ctx context.Context, organizer *model.User, teamIDs, userIDs []string) ([]model.Member, error) {
	seen := make(map[string]struct{})
	var resolved []model.Member

	add := func(m model.Member) {
		if _, ok := seen[m.UserID]; ok {
			return
		}
		seen[m.UserID] = struct{}{}
		resolved = append(resolved, m)
	}

	if len(teamIDs) > 0 {
		members, err := r.teams.FindMembersInBranch(ctx, teamIDs, organizer.Branch)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			add(m)
		}
	}

	for _, id := range userIDs {
		add(model.Member{UserID: id})
	}

	add(model.Member{UserID: organizer.ID})

	return resolved, nil
}

func toParticipant(bookingID string, m model.Member) *model.Participant {
	p := &model.Participant{BookingID: bookingID, UserID: m.UserID}
	if m.TeamID != "" {
		teamID := m.TeamID
		p.TeamID = &teamID
	}
	return p
}
