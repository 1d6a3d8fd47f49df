package validator

import (
	"errors"
	"strings"
	"testing"
	"time"

	bookingserrors "roomly/internal/bookings/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"
)

func TestParseInterval(t *testing.T) {
	plus3 := time.FixedZone("UTC+03:00", 3*3600)

	tests := []struct {
		name      string
		start     string
		end       string
		loc       *time.Location
		wantStart time.Time
		wantEnd   time.Time
		wantErr   string
	}{
		{
			name:      "rfc3339 utc",
			start:     "2025-03-10T09:00:00Z",
			end:       "2025-03-10T10:00:00Z",
			wantStart: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		},
		{
			name:      "explicit offset wins over location",
			start:     "2025-03-10T09:00:00+02:00",
			end:       "2025-03-10T10:00:00+02:00",
			loc:       plus3,
			wantStart: time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "fractional seconds",
			start:     "2025-03-10T09:00:00.250Z",
			end:       "2025-03-10T09:00:00.500Z",
			wantStart: time.Date(2025, 3, 10, 9, 0, 0, 250_000_000, time.UTC),
			wantEnd:   time.Date(2025, 3, 10, 9, 0, 0, 500_000_000, time.UTC),
		},
		{
			name:      "naive minutes in local offset",
			start:     "2025-03-10T09:00",
			end:       "2025-03-10T10:30",
			loc:       plus3,
			wantStart: time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC),
		},
		{
			name:      "naive with space and seconds",
			start:     "2025-03-10 09:00:15",
			end:       "2025-03-10 09:00:45",
			wantStart: time.Date(2025, 3, 10, 9, 0, 15, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 10, 9, 0, 45, 0, time.UTC),
		},
		{
			name:      "surrounding whitespace",
			start:     " 2025-03-10T09:00 ",
			end:       "2025-03-10T10:00\n",
			wantStart: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		},
		{name: "end before start", start: "2025-03-10T10:00", end: "2025-03-10T09:00", wantErr: "start must be before end"},
		{name: "zero length", start: "2025-03-10T10:00", end: "2025-03-10T10:00", wantErr: "start must be before end"},
		{name: "garbage start", start: "10am", end: "2025-03-10T10:00", wantErr: "start"},
		{name: "garbage end", start: "2025-03-10T10:00", end: "2025-13-40T10:00", wantErr: "end"},
		{name: "empty", start: "", end: "", wantErr: "start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseInterval(tt.start, tt.end, tt.loc)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error, got [%s, %s)", start, end)
				}
				if !errors.Is(err, bookingserrors.ErrInvalidInterval) {
					t.Errorf("error %v does not match ErrInvalidInterval", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not mention %q", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("got [%s, %s), want [%s, %s)", start, end, tt.wantStart, tt.wantEnd)
			}
			if start.Location() != time.UTC {
				t.Errorf("start should be normalized to UTC, got %s", start.Location())
			}
		})
	}
}

func newValidator() *BookingValidator {
	return NewBookingValidator(Limits{MaxTitleLength: 20, MaxParticipants: 3}, logger.Discard())
}

func validCreate() *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		ResourceID:  "507f1f77bcf86cd799439011",
		Title:       "Standup",
		OrganizerID: "507f1f77bcf86cd799439012",
		Start:       "2025-03-10T09:00",
		End:         "2025-03-10T09:15",
	}
}

func TestValidateCreate(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name      string
		mutate    func(r *model.CreateBookingRequest)
		wantField string
	}{
		{name: "valid", mutate: func(r *model.CreateBookingRequest) {}},
		{name: "missing resource", mutate: func(r *model.CreateBookingRequest) { r.ResourceID = "" }, wantField: "resource_id"},
		{name: "bad organizer id", mutate: func(r *model.CreateBookingRequest) { r.OrganizerID = "olivia" }, wantField: "organizer_id"},
		{name: "bad team id", mutate: func(r *model.CreateBookingRequest) { r.TeamIDs = []string{"team-a"} }, wantField: "team_ids[0]"},
		{name: "title over configured limit", mutate: func(r *model.CreateBookingRequest) { r.Title = strings.Repeat("x", 21) }, wantField: "title"},
		{
			name: "too many listed participants",
			mutate: func(r *model.CreateBookingRequest) {
				r.ParticipantIDs = []string{
					"507f1f77bcf86cd799439013",
					"507f1f77bcf86cd799439014",
					"507f1f77bcf86cd799439015",
					"507f1f77bcf86cd799439016",
				}
			},
			wantField: "participants",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(req)

			err := v.ValidateCreate(req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var errs ValidationErrors
			if !errors.As(err, &errs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error for field %s, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidateUpdate_NilListsKeepParticipants(t *testing.T) {
	v := newValidator()
	req := &model.UpdateBookingRequest{
		ResourceID: "507f1f77bcf86cd799439011",
		Title:      "Standup",
		Start:      "2025-03-10T09:00",
		End:        "2025-03-10T09:15",
	}
	if err := v.ValidateUpdate(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req.ActorID = "someone"
	if err := v.ValidateUpdate(req); err == nil {
		t.Fatal("expected actor_id to be rejected")
	}
}

func TestValidateParticipantCount(t *testing.T) {
	v := newValidator()
	if err := v.ValidateParticipantCount(3); err != nil {
		t.Errorf("3 participants should be allowed: %v", err)
	}
	if err := v.ValidateParticipantCount(4); err == nil {
		t.Error("4 participants should be rejected")
	}
}
