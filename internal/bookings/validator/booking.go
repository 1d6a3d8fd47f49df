package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	bookingserrors "roomly/internal/bookings/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"

	"github.com/go-playground/validator/v10"
)

// Naive layouts carry no offset and are read in the configured local zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type Limits struct {
	MaxTitleLength  int
	MaxParticipants int
}

type BookingValidator struct {
	validate *validator.Validate
	limits   Limits
	logger   *logger.Logger
}

func NewBookingValidator(limits Limits, log *logger.Logger) *BookingValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	log.Info("Booking validator initialized", "max_title_length", limits.MaxTitleLength, "max_participants", limits.MaxParticipants)

	return &BookingValidator{
		validate: v,
		limits:   limits,
		logger:   log,
	}
}

// ParseInterval parses start and end and requires start to be strictly
// before end. Values with an explicit offset keep it; naive values are read
// in loc. It performs no I/O.
func ParseInterval(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	startTime, err := parseInstant(start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &bookingserrors.IntervalError{Reason: fmt.Sprintf("start %q is not a valid timestamp", start)}
	}
	endTime, err := parseInstant(end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &bookingserrors.IntervalError{Reason: fmt.Sprintf("end %q is not a valid timestamp", end)}
	}

	if !startTime.Before(endTime) {
		return time.Time{}, time.Time{}, &bookingserrors.IntervalError{Reason: "start must be before end"}
	}

	return startTime.UTC(), endTime.UTC(), nil
}

func parseInstant(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return v.translate(err)
	}
	return v.checkLimits(req.Title, len(req.TeamIDs)+len(req.ParticipantIDs))
}

func (v *BookingValidator) ValidateUpdate(req *model.UpdateBookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return v.translate(err)
	}
	n := 0
	if req.TeamIDs != nil {
		n += len(*req.TeamIDs)
	}
	if req.ParticipantIDs != nil {
		n += len(*req.ParticipantIDs)
	}
	return v.checkLimits(req.Title, n)
}

// ValidateParticipantCount bounds the resolved set after team expansion.
func (v *BookingValidator) ValidateParticipantCount(n int) error {
	if v.limits.MaxParticipants > 0 && n > v.limits.MaxParticipants {
		return ValidationErrors{{
			Field:   "participants",
			Message: fmt.Sprintf("booking resolves to %d participants, at most %d allowed", n, v.limits.MaxParticipants),
		}}
	}
	return nil
}

func (v *BookingValidator) checkLimits(title string, listed int) error {
	var errs ValidationErrors
	if strings.TrimSpace(title) == "" {
		errs = append(errs, ValidationError{Field: "title", Message: "title cannot be blank"})
	}
	if v.limits.MaxTitleLength > 0 && len([]rune(title)) > v.limits.MaxTitleLength {
		errs = append(errs, ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", v.limits.MaxTitleLength)})
	}
	if err := v.ValidateParticipantCount(listed); err != nil {
		errs = append(errs, err.(ValidationErrors)...)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) translate(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var out ValidationErrors
	for _, fe := range validationErrs {
		message := fe.Error()

		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", fe.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", fe.Field())
		}

		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: message,
		})
	}
	return out
}
