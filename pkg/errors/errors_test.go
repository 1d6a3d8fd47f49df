package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("database connection failed")

	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
		wantMsg    string
	}{
		{"not found", NotFound("Booking"), CodeNotFound, http.StatusNotFound, "Booking not found"},
		{"not found with id", NotFoundWithID("Room", "r1"), CodeNotFound, http.StatusNotFound, "Room not found"},
		{"validation", Validation("bad payload", nil), CodeValidation, http.StatusUnprocessableEntity, "bad payload"},
		{"invalid input", InvalidInput("bad id"), CodeInvalidInput, http.StatusBadRequest, "bad id"},
		{"invalid interval", InvalidInterval("end before start"), CodeInvalidInterval, http.StatusBadRequest, "end before start"},
		{"unauthorized", Unauthorized("missing token"), CodeUnauthorized, http.StatusUnauthorized, "missing token"},
		{"forbidden", Forbidden("not yours"), CodeForbidden, http.StatusForbidden, "not yours"},
		{"conflict", Conflict("room taken"), CodeConflict, http.StatusConflict, "room taken"},
		{"internal", Internal("store failed", cause), CodeInternal, http.StatusInternalServerError, "store failed"},
		{"timeout", Timeout("too slow"), CodeTimeout, http.StatusGatewayTimeout, "too slow"},
		{"unavailable", Unavailable("Kafka"), CodeUnavailable, http.StatusServiceUnavailable, "Kafka is temporarily unavailable"},
		{"too many requests", TooManyRequests("slow down"), CodeTooManyRequests, http.StatusTooManyRequests, "slow down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestAppError_Error(t *testing.T) {
	plain := Conflict("room taken")
	if got, want := plain.Error(), "CONFLICT: room taken"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := Internal("store failed", errors.New("socket closed"))
	if got, want := wrapped.Error(), "INTERNAL_ERROR: store failed (caused by: socket closed)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAppError_WithCauseKeepsMessage(t *testing.T) {
	sentinel := errors.New("overlap")
	err := Conflict("room taken").WithCause(sentinel).WithDetails(map[string]any{"id": "b1"})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected errors.Is to find the cause")
	}
	if err.Message != "room taken" {
		t.Errorf("message changed to %q", err.Message)
	}
	if err.Details["id"] != "b1" {
		t.Errorf("details not attached: %v", err.Details)
	}
}

func TestAsAppError_UnwrapsChains(t *testing.T) {
	appErr := NotFound("Booking")
	chained := fmt.Errorf("transaction failed: %w", appErr)

	if !IsAppError(chained) {
		t.Fatalf("IsAppError() should see through wrapping")
	}
	if got := AsAppError(chained); got != appErr {
		t.Errorf("AsAppError() returned a different error: %v", got)
	}
	if !HasCode(chained, CodeNotFound) {
		t.Errorf("HasCode() should match NOT_FOUND")
	}

	regular := errors.New("boom")
	fallback := AsAppError(regular)
	if fallback.Code != CodeInternal || fallback.Err != regular {
		t.Errorf("AsAppError() should wrap plain errors as internal, got %+v", fallback)
	}
	if HasCode(regular, CodeInternal) {
		t.Errorf("HasCode() should be false for plain errors")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	err := NotFoundWithID("Booking", "abc")

	var decoded ErrorResponse
	if jsonErr := json.Unmarshal(err.ToJSON(), &decoded); jsonErr != nil {
		t.Fatalf("ToJSON() produced invalid JSON: %v", jsonErr)
	}
	if decoded.Code != CodeNotFound {
		t.Errorf("code = %s, want %s", decoded.Code, CodeNotFound)
	}
	if decoded.Details["id"] != "abc" {
		t.Errorf("details id = %v, want abc", decoded.Details["id"])
	}
}

func TestStatusCode_DefaultsToInternal(t *testing.T) {
	err := &AppError{Code: "CUSTOM", Message: "no status"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want 500", err.StatusCode())
	}
}
