package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "roomly/pkg/errors"
	httputil "roomly/pkg/http"
	"roomly/pkg/kafka"
	"roomly/pkg/logger"
	"roomly/pkg/middleware"
	"roomly/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotificationService struct {
	unread       bool
	limit        int
	markedID     string
	markedBy     string
	markReadFunc func(id, userID string) error
}

func (m *mockNotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int, offset int64) ([]*model.Notification, int64, error) {
	m.unread, m.limit = unreadOnly, limit
	return []*model.Notification{{ID: "n1", UserID: userID}}, 1, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, id, userID string) error {
	m.markedID, m.markedBy = id, userID
	if m.markReadFunc != nil {
		return m.markReadFunc(id, userID)
	}
	return nil
}

func (m *mockNotificationService) MarkDelivered(ctx context.Context, id string) error { return nil }

func (m *mockNotificationService) HandleDelivery(ctx context.Context, msg kafka.Message) error {
	return nil
}

func do(svc *mockNotificationService, method, target, caller string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewNotificationHandler(svc, logger.Discard()).RegisterRoutes(router)

	req := httptest.NewRequest(method, target, nil)
	if caller != "" {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, caller))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListForUser(t *testing.T) {
	svc := &mockNotificationService{}

	rec := do(svc, http.MethodGet, "/api/v1/users/u1/notifications?unread=true&limit=5", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.unread)
	assert.Equal(t, 5, svc.limit)

	var body httputil.PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.TotalCount)

	rec = do(svc, http.MethodGet, "/api/v1/users/u2/notifications", "u1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(svc, http.MethodGet, "/api/v1/users/u1/notifications?unread=sometimes", "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkRead(t *testing.T) {
	svc := &mockNotificationService{}

	rec := do(svc, http.MethodPost, "/api/v1/notifications/id/n1/read", "u1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "n1", svc.markedID)
	assert.Equal(t, "u1", svc.markedBy)

	rec = do(svc, http.MethodPost, "/api/v1/notifications/id/n1/read", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	svc.markReadFunc = func(id, userID string) error { return apperrors.NotFoundWithID("Notification", id) }
	rec = do(svc, http.MethodPost, "/api/v1/notifications/id/n1/read", "u1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
