package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/returns-engine/api/middleware"
	"github.com/angelmondragon/returns-engine/internal/notifications"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

// stubInbox records what the handlers asked of the notification service.
type stubInbox struct {
	listed     *notifications.ListParams
	readUser   uuid.UUID
	readID     uuid.UUID
	readAllFor uuid.UUID
	updated    int64
	err        error
}

func (s *stubInbox) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.listed = &params
	if s.err != nil {
		return nil, s.err
	}
	return &notifications.ListResult{UnreadCount: 2}, nil
}

func (s *stubInbox) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	s.readUser, s.readID = userID, notificationID
	return s.err
}

func (s *stubInbox) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.readAllFor = userID
	return s.updated, s.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestMarkNotificationRead(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	svc := &stubInbox{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = addRouteParam(asUser(req, userID.String()), "notificationId", notificationID.String())
	rec := httptest.NewRecorder()
	MarkNotificationRead(svc, quietLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, svc.readUser)
	assert.Equal(t, notificationID, svc.readID)
	assert.True(t, decodeData[map[string]bool](t, rec)["read"])
}

func TestMarkNotificationReadRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		user   string
		param  string
		status int
	}{
		"no caller":      {user: "", param: uuid.NewString(), status: http.StatusUnauthorized},
		"garbled caller": {user: "bad", param: uuid.NewString(), status: http.StatusUnauthorized},
		"bad id":         {user: uuid.NewString(), param: "invalid", status: http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/x/read", nil)
			if tc.user != "" {
				req = asUser(req, tc.user)
			}
			req = addRouteParam(req, "notificationId", tc.param)
			rec := httptest.NewRecorder()
			MarkNotificationRead(&stubInbox{}, quietLogger())(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	userID := uuid.New()
	svc := &stubInbox{updated: 5}

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil), userID.String())
	rec := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, quietLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, svc.readAllFor)
	assert.EqualValues(t, 5, decodeData[map[string]float64](t, rec)["updated"])
}

func TestListNotificationsQueryParsing(t *testing.T) {
	userID := uuid.New()
	cases := map[string]struct {
		query  string
		status int
		check  func(t *testing.T, p notifications.ListParams)
	}{
		"scoped to caller": {
			query:  "limit=10&unreadOnly=true",
			status: http.StatusOK,
			check: func(t *testing.T, p notifications.ListParams) {
				assert.Equal(t, userID, p.UserID)
				assert.Equal(t, 10, p.Limit)
				assert.True(t, p.UnreadOnly)
			},
		},
		"type filter is case-insensitive": {
			query:  "type=STAFF_QUEUE&cursor=abc",
			status: http.StatusOK,
			check: func(t *testing.T, p notifications.ListParams) {
				assert.Equal(t, enums.NotificationTypeStaffQueue, p.Type)
				assert.Equal(t, "abc", p.Cursor)
			},
		},
		"bad boolean":  {query: "unreadOnly=maybe", status: http.StatusBadRequest},
		"unknown type": {query: "type=marketing", status: http.StatusBadRequest},
		"limit too large": {
			query:  "limit=100000",
			status: http.StatusBadRequest,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubInbox{}
			req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/notifications?"+tc.query, nil), userID.String())
			rec := httptest.NewRecorder()
			ListNotifications(svc, quietLogger())(rec, req)

			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.check != nil {
				require.NotNil(t, svc.listed)
				tc.check(t, *svc.listed)
			} else {
				assert.Nil(t, svc.listed, "service must not be called on bad input")
			}
		})
	}
}
