package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "PENDING"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	var env Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Equal(t, "PENDING", env.Data.(map[string]any)["status"])
}

func TestWriteErrorExposesCallerFacingMessages(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "req-42")
	err := pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot complete a PENDING request").
		WithDetails(map[string]any{"from": "PENDING", "action": "complete"})

	var logs bytes.Buffer
	WriteError(context.Background(), logger.New(logger.Options{ServiceName: "test", Output: &logs}), w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeInvalidTransition), body.Code)
	assert.Equal(t, "cannot complete a PENDING request", body.Message)
	assert.Equal(t, "req-42", body.RequestID)
	assert.False(t, body.Retryable)
	assert.Equal(t, "PENDING", body.Details.(map[string]any)["from"])
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

func TestWriteErrorHidesInternalFailures(t *testing.T) {
	w := httptest.NewRecorder()
	var logs bytes.Buffer
	WriteError(context.Background(), logger.New(logger.Options{ServiceName: "test", Output: &logs}), w, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Code)
	assert.Equal(t, "internal server error", body.Message)
	assert.True(t, body.Retryable)
	assert.Nil(t, body.Details)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), "connection refused")
}

func TestWriteErrorWithoutLoggerOrError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "redis unavailable").WithDetails(map[string]any{"dependency": "redis"}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "dependency unavailable", body.Message)
	assert.Equal(t, "redis", body.Details.(map[string]any)["dependency"])
}
