package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/redis"
)

func newIdempotencyStore(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return redis.NewFromRaw(raw), mr
}

func keyedRequest(method, url, body, key string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestMatchRule(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		ttl      time.Duration
		required bool
		ok       bool
	}{
		{"transition", http.MethodPut, "/api/v1/return-requests/6f1c2d3e-0000-4000-8000-000000000001/", criticalIdempotencyTTL, true, true},
		{"submit", http.MethodPost, "/api/v1/return-requests", criticalIdempotencyTTL, true, true},
		{"exchange payment", http.MethodPost, "/api/v1/return-requests/abc/exchange-payment", criticalIdempotencyTTL, true, true},
		{"notification read", http.MethodPost, "/api/v1/notifications/abc/read", defaultIdempotencyTTL, false, true},
		{"read all", http.MethodPost, "/api/v1/notifications/read-all", defaultIdempotencyTTL, false, true},
		{"detail", http.MethodGet, "/api/v1/return-requests/abc", 0, false, false},
		{"quote", http.MethodPost, "/api/v1/return-requests/shipping-quote", 0, false, false},
		{"nested", http.MethodPut, "/api/v1/return-requests/abc/extra", 0, false, false},
		{"empty param", http.MethodPut, "/api/v1/return-requests//", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchRule(tt.method, tt.path)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.ttl, got.ttl)
				assert.Equal(t, tt.required, got.required)
			}
		})
	}
}

func TestIdempotencyRequiresHeaderOnCriticalRoutes(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	called := false
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, keyedRequest(http.MethodPost, "/api/v1/return-requests", `{}`, ""))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, called)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, keyedRequest(http.MethodPost, "/api/v1/return-requests", `{"a":1}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get("Idempotent-Replayed"))

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, keyedRequest(http.MethodPost, "/api/v1/return-requests", `{"a":1}`, "abc"))
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"ok":true}`, replay.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	handler := Idempotency(store, nil)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/api/v1/return-requests", `{"a":1}`, "xyz"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, keyedRequest(http.MethodPost, "/api/v1/return-requests", `{"a":2}`, "xyz"))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store, _ := newIdempotencyStore(t)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		close(entered)
		<-unblock
		w.WriteHeader(http.StatusOK)
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPut, "/api/v1/return-requests/abc", `{"action":"approve"}`, "k1"))
	}()
	<-entered

	dup := httptest.NewRecorder()
	handler.ServeHTTP(dup, keyedRequest(http.MethodPut, "/api/v1/return-requests/abc", `{"action":"approve"}`, "k1"))
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, dup))
	assert.Equal(t, "1", dup.Header().Get("Retry-After"))

	close(unblock)
	wg.Wait()
	assert.Equal(t, 1, calls)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, keyedRequest(http.MethodPut, "/api/v1/return-requests/abc", `{"action":"approve"}`, "k1"))
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyOptionalRoutePassesThrough(t *testing.T) {
	store, mr := newIdempotencyStore(t)
	called := false
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, keyedRequest(http.MethodPost, "/api/v1/notifications/read-all", "", ""))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, called)
	assert.Empty(t, mr.Keys())
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store, mr := newIdempotencyStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPut, "/api/v1/return-requests/abc", `{}`, "retry-me"))
	assert.Empty(t, mr.Keys(), "failed attempts must not hold the key")

	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPut, "/api/v1/return-requests/abc", `{}`, "retry-me"))
	assert.Equal(t, 2, calls)
	require.Len(t, mr.Keys(), 1)

	ttl := mr.TTL(mr.Keys()[0])
	assert.Greater(t, ttl, inFlightTTL, "stored responses outlive the reservation")
}

func TestIdempotencyScopesKeysPerCaller(t *testing.T) {
	store, mr := newIdempotencyStore(t)
	handler := Idempotency(store, nil)(okHandler())

	for _, user := range []string{"user-a", "user-b"} {
		req := keyedRequest(http.MethodPost, "/api/v1/return-requests", `{}`, "shared")
		req = req.WithContext(WithUserID(req.Context(), user))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Len(t, mr.Keys(), 2)
}
