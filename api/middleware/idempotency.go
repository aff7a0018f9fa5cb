package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/returns-engine/api/responses"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	pkgredis "github.com/angelmondragon/returns-engine/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// how long a reservation blocks duplicates before a crashed request
	// frees the key
	inFlightTTL = 2 * time.Minute

	stateInFlight = "in_flight"
	stateDone     = "done"
)

type idempotencyRule struct {
	method   string
	segments []string
	ttl      time.Duration
	required bool
}

func rule(method, template string, ttl time.Duration, required bool) idempotencyRule {
	return idempotencyRule{
		method:   method,
		segments: strings.Split(strings.Trim(template, "/"), "/"),
		ttl:      ttl,
		required: required,
	}
}

// Templates are matched against the raw request path because the middleware
// runs before chi resolves the leaf route. A {param} segment matches any one
// non-empty segment.
var idempotencyRules = []idempotencyRule{
	rule(http.MethodPost, "/api/v1/return-requests", criticalIdempotencyTTL, true),
	rule(http.MethodPut, "/api/v1/return-requests/{id}", criticalIdempotencyTTL, true),
	rule(http.MethodPost, "/api/v1/return-requests/{id}/exchange-payment", criticalIdempotencyTTL, true),
	rule(http.MethodPost, "/api/v1/notifications/{notificationId}/read", defaultIdempotencyTTL, false),
	rule(http.MethodPost, "/api/v1/notifications/read-all", defaultIdempotencyTTL, false),
}

func (r idempotencyRule) matches(method, path string) bool {
	if r.method != method {
		return false
	}
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(got) != len(r.segments) {
		return false
	}
	for i, want := range r.segments {
		if strings.HasPrefix(want, "{") && strings.HasSuffix(want, "}") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if got[i] != want {
			return false
		}
	}
	return true
}

func matchRule(method, path string) (idempotencyRule, bool) {
	for _, r := range idempotencyRules {
		if r.matches(method, path) {
			return r, true
		}
	}
	return idempotencyRule{}, false
}

// replayRecord is what a key points at: first an in-flight reservation, then
// the captured response once the handler finishes.
type replayRecord struct {
	State       string            `json:"state"`
	Token       string            `json:"token,omitempty"`
	RequestHash string            `json:"request_hash"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

func (r replayRecord) encode() string {
	raw, _ := json.Marshal(r)
	return string(raw)
}

// Idempotency makes the mutating routes in idempotencyRules safe to retry.
// The first request with a key reserves it, concurrent duplicates get a 409
// until it finishes, and later duplicates get the stored response replayed.
// 5xx responses release the key so the client may retry with it.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rl, ok := matchRule(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				if rl.required {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(scopeOf(r), clientKey)
			reservation := replayRecord{State: stateInFlight, Token: uuid.NewString(), RequestHash: requestHash}.encode()

			existing, err := reserve(r.Context(), store, key, reservation)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if existing != nil {
				answerDuplicate(w, r, logg, existing, requestHash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			finish(r.Context(), store, logg, key, reservation, capture, rl.ttl, requestHash)
		})
	}
}

// reserve claims key for this request. It returns the record already stored
// when another request got there first.
func reserve(ctx context.Context, store pkgredis.IdempotencyStore, key, reservation string) (*replayRecord, error) {
	for attempt := 0; attempt < 2; attempt++ {
		won, err := store.SetNX(ctx, key, reservation, inFlightTTL)
		if err != nil {
			return nil, err
		}
		if won {
			return nil, nil
		}
		stored, err := store.Get(ctx, key)
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var record replayRecord
		if err := json.Unmarshal([]byte(stored), &record); err != nil {
			return nil, err
		}
		return &record, nil
	}
	return nil, errors.New("idempotency key churned during reservation")
}

func answerDuplicate(w http.ResponseWriter, r *http.Request, logg *logger.Logger, record *replayRecord, requestHash string) {
	switch {
	case record.RequestHash != requestHash:
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.State != stateDone:
		w.Header().Set("Retry-After", "1")
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this idempotency key is still in progress"))
	default:
		for name, value := range record.Headers {
			w.Header().Set(name, value)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(record.Status)
		if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
			_, _ = w.Write(decoded)
		}
	}
}

func finish(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key, reservation string, capture *responseCapture, ttl time.Duration, requestHash string) {
	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		if _, err := store.CompareAndDelete(ctx, key, reservation); err != nil {
			logError(ctx, logg, "release idempotency key", err)
		}
		return
	}

	done := replayRecord{
		State:       stateDone,
		RequestHash: requestHash,
		Status:      status,
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
	}
	if ct := capture.Header().Get("Content-Type"); ct != "" {
		done.Headers = map[string]string{"Content-Type": ct}
	}
	swapped, err := store.CompareAndSwap(ctx, key, reservation, done.encode(), ttl)
	switch {
	case err != nil:
		logError(ctx, logg, "persist idempotency record", err)
	case !swapped && logg != nil:
		logg.Warn(logg.WithField(ctx, "idempotency_key", key), "idempotency reservation expired before the response was stored")
	}
}

func scopeOf(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, strings.TrimSuffix(r.URL.Path, "/")}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
