package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

// PathUUID reads a required UUID route parameter. label names the resource in
// error messages ("return request id").
func PathUUID(r *http.Request, key, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}

// QueryUUID returns nil when the parameter is absent.
func QueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalidQuery(err, key, "must be a UUID")
	}
	return &id, nil
}

// QueryInt parses an integer parameter and bounds it to [min, max].
func QueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidQuery(err, key, "must be numeric")
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

func QueryBool(r *http.Request, key string) (bool, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidQuery(err, key, "must be true or false")
	}
	return value, nil
}

// QueryTime parses an RFC3339 timestamp and normalizes it to UTC.
func QueryTime(r *http.Request, key string) (*time.Time, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, invalidQuery(err, key, "must be an RFC3339 timestamp")
	}
	parsed = parsed.UTC()
	return &parsed, nil
}

// QueryEnum applies parse to the parameter when present.
func QueryEnum[T any](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, invalidQuery(err, key, "is not a recognised value")
	}
	return &value, nil
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func invalidQuery(err error, key, msg string) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key).
		WithDetails(map[string]any{"field": key, "reason": msg})
}
