package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	type want struct {
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}
	table := map[Code]want{
		CodeValidation:        {http.StatusBadRequest, "validation failed", false, true},
		CodeUnauthorized:      {http.StatusUnauthorized, "authentication required", false, false},
		CodeForbidden:         {http.StatusForbidden, "access denied", false, false},
		CodeNotFound:          {http.StatusNotFound, "resource not found", false, false},
		CodeConflict:          {http.StatusConflict, "conflict detected", false, false},
		CodeStateConflict:     {http.StatusUnprocessableEntity, "state transition disallowed", false, true},
		CodeInvalidTransition: {http.StatusBadRequest, "invalid status transition", false, true},
		CodeInvalidPrice:      {http.StatusInternalServerError, "catalog price unavailable", false, false},
		CodeInternal:          {http.StatusInternalServerError, "internal server error", true, false},
		CodeDependency:        {http.StatusServiceUnavailable, "dependency unavailable", true, true},
	}

	for code, w := range table {
		t.Run(string(code), func(t *testing.T) {
			meta := MetadataFor(code)
			got := want{meta.HTTPStatus, meta.PublicMessage, meta.Retryable, meta.DetailsAllowed}
			if got != w {
				t.Fatalf("expected %+v got %+v", w, got)
			}
		})
	}

	if meta := MetadataFor("SOMETHING_UNKNOWN"); meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to 500, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "load order")
	if got := err.Error(); got != "DEPENDENCY_ERROR: load order: dial tcp: refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Newf(CodeNotFound, "order %d", 7).Error(); got != "NOT_FOUND: order 7" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("submit: %w", New(CodeStateConflict, "already has an open request"))
	if !stdErrors.Is(err, New(CodeStateConflict, "")) {
		t.Fatalf("expected code match through the chain")
	}
	if stdErrors.Is(err, New(CodeConflict, "")) {
		t.Fatalf("different codes must not match")
	}
}

func TestRetryable(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":        {nil, false},
		"untyped":    {stdErrors.New("connection reset"), true},
		"validation": {New(CodeValidation, "bad"), false},
		"dependency": {fmt.Errorf("x: %w", New(CodeDependency, "db")), true},
		"not found":  {New(CodeNotFound, "gone"), false},
	}
	for name, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v got %v", name, tc.want, got)
		}
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeInvalidTransition, "cannot complete a PENDING request")
	outer := fmt.Errorf("transition: %w", inner)
	if !IsCode(outer, CodeInvalidTransition) {
		t.Fatalf("expected wrapped invalid transition to be detected")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("nil error should never match")
	}
}
