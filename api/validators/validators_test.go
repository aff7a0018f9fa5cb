package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

type lineInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type submitBody struct {
	Reason string      `json:"reason" validate:"required"`
	Images []string    `json:"images" validate:"max=2,dive,url"`
	Items  []lineInput `json:"items" validate:"required,min=1,dive"`
}

func decode(t *testing.T, body string) (submitBody, error) {
	t.Helper()
	var dest submitBody
	req := httptest.NewRequest(http.MethodPost, "/returns", strings.NewReader(body))
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	return dest, err
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	got, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details %T", typed.Details())
	return got
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(t, `{"reason":"DEFECTIVE","items":[{"productId":"p1","quantity":2}]}`)
	require.NoError(t, err)
	assert.Equal(t, "DEFECTIVE", got.Reason)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestDecodeJSONBodyReportsNestedFieldPaths(t *testing.T) {
	_, err := decode(t, `{"reason":"DEFECTIVE","items":[{"productId":"p1","quantity":0}]}`)
	assert.Equal(t, map[string]string{"items[0].quantity": "must be greater than 0"}, details(t, err))

	_, err = decode(t, `{"reason":"DEFECTIVE","images":["a","b","c"],"items":[{"productId":"p1","quantity":1}]}`)
	assert.Equal(t, "must contain at most 2 entries", details(t, err)["images"])
}

func TestDecodeJSONBodyNamesUnknownAndMistypedFields(t *testing.T) {
	_, err := decode(t, `{"reason":"DEFECTIVE","refundAmount":5,"items":[]}`)
	assert.Equal(t, "is not allowed", details(t, err)["refundAmount"])

	_, err = decode(t, `{"reason":7}`)
	assert.Equal(t, "must be string", details(t, err)["reason"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":     ``,
		"truncated": `{"reason":`,
		"syntax":    `{"reason" "x"}`,
		"trailing":  `{"reason":"DEFECTIVE","items":[{"productId":"p","quantity":1}]} {}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, body)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyEnforcesSizeLimit(t *testing.T) {
	huge := `{"reason":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	_, err := decode(t, huge)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "request body too large", typed.Message())
}

func TestQueryHelpers(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet,
		"/admin/returns?limit=25&orderId="+id.String()+"&status=approved&from=2026-03-01T07:00:00%2B07:00&unreadOnly=true", nil)

	limit, err := QueryInt(req, "limit", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, limit)

	orderID, err := QueryUUID(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, *orderID)

	status, err := QueryEnum(req, "status", enums.ParseReturnRequestStatus)
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnRequestStatusApproved, *status)

	from, err := QueryTime(req, "from")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T00:00:00Z", from.Format("2006-01-02T15:04:05Z07:00"))

	unread, err := QueryBool(req, "unreadOnly")
	require.NoError(t, err)
	assert.True(t, unread)

	missing, err := QueryUUID(req, "userId")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestQueryHelpersRejectBadValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&orderId=nope&from=yesterday&type=LOAN", nil)

	_, err := QueryInt(req, "limit", 10, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = QueryUUID(req, "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = QueryTime(req, "from")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = QueryEnum(req, "type", enums.ParseReturnRequestType)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPathUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	req := httptest.NewRequest(http.MethodGet, "/returns/"+id.String(), nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := PathUUID(req, "id", "return request id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = PathUUID(req, "notificationId", "notification id")
	require.Error(t, err)
	assert.Equal(t, "notification id is required", pkgerrors.As(err).Message())
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "box arrived crushed", CleanText("  box arrived\x00 crushed \x07 ", 0))
	assert.Equal(t, "line one\nline two", CleanText("line one\nline two", 0))
	assert.Equal(t, "\u00e1o", CleanText("a\u0301o", 0), "combining marks are composed")
	assert.Equal(t, "Giày", CleanText("Giày thể thao", 4), "truncation counts runes")
	assert.Nil(t, CleanOptionalText(ptr("   "), 10))
	assert.Equal(t, "ok", *CleanOptionalText(ptr(" ok "), 10))
}

func ptr(s string) *string { return &s }
