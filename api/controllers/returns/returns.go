package returns

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/returns-engine/api/responses"
	"github.com/angelmondragon/returns-engine/api/validators"
	"github.com/angelmondragon/returns-engine/internal/orders"
	internalreturns "github.com/angelmondragon/returns-engine/internal/returns"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/pagination"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

// Service is the slice of the lifecycle manager the HTTP layer drives.
type Service interface {
	Submit(ctx context.Context, in internalreturns.SubmitInput) (*internalreturns.Detail, error)
	Quote(ctx context.Context, in internalreturns.QuoteInput) (*types.RefundBreakdown, error)
	Get(ctx context.Context, id uuid.UUID, viewer internalreturns.Viewer) (*internalreturns.Detail, error)
	ListForUser(ctx context.Context, userID uuid.UUID, orderID *uuid.UUID, params pagination.Params) (*internalreturns.List, error)
	ListAdmin(ctx context.Context, filters internalreturns.ListFilters, params pagination.Params) (*internalreturns.List, error)
	Stats(ctx context.Context, window internalreturns.StatsWindow) (*internalreturns.Stats, error)
	Transition(ctx context.Context, in internalreturns.TransitionInput) (*internalreturns.Detail, error)
	SelectExchangePayment(ctx context.Context, in internalreturns.ExchangePaymentInput) (*orders.Summary, error)
}

type submitRequest struct {
	OrderID             uuid.UUID                   `json:"orderId" validate:"required"`
	Type                string                      `json:"type" validate:"required"`
	Reason              string                      `json:"reason" validate:"required"`
	Description         string                      `json:"description" validate:"max=2000"`
	Images              []string                    `json:"images" validate:"max=10,dive,url"`
	Items               []internalreturns.ItemInput `json:"items" validate:"required,min=1,dive"`
	ExchangeToProductID *uuid.UUID                  `json:"exchangeToProductId"`
	ExchangeToVariantID *uuid.UUID                  `json:"exchangeToVariantId"`
}

type quoteRequest struct {
	OrderID uuid.UUID                   `json:"orderId" validate:"required"`
	Reason  string                      `json:"reason" validate:"required"`
	Items   []internalreturns.ItemInput `json:"items" validate:"required,min=1,dive"`
}

type transitionRequest struct {
	Action     string  `json:"action" validate:"required"`
	AdminNotes *string `json:"adminNotes" validate:"omitempty,max=2000"`
}

type exchangePaymentRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

// Submit files a new return or exchange request for the caller.
func Submit(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		viewer, err := viewerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body submitRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Submit(r.Context(), internalreturns.SubmitInput{
			UserID:              viewer.UserID,
			OrderID:             body.OrderID,
			Type:                body.Type,
			Reason:              body.Reason,
			Description:         validators.CleanText(body.Description, 2000),
			Images:              body.Images,
			Items:               body.Items,
			ExchangeToProductID: body.ExchangeToProductID,
			ExchangeToVariantID: body.ExchangeToVariantID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

// ShippingQuote previews the refund and return shipping for a prospective request.
func ShippingQuote(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		viewer, err := viewerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body quoteRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := svc.Quote(r.Context(), internalreturns.QuoteInput{
			UserID:  viewer.UserID,
			OrderID: body.OrderID,
			Reason:  body.Reason,
			Items:   body.Items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, breakdown)
	}
}

// Detail returns one request to its owner or to staff.
func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		viewer, err := viewerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "id", "return request id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), id, viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// ListMine pages through the caller's own requests, newest first.
func ListMine(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		viewer, err := viewerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.QueryUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForUser(r.Context(), viewer.UserID, orderID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminList pages through every request with optional status/type filters.
func AdminList(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		params, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseAdminFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAdmin(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminStats(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		window, err := parseStatsWindow(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), window)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// Transition applies a staff decision (approve, reject, complete).
func Transition(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		viewer, err := viewerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "id", "return request id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transitionRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithReturnRequestID(ctx, id.String())
		}
		detail, err := svc.Transition(ctx, internalreturns.TransitionInput{
			RequestID: id,
			Action:    body.Action,
			AdminID:   viewer.UserID,
			AdminRole: viewer.Role,
			Notes:     validators.CleanOptionalText(body.AdminNotes, 2000),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// ExchangePayment records how the customer will pay an exchange's price difference.
func ExchangePayment(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		viewer, err := viewerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.PathUUID(r, "id", "return request id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body exchangePaymentRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SelectExchangePayment(r.Context(), internalreturns.ExchangePaymentInput{
			RequestID: id,
			UserID:    viewer.UserID,
			Method:    body.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
