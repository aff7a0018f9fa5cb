package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/returns-engine/internal/orders"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/types"
)

// Viewer is the authenticated caller of a read or write.
type Viewer struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsStaff reports whether the viewer may act on any user's requests.
func (v Viewer) IsStaff() bool {
	return v.Role.IsStaff()
}

// ItemInput names one order line being returned.
type ItemInput struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

// SubmitInput carries a customer's new request.
type SubmitInput struct {
	UserID              uuid.UUID
	OrderID             uuid.UUID
	Type                string
	Reason              string
	Description         string
	Images              []string
	Items               []ItemInput
	ExchangeToProductID *uuid.UUID
	ExchangeToVariantID *uuid.UUID
}

// QuoteInput previews the refund for a prospective return.
type QuoteInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Reason  string
	Items   []ItemInput
}

// TransitionInput carries an admin decision.
type TransitionInput struct {
	RequestID uuid.UUID
	Action    string
	AdminID   uuid.UUID
	AdminRole enums.UserRole
	Notes     *string
}

// ExchangePaymentInput carries the customer's choice of top-up method.
type ExchangePaymentInput struct {
	RequestID uuid.UUID
	UserID    uuid.UUID
	Method    string
}

// ListFilters narrows list queries.
type ListFilters struct {
	UserID  *uuid.UUID
	OrderID *uuid.UUID
	Status  *enums.ReturnRequestStatus
	Type    *enums.ReturnRequestType
}

// StatsWindow bounds Stats by created_at. Nil ends are open.
type StatsWindow struct {
	From *time.Time
	To   *time.Time
}

// UserSummary is the user view embedded in request responses.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Detail is the API view of a return request.
type Detail struct {
	ID                  uuid.UUID                 `json:"id"`
	OrderID             uuid.UUID                 `json:"orderId"`
	UserID              uuid.UUID                 `json:"userId"`
	Type                enums.ReturnRequestType   `json:"type"`
	Reason              enums.ReturnReason        `json:"reason"`
	ReasonLabel         string                    `json:"reasonLabel"`
	Description         string                    `json:"description"`
	Images              []string                  `json:"images"`
	Status              enums.ReturnRequestStatus `json:"status"`
	Items               types.ReturnItems         `json:"items"`
	RefundAmount        decimal.Decimal           `json:"refundAmount"`
	AdditionalCost      decimal.Decimal           `json:"additionalCost"`
	Breakdown           *types.RefundBreakdown    `json:"shippingBreakdown,omitempty"`
	ExchangeToProductID *uuid.UUID                `json:"exchangeToProductId,omitempty"`
	ExchangeToVariantID *uuid.UUID                `json:"exchangeToVariantId,omitempty"`
	ExchangeOrderID     *uuid.UUID                `json:"exchangeOrderId,omitempty"`
	ApprovedBy          *uuid.UUID                `json:"approvedBy,omitempty"`
	ApprovedAt          *time.Time                `json:"approvedAt,omitempty"`
	AdminNotes          *string                   `json:"adminNotes,omitempty"`
	CreatedAt           time.Time                 `json:"createdAt"`
	UpdatedAt           time.Time                 `json:"updatedAt"`
	Order               *orders.Summary           `json:"order,omitempty"`
	User                *UserSummary              `json:"user,omitempty"`
	Approver            *UserSummary              `json:"approver,omitempty"`
}

// List is one page of requests.
type List struct {
	Items      []Detail `json:"items"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// Stats summarizes requests for the admin dashboard.
type Stats struct {
	Total         int64                               `json:"total"`
	ByStatus      map[enums.ReturnRequestStatus]int64 `json:"byStatus"`
	ByType        map[enums.ReturnRequestType]int64   `json:"byType"`
	ByReason      map[enums.ReturnReason]int64        `json:"byReason"`
	TotalRefunded decimal.Decimal                     `json:"totalRefunded"`
	Recent        []Detail                            `json:"recent"`
}

func detailFrom(rr *models.ReturnRequest) Detail {
	images := []string(rr.Images)
	if images == nil {
		images = []string{}
	}
	return Detail{
		ID:                  rr.ID,
		OrderID:             rr.OrderID,
		UserID:              rr.UserID,
		Type:                rr.Type,
		Reason:              rr.Reason,
		ReasonLabel:         rr.Reason.Label(),
		Description:         rr.Description,
		Images:              images,
		Status:              rr.Status,
		Items:               rr.Items,
		RefundAmount:        rr.RefundAmount,
		AdditionalCost:      rr.AdditionalCost,
		Breakdown:           rr.Breakdown,
		ExchangeToProductID: rr.ExchangeToProductID,
		ExchangeToVariantID: rr.ExchangeToVariantID,
		ExchangeOrderID:     rr.ExchangeOrderID,
		ApprovedBy:          rr.ApprovedBy,
		ApprovedAt:          rr.ApprovedAt,
		AdminNotes:          rr.AdminNotes,
		CreatedAt:           rr.CreatedAt,
		UpdatedAt:           rr.UpdatedAt,
	}
}

func userSummary(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
