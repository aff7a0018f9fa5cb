package enums

import "fmt"

// OrderStatus is the storefront order lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCanceled   OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCanceled,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// DeliveryStatus tracks the physical shipment of an order.
type DeliveryStatus string

const (
	DeliveryStatusNotShipped DeliveryStatus = "not_shipped"
	DeliveryStatusInTransit  DeliveryStatus = "in_transit"
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusReturned   DeliveryStatus = "returned"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusNotShipped,
	DeliveryStatusInTransit,
	DeliveryStatusDelivered,
	DeliveryStatusReturned,
}

func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}

// OrderReturnStatus records how much of an order has been returned.
type OrderReturnStatus string

const (
	OrderReturnStatusNone    OrderReturnStatus = "NONE"
	OrderReturnStatusPartial OrderReturnStatus = "PARTIAL"
	OrderReturnStatusFull    OrderReturnStatus = "FULL"
)

var validOrderReturnStatuses = []OrderReturnStatus{
	OrderReturnStatusNone,
	OrderReturnStatusPartial,
	OrderReturnStatusFull,
}

// String implements fmt.Stringer.
func (r OrderReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known OrderReturnStatus.
func (r OrderReturnStatus) IsValid() bool {
	for _, candidate := range validOrderReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseOrderReturnStatus converts raw input into an OrderReturnStatus.
func ParseOrderReturnStatus(value string) (OrderReturnStatus, error) {
	for _, candidate := range validOrderReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order return status %q", value)
}
