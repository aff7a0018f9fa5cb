package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is the settlement method recorded on an order.
type PaymentMethod string

const (
	PaymentMethodCOD            PaymentMethod = "cod"
	PaymentMethodMomo           PaymentMethod = "momo"
	PaymentMethodPendingPayment PaymentMethod = "pending_payment"
	PaymentMethodExchange       PaymentMethod = "exchange"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodMomo,
	PaymentMethodPendingPayment,
	PaymentMethodExchange,
}

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsExchangeTopUpMethod reports whether a customer may pick this method to
// settle an exchange price difference.
func (p PaymentMethod) IsExchangeTopUpMethod() bool {
	return p == PaymentMethodCOD || p == PaymentMethodMomo
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
