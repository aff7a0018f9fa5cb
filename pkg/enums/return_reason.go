package enums

import (
	"fmt"
	"strings"
)

// ReturnReason is the customer supplied reason for a return or exchange.
type ReturnReason string

const (
	ReturnReasonDefective       ReturnReason = "DEFECTIVE"
	ReturnReasonWrongItem       ReturnReason = "WRONG_ITEM"
	ReturnReasonDamagedShipping ReturnReason = "DAMAGED_SHIPPING"
	ReturnReasonChangeMind      ReturnReason = "CHANGE_MIND"
	ReturnReasonWrongSize       ReturnReason = "WRONG_SIZE"
	ReturnReasonNotAsDescribed  ReturnReason = "NOT_AS_DESCRIBED"
)

var validReturnReasons = []ReturnReason{
	ReturnReasonDefective,
	ReturnReasonWrongItem,
	ReturnReasonDamagedShipping,
	ReturnReasonChangeMind,
	ReturnReasonWrongSize,
	ReturnReasonNotAsDescribed,
}

var returnReasonLabels = map[ReturnReason]string{
	ReturnReasonDefective:       "Sản phẩm bị lỗi",
	ReturnReasonWrongItem:       "Giao sai sản phẩm",
	ReturnReasonDamagedShipping: "Hư hỏng khi vận chuyển",
	ReturnReasonChangeMind:      "Đổi ý",
	ReturnReasonWrongSize:       "Sai kích cỡ",
	ReturnReasonNotAsDescribed:  "Không đúng mô tả",
}

// ReturnReasons lists every supported reason in display order.
func ReturnReasons() []ReturnReason {
	out := make([]ReturnReason, len(validReturnReasons))
	copy(out, validReturnReasons)
	return out
}

func (r ReturnReason) String() string {
	return string(r)
}

// Label returns the customer facing label for the reason.
func (r ReturnReason) Label() string {
	if label, ok := returnReasonLabels[r]; ok {
		return label
	}
	return string(r)
}

func (r ReturnReason) IsValid() bool {
	for _, candidate := range validReturnReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseReturnReason(value string) (ReturnReason, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validReturnReasons {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return reason %q", value)
}

// RestockReason explains why returned units are put back on the shelf.
// Every ReturnReason is a RestockReason; EXCHANGE is used when an exchange
// completes.
type RestockReason string

const RestockReasonExchange RestockReason = "EXCHANGE"

// RestockReasonFor maps a return reason onto the restock vocabulary.
func RestockReasonFor(reason ReturnReason) RestockReason {
	return RestockReason(reason)
}

// SkipsRestock reports whether units returned for this reason must not be
// added back to sellable stock.
func (r RestockReason) SkipsRestock() bool {
	return r == RestockReason(ReturnReasonDefective)
}

func (r RestockReason) String() string {
	return string(r)
}
