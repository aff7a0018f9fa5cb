package enums

import (
	"fmt"
	"strings"
)

// ReturnRequestType distinguishes refunds from like-for-different swaps.
type ReturnRequestType string

const (
	ReturnRequestTypeReturn   ReturnRequestType = "RETURN"
	ReturnRequestTypeExchange ReturnRequestType = "EXCHANGE"
)

var validReturnRequestTypes = []ReturnRequestType{
	ReturnRequestTypeReturn,
	ReturnRequestTypeExchange,
}

func (t ReturnRequestType) String() string {
	return string(t)
}

func (t ReturnRequestType) IsValid() bool {
	for _, candidate := range validReturnRequestTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseReturnRequestType accepts the canonical upper-case value, ignoring case.
func ParseReturnRequestType(value string) (ReturnRequestType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validReturnRequestTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return request type %q", value)
}

// ReturnRequestStatus tracks the lifecycle of a return request.
type ReturnRequestStatus string

const (
	ReturnRequestStatusPending   ReturnRequestStatus = "PENDING"
	ReturnRequestStatusApproved  ReturnRequestStatus = "APPROVED"
	ReturnRequestStatusRejected  ReturnRequestStatus = "REJECTED"
	ReturnRequestStatusCompleted ReturnRequestStatus = "COMPLETED"
)

var validReturnRequestStatuses = []ReturnRequestStatus{
	ReturnRequestStatusPending,
	ReturnRequestStatusApproved,
	ReturnRequestStatusRejected,
	ReturnRequestStatusCompleted,
}

func (s ReturnRequestStatus) String() string {
	return string(s)
}

func (s ReturnRequestStatus) IsValid() bool {
	for _, candidate := range validReturnRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the request still blocks a new request for the
// same items.
func (s ReturnRequestStatus) IsOpen() bool {
	return s == ReturnRequestStatusPending || s == ReturnRequestStatusApproved
}

func ParseReturnRequestStatus(value string) (ReturnRequestStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validReturnRequestStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return request status %q", value)
}

// ReturnAction is an admin decision applied to a request.
type ReturnAction string

const (
	ReturnActionApprove  ReturnAction = "approve"
	ReturnActionReject   ReturnAction = "reject"
	ReturnActionComplete ReturnAction = "complete"
)

var validReturnActions = []ReturnAction{
	ReturnActionApprove,
	ReturnActionReject,
	ReturnActionComplete,
}

func (a ReturnAction) String() string {
	return string(a)
}

func (a ReturnAction) IsValid() bool {
	for _, candidate := range validReturnActions {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseReturnAction(value string) (ReturnAction, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validReturnActions {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return action %q", value)
}
