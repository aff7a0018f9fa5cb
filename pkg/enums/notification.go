package enums

import (
	"fmt"
	"strings"
)

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationTypeReturnUpdate   NotificationType = "return_update"
	NotificationTypeExchangeUpdate NotificationType = "exchange_update"
	NotificationTypeStaffQueue     NotificationType = "staff_queue"
)

func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypeReturnUpdate, NotificationTypeExchangeUpdate, NotificationTypeStaffQueue:
		return true
	}
	return false
}

// ForStaff reports whether the notification belongs in the review queue
// rather than a customer inbox.
func (n NotificationType) ForStaff() bool {
	return n == NotificationTypeStaffQueue
}

// ParseNotificationType accepts the stored value in any case.
func ParseNotificationType(value string) (NotificationType, error) {
	n := NotificationType(strings.ToLower(strings.TrimSpace(value)))
	if !n.IsValid() {
		return "", fmt.Errorf("invalid notification type %q", value)
	}
	return n, nil
}
