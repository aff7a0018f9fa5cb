package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
)

// Message is one rendered notification, usable for email and in-app rows.
type Message struct {
	Type    enums.NotificationType
	Subject string
	Body    string
	Link    string
}

func requestLink(t enums.NotificationType, id uuid.UUID) string {
	if t.ForStaff() {
		return fmt.Sprintf("/admin/returns/%s", id)
	}
	return fmt.Sprintf("/returns/%s", id)
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

func kindOf(t enums.ReturnRequestType) (string, enums.NotificationType) {
	if t == enums.ReturnRequestTypeExchange {
		return "exchange", enums.NotificationTypeExchangeUpdate
	}
	return "return", enums.NotificationTypeReturnUpdate
}

// transitionMessage renders the customer facing outcome of an admin action.
func transitionMessage(requestID uuid.UUID, requestType enums.ReturnRequestType, action enums.ReturnAction, refund decimal.Decimal, notes *string) Message {
	kind, notificationType := kindOf(requestType)
	ref := shortID(requestID)

	var subject, body string
	switch action {
	case enums.ReturnActionApprove:
		subject = fmt.Sprintf("Your %s request #%s was approved", kind, ref)
		body = fmt.Sprintf("Good news: your %s request #%s has been approved.", kind, ref)
		if requestType == enums.ReturnRequestTypeExchange {
			body += " A replacement order has been created for you."
		} else if refund.IsPositive() {
			body += fmt.Sprintf(" Expected refund: %s.", enums.CurrencyVND.Format(refund))
		}
	case enums.ReturnActionReject:
		subject = fmt.Sprintf("Your %s request #%s was rejected", kind, ref)
		body = fmt.Sprintf("Your %s request #%s has been rejected.", kind, ref)
	case enums.ReturnActionComplete:
		subject = fmt.Sprintf("Your %s request #%s is complete", kind, ref)
		body = fmt.Sprintf("We received the returned items and closed %s request #%s.", kind, ref)
	default:
		subject = fmt.Sprintf("Update on %s request #%s", kind, ref)
		body = fmt.Sprintf("Your %s request #%s was updated.", kind, ref)
	}
	if notes != nil && strings.TrimSpace(*notes) != "" {
		body += "\n\nNote from our team: " + strings.TrimSpace(*notes)
	}

	return Message{
		Type:    notificationType,
		Subject: subject,
		Body:    body,
		Link:    requestLink(notificationType, requestID),
	}
}

// TransitionMessage renders the message for a transitioned request.
func TransitionMessage(rr *models.ReturnRequest, action enums.ReturnAction) Message {
	return transitionMessage(rr.ID, rr.Type, action, rr.RefundAmount, rr.AdminNotes)
}

func submittedMessage(requestID uuid.UUID, requestType enums.ReturnRequestType, reason enums.ReturnReason) Message {
	kind, notificationType := kindOf(requestType)
	ref := shortID(requestID)
	return Message{
		Type:    notificationType,
		Subject: fmt.Sprintf("We received your %s request #%s", kind, ref),
		Body:    fmt.Sprintf("Your %s request #%s (%s) is waiting for review.", kind, ref, reason.Label()),
		Link:    requestLink(notificationType, requestID),
	}
}

func nudgeMessage(requestID uuid.UUID, requestType enums.ReturnRequestType, pendingHours int) Message {
	kind, _ := kindOf(requestType)
	return Message{
		Type:    enums.NotificationTypeStaffQueue,
		Subject: fmt.Sprintf("%s request #%s is still pending", strings.ToUpper(kind[:1])+kind[1:], shortID(requestID)),
		Body:    fmt.Sprintf("This %s request has been waiting for review for %d hours.", kind, pendingHours),
		Link:    requestLink(enums.NotificationTypeStaffQueue, requestID),
	}
}
