package returns

import (
	"testing"

	"github.com/angelmondragon/returns-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
)

func TestNextStatus(t *testing.T) {
	allowed := []struct {
		from   enums.ReturnRequestStatus
		action enums.ReturnAction
		want   enums.ReturnRequestStatus
	}{
		{enums.ReturnRequestStatusPending, enums.ReturnActionApprove, enums.ReturnRequestStatusApproved},
		{enums.ReturnRequestStatusPending, enums.ReturnActionReject, enums.ReturnRequestStatusRejected},
		{enums.ReturnRequestStatusApproved, enums.ReturnActionComplete, enums.ReturnRequestStatusCompleted},
		{enums.ReturnRequestStatusApproved, enums.ReturnActionReject, enums.ReturnRequestStatusRejected},
	}
	for _, tc := range allowed {
		got, err := NextStatus(tc.from, tc.action)
		if err != nil {
			t.Fatalf("%s + %s: unexpected error %v", tc.from, tc.action, err)
		}
		if got != tc.want {
			t.Fatalf("%s + %s: expected %s, got %s", tc.from, tc.action, tc.want, got)
		}
	}
}

func TestNextStatusRejectsEverythingElse(t *testing.T) {
	statuses := []enums.ReturnRequestStatus{
		enums.ReturnRequestStatusPending,
		enums.ReturnRequestStatusApproved,
		enums.ReturnRequestStatusRejected,
		enums.ReturnRequestStatusCompleted,
	}
	actions := []enums.ReturnAction{enums.ReturnActionApprove, enums.ReturnActionReject, enums.ReturnActionComplete}

	allowed := 0
	for _, from := range statuses {
		for _, action := range actions {
			_, err := NextStatus(from, action)
			if err == nil {
				allowed++
				continue
			}
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
				t.Fatalf("%s + %s: expected invalid transition, got %v", from, action, err)
			}
			details, ok := typed.Details().(map[string]any)
			if !ok || details["from"] != from || details["action"] != action {
				t.Fatalf("%s + %s: unexpected details %v", from, action, typed.Details())
			}
		}
	}
	if allowed != 4 {
		t.Fatalf("expected exactly 4 legal transitions, got %d", allowed)
	}
}

func TestIsReversal(t *testing.T) {
	if !isReversal(enums.ReturnRequestStatusApproved, enums.ReturnActionReject) {
		t.Fatalf("approved + reject is a reversal")
	}
	if isReversal(enums.ReturnRequestStatusPending, enums.ReturnActionReject) {
		t.Fatalf("pending + reject needs no compensation")
	}
}
