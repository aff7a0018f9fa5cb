package enums

import "testing"

func TestParseReturnActionNormalizesCase(t *testing.T) {
	action, err := ParseReturnAction(" Approve ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != ReturnActionApprove {
		t.Fatalf("expected approve, got %s", action)
	}
	if _, err := ParseReturnAction("cancel"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestParseReturnReason(t *testing.T) {
	for _, reason := range ReturnReasons() {
		parsed, err := ParseReturnReason(string(reason))
		if err != nil || parsed != reason {
			t.Fatalf("round trip failed for %s: %v", reason, err)
		}
	}
	if _, err := ParseReturnReason("BORED"); err == nil {
		t.Fatalf("expected error for unknown reason")
	}
}

func TestRestockReasonSkipsOnlyDefective(t *testing.T) {
	if !RestockReasonFor(ReturnReasonDefective).SkipsRestock() {
		t.Fatalf("defective returns must not be restocked")
	}
	for _, reason := range []ReturnReason{ReturnReasonDamagedShipping, ReturnReasonChangeMind, ReturnReasonWrongItem} {
		if RestockReasonFor(reason).SkipsRestock() {
			t.Fatalf("%s should restock", reason)
		}
	}
	if RestockReasonExchange.SkipsRestock() {
		t.Fatalf("exchange completion should restock")
	}
}

func TestReturnRequestStatusIsOpen(t *testing.T) {
	if !ReturnRequestStatusPending.IsOpen() || !ReturnRequestStatusApproved.IsOpen() {
		t.Fatalf("pending and approved requests are open")
	}
	if ReturnRequestStatusRejected.IsOpen() || ReturnRequestStatusCompleted.IsOpen() {
		t.Fatalf("terminal requests are not open")
	}
}

func TestUserRoleIsStaff(t *testing.T) {
	if UserRoleUser.IsStaff() {
		t.Fatalf("customers are not staff")
	}
	if !UserRoleStaff.IsStaff() || !UserRoleAdmin.IsStaff() {
		t.Fatalf("staff and admin should be staff")
	}
}
