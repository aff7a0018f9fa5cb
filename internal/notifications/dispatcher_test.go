package notifications

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

type stubChannel struct {
	name      string
	err       error
	delivered []Message
	to        []Recipient
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Deliver(_ context.Context, to Recipient, msg Message) error {
	s.to = append(s.to, to)
	s.delivered = append(s.delivered, msg)
	return s.err
}

func testLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "notifications-test", Output: buf})
}

func TestDispatcherAttemptsEveryChannel(t *testing.T) {
	first := &stubChannel{name: "first", err: errors.New("smtp down")}
	second := &stubChannel{name: "second"}
	third := &stubChannel{name: "third", err: errors.New("quota")}

	d, err := NewDispatcher(testLogger(&bytes.Buffer{}), first, second, third)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	rr := &models.ReturnRequest{ID: uuid.New(), Type: enums.ReturnRequestTypeReturn, RefundAmount: decimal.NewFromInt(782000)}
	to := Recipient{UserID: uuid.New(), Email: "lan@example.com", Name: "Lan"}

	err = d.Notify(context.Background(), to, rr, enums.ReturnActionApprove)
	if err == nil {
		t.Fatal("expected combined error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 channel errors, got %d: %v", got, err)
	}
	if !strings.Contains(err.Error(), "first: smtp down") || !strings.Contains(err.Error(), "third: quota") {
		t.Fatalf("channel names missing from %q", err.Error())
	}
	if len(second.delivered) != 1 || second.to[0].Email != "lan@example.com" {
		t.Fatalf("healthy channel should still deliver, got %+v", second.delivered)
	}
	if !strings.Contains(second.delivered[0].Body, "782,000 VND") {
		t.Fatalf("refund missing from body %q", second.delivered[0].Body)
	}
}

func TestDispatcherFallsBackToLog(t *testing.T) {
	buf := &bytes.Buffer{}
	smtp, err := NewSMTPChannel(config.SMTPConfig{})
	if err != nil {
		t.Fatalf("NewSMTPChannel: %v", err)
	}
	if smtp != nil {
		t.Fatal("expected no smtp channel without a host")
	}

	d, err := NewDispatcher(testLogger(buf), smtp)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	rr := &models.ReturnRequest{ID: uuid.New(), Type: enums.ReturnRequestTypeExchange}
	if err := d.Notify(context.Background(), Recipient{Email: "an@example.com"}, rr, enums.ReturnActionReject); err != nil {
		t.Fatalf("unexpected notify error: %v", err)
	}
	if !strings.Contains(buf.String(), "notification dispatched") || !strings.Contains(buf.String(), "an@example.com") {
		t.Fatalf("expected log delivery, got %s", buf.String())
	}
}

func TestDispatcherRequiresRequest(t *testing.T) {
	d, _ := NewDispatcher(testLogger(&bytes.Buffer{}))
	if err := d.Notify(context.Background(), Recipient{}, nil, enums.ReturnActionApprove); err == nil {
		t.Fatal("expected error for nil request")
	}
}

func TestTransitionMessages(t *testing.T) {
	notes := "  Item arrived scratched  "
	id := uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000000")

	approved := transitionMessage(id, enums.ReturnRequestTypeExchange, enums.ReturnActionApprove, decimal.Zero, nil)
	if approved.Type != enums.NotificationTypeExchangeUpdate {
		t.Fatalf("unexpected type %s", approved.Type)
	}
	if approved.Subject != "Your exchange request #3F2A9C1E was approved" {
		t.Fatalf("unexpected subject %q", approved.Subject)
	}
	if !strings.Contains(approved.Body, "replacement order") {
		t.Fatalf("exchange approval should mention the new order: %q", approved.Body)
	}

	rejected := transitionMessage(id, enums.ReturnRequestTypeReturn, enums.ReturnActionReject, decimal.Zero, &notes)
	if !strings.HasSuffix(rejected.Body, "Note from our team: Item arrived scratched") {
		t.Fatalf("notes not appended: %q", rejected.Body)
	}
	if rejected.Link != "/returns/"+id.String() {
		t.Fatalf("unexpected link %q", rejected.Link)
	}

	nudge := nudgeMessage(id, enums.ReturnRequestTypeReturn, 52)
	if nudge.Type != enums.NotificationTypeStaffQueue || !strings.HasPrefix(nudge.Subject, "Return request") {
		t.Fatalf("unexpected nudge %+v", nudge)
	}
}
