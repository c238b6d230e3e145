package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/madhasoeki/scalevxmailketing/internal/leads"
	"github.com/madhasoeki/scalevxmailketing/internal/rules"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

type fakeResolver struct {
	outcome rules.MatchOutcome
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(_ context.Context, _ rules.OrderEvent) (rules.MatchOutcome, error) {
	f.calls++
	return f.outcome, f.err
}

type fakeLedger struct {
	registered []leads.RegisterInput
	duplicate  bool

	paidOrders []string
	moved      bool
}

func (f *fakeLedger) Register(_ context.Context, input leads.RegisterInput) (leads.Lead, bool, error) {
	f.registered = append(f.registered, input)
	return leads.Lead{OrderID: input.OrderID, Status: leads.StatusFollowUp}, !f.duplicate, nil
}

func (f *fakeLedger) MarkOrderPaid(_ context.Context, orderID string) (leads.Lead, bool, error) {
	f.paidOrders = append(f.paidOrders, orderID)
	return leads.Lead{OrderID: orderID}, f.moved, nil
}

func newTestService(resolver *fakeResolver, ledger *fakeLedger) *Service {
	return NewService(resolver, ledger, logger.New("development"))
}

func orderEvent(eventType string) Event {
	return Event{
		Event: eventType,
		Data: OrderData{
			OrderID: json.Number("12345"),
			Store:   StoreRef{UniqueID: "store-1"},
			Orderlines: []Orderline{
				{VariantSKU: "SKU-1", ProductName: "Widget - 100k", VariantUniqueID: "var-1"},
			},
			DestinationAddress: &Destination{
				Name:  "Budi Santoso",
				Email: "budi@example.com",
				Phone: "081234567890",
			},
		},
	}
}

func matchedRule() rules.MatchOutcome {
	return rules.MatchOutcome{
		Rule: rules.Rule{
			ID:           uuid.New(),
			ProductName:  "Widget - 100k",
			ListFollowUp: "L1",
			ListClosing:  "L2",
		},
		MatchedBy: "product_name",
	}
}

func TestProcessTestEvent(t *testing.T) {
	resolver := &fakeResolver{}
	ledger := &fakeLedger{}
	svc := newTestService(resolver, ledger)

	result, err := svc.Process(context.Background(), Event{Event: EventTest}, nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.Status != http.StatusOK || result.Outcome != OutcomeTestAck {
		t.Errorf("got %d/%s, want 200/%s", result.Status, result.Outcome, OutcomeTestAck)
	}
	if resolver.calls != 0 || len(ledger.registered) != 0 {
		t.Error("test events must cause no side effects")
	}
}

func TestProcessOrderCreated(t *testing.T) {
	resolver := &fakeResolver{outcome: matchedRule()}
	ledger := &fakeLedger{}
	svc := newTestService(resolver, ledger)

	ev := orderEvent(EventOrderCreated)
	raw, _ := json.Marshal(ev)

	result, err := svc.Process(context.Background(), ev, raw)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.Status != http.StatusOK || result.Outcome != OutcomeLeadCreated {
		t.Fatalf("got %d/%s, want 200/%s", result.Status, result.Outcome, OutcomeLeadCreated)
	}
	if len(ledger.registered) != 1 {
		t.Fatalf("expected one registration, got %d", len(ledger.registered))
	}

	got := ledger.registered[0]
	if got.OrderID != "12345" {
		t.Errorf("OrderID = %q, want 12345", got.OrderID)
	}
	if got.Name != "Budi Santoso" || got.Email != "budi@example.com" {
		t.Errorf("customer = %q/%q", got.Name, got.Email)
	}
	if got.Lists.FollowUp != "L1" || got.Lists.Closing != "L2" {
		t.Errorf("lists = %+v, want follow-up L1 and closing L2", got.Lists)
	}
	if len(got.OrderData) == 0 {
		t.Error("expected the raw event stored as order data")
	}
}

func TestProcessOrderDuplicate(t *testing.T) {
	resolver := &fakeResolver{outcome: matchedRule()}
	ledger := &fakeLedger{duplicate: true}
	svc := newTestService(resolver, ledger)

	result, err := svc.Process(context.Background(), orderEvent(EventOrderUpdated), nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.Status != http.StatusOK || result.Outcome != OutcomeDuplicateOrder {
		t.Errorf("got %d/%s, want 200/%s", result.Status, result.Outcome, OutcomeDuplicateOrder)
	}
}

func TestProcessOrderNoProductMatch(t *testing.T) {
	resolver := &fakeResolver{err: rules.ErrNoProductMatch}
	ledger := &fakeLedger{}
	svc := newTestService(resolver, ledger)

	result, err := svc.Process(context.Background(), orderEvent(EventOrderCreated), nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.Status != http.StatusNotFound || result.Outcome != OutcomeNoProductMatch {
		t.Errorf("got %d/%s, want 404/%s", result.Status, result.Outcome, OutcomeNoProductMatch)
	}
	// The message names every product identifier a rule could match on.
	for _, want := range []string{"Widget - 100k", "SKU-1", "var-1"} {
		if !strings.Contains(result.Message, want) {
			t.Errorf("message %q missing %q", result.Message, want)
		}
	}
	if len(ledger.registered) != 0 {
		t.Error("unmatched orders must not reach the ledger")
	}
}

func TestProcessOrderNoHandlerMatch(t *testing.T) {
	resolver := &fakeResolver{err: rules.ErrNoHandlerMatch}
	svc := newTestService(resolver, &fakeLedger{})

	result, err := svc.Process(context.Background(), orderEvent(EventOrderCreated), nil)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.Status != http.StatusOK || result.Outcome != OutcomeNoHandlerMatch {
		t.Errorf("got %d/%s, want 200/%s", result.Status, result.Outcome, OutcomeNoHandlerMatch)
	}
}

func TestProcessOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"no orderlines", func(ev *Event) { ev.Data.Orderlines = nil }},
		{"no customer name", func(ev *Event) { ev.Data.DestinationAddress.Name = "" }},
		{"no customer email", func(ev *Event) { ev.Data.DestinationAddress.Email = "" }},
		{"no order id", func(ev *Event) { ev.Data.OrderID = ""; ev.Data.ID = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &fakeResolver{outcome: matchedRule()}
			ledger := &fakeLedger{}
			svc := newTestService(resolver, ledger)

			ev := orderEvent(EventOrderCreated)
			tc.mutate(&ev)

			result, err := svc.Process(context.Background(), ev, nil)
			if err != nil {
				t.Fatalf("Process returned error: %v", err)
			}
			if result.Status != http.StatusBadRequest || result.Outcome != OutcomeInvalidPayload {
				t.Errorf("got %d/%s, want 400/%s", result.Status, result.Outcome, OutcomeInvalidPayload)
			}
			if len(ledger.registered) != 0 {
				t.Error("invalid payloads must not reach the ledger")
			}
		})
	}
}

func TestProcessPaymentStatusChanged(t *testing.T) {
	t.Run("paid moves the lead", func(t *testing.T) {
		ledger := &fakeLedger{moved: true}
		svc := newTestService(&fakeResolver{}, ledger)

		ev := orderEvent(EventPaymentStatusChanged)
		ev.Data.PaymentStatus = "paid"

		result, err := svc.Process(context.Background(), ev, nil)
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}
		if result.Outcome != OutcomeClosing {
			t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeClosing)
		}
		if len(ledger.paidOrders) != 1 || ledger.paidOrders[0] != "12345" {
			t.Errorf("paid orders = %v", ledger.paidOrders)
		}
	})

	t.Run("unpaid status is ignored", func(t *testing.T) {
		ledger := &fakeLedger{}
		svc := newTestService(&fakeResolver{}, ledger)

		ev := orderEvent(EventPaymentStatusChanged)
		ev.Data.PaymentStatus = "pending"

		result, err := svc.Process(context.Background(), ev, nil)
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}
		if result.Outcome != OutcomeIgnored {
			t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeIgnored)
		}
		if len(ledger.paidOrders) != 0 {
			t.Error("unpaid events must not touch the ledger")
		}
	})

	t.Run("paid without a lead is ignored", func(t *testing.T) {
		ledger := &fakeLedger{moved: false}
		svc := newTestService(&fakeResolver{}, ledger)

		ev := orderEvent(EventPaymentStatusChanged)
		ev.Data.PaymentStatus = "paid"

		result, err := svc.Process(context.Background(), ev, nil)
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}
		if result.Status != http.StatusOK || result.Outcome != OutcomeIgnored {
			t.Errorf("got %d/%s, want 200/%s", result.Status, result.Outcome, OutcomeIgnored)
		}
	})
}

func TestProcessUnknownEvent(t *testing.T) {
	resolver := &fakeResolver{}
	ledger := &fakeLedger{}
	svc := newTestService(resolver, ledger)

	for _, eventType := range []string{EventOrderStatusChanged, EventOrderDeleted, "order.something_new"} {
		result, err := svc.Process(context.Background(), Event{Event: eventType}, nil)
		if err != nil {
			t.Fatalf("Process(%s) returned error: %v", eventType, err)
		}
		if result.Status != http.StatusOK || result.Outcome != OutcomeIgnored {
			t.Errorf("Process(%s) = %d/%s, want 200/%s", eventType, result.Status, result.Outcome, OutcomeIgnored)
		}
	}
	if resolver.calls != 0 || len(ledger.registered) != 0 || len(ledger.paidOrders) != 0 {
		t.Error("ignored events must cause no side effects")
	}
}
