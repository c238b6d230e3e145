package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/madhasoeki/scalevxmailketing/internal/leads"
	"github.com/madhasoeki/scalevxmailketing/internal/rules"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

// RuleResolver matches an order event against the active rule set.
type RuleResolver interface {
	Resolve(ctx context.Context, ev rules.OrderEvent) (rules.MatchOutcome, error)
}

// Ledger is the slice of the lead lifecycle the webhook drives.
type Ledger interface {
	Register(ctx context.Context, input leads.RegisterInput) (leads.Lead, bool, error)
	MarkOrderPaid(ctx context.Context, orderID string) (leads.Lead, bool, error)
}

// Outcome labels for webhook responses and logs.
const (
	OutcomeTestAck        = "test_acknowledged"
	OutcomeLeadCreated    = "lead_created"
	OutcomeDuplicateOrder = "duplicate_order"
	OutcomeNoProductMatch = "no_product_match"
	OutcomeNoHandlerMatch = "no_handler_match"
	OutcomeClosing        = "moved_to_closing"
	OutcomeIgnored        = "ignored"
	OutcomeInvalidPayload = "invalid_payload"
)

// Result is the terminal state of event processing: the HTTP status to
// answer with and the outcome label for the response body and logs.
type Result struct {
	Status  int
	Outcome string
	Message string
}

// Service classifies authenticated events and drives matching and the lead
// ledger. Signature verification happens before the service is reached.
type Service struct {
	resolver RuleResolver
	ledger   Ledger
	log      *logger.Logger
}

// NewService creates the webhook processing service.
func NewService(resolver RuleResolver, ledger Ledger, log *logger.Logger) *Service {
	return &Service{resolver: resolver, ledger: ledger, log: log}
}

// Process handles one authenticated event. Errors are reserved for
// infrastructure failures; every business outcome, including rejections, is
// expressed as a Result.
func (s *Service) Process(ctx context.Context, ev Event, raw json.RawMessage) (Result, error) {
	switch ev.Event {
	case EventTest:
		return Result{Status: http.StatusOK, Outcome: OutcomeTestAck, Message: "test event received"}, nil

	case EventOrderCreated, EventOrderEPaymentCreated, EventOrderSpamCreated, EventOrderUpdated:
		return s.processOrder(ctx, ev, raw)

	case EventPaymentStatusChanged:
		return s.processPayment(ctx, ev)

	default:
		// order.status_changed, order.deleted and anything unknown are
		// acknowledged so Scalev does not retry them.
		s.log.WebhookEvent(ev.Event, ev.OrderID(), OutcomeIgnored)
		return Result{Status: http.StatusOK, Outcome: OutcomeIgnored, Message: "event type not handled"}, nil
	}
}

func (s *Service) processOrder(ctx context.Context, ev Event, raw json.RawMessage) (Result, error) {
	orderID := ev.OrderID()
	if orderID == "" {
		return Result{Status: http.StatusBadRequest, Outcome: OutcomeInvalidPayload, Message: "order id missing"}, nil
	}
	if len(ev.Data.Orderlines) == 0 {
		return Result{Status: http.StatusBadRequest, Outcome: OutcomeInvalidPayload, Message: "order has no orderlines"}, nil
	}
	name, email, phone := ev.Customer()
	if name == "" || email == "" {
		return Result{Status: http.StatusBadRequest, Outcome: OutcomeInvalidPayload, Message: "customer name and email are required"}, nil
	}

	matchEv := ev.MatchEvent()
	outcome, err := s.resolver.Resolve(ctx, matchEv)
	switch {
	case errors.Is(err, rules.ErrNoProductMatch):
		s.log.WebhookEvent(ev.Event, orderID, OutcomeNoProductMatch)
		return Result{
			Status:  http.StatusNotFound,
			Outcome: OutcomeNoProductMatch,
			Message: fmt.Sprintf("no rule matches products %s", productContext(ev)),
		}, nil
	case errors.Is(err, rules.ErrNoHandlerMatch):
		s.log.WebhookEvent(ev.Event, orderID, OutcomeNoHandlerMatch)
		return Result{Status: http.StatusOK, Outcome: OutcomeNoHandlerMatch, Message: "order handler not in any matching rule"}, nil
	case err != nil:
		return Result{}, fmt.Errorf("resolving rules for order %s: %w", orderID, err)
	}

	var handlerName, handlerEmail string
	if h := matchEv.Handler; h != nil {
		handlerName, handlerEmail = h.Name, h.Email
	}

	_, created, err := s.ledger.Register(ctx, leads.RegisterInput{
		RuleID:       outcome.Rule.ID,
		OrderID:      orderID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		HandlerName:  handlerName,
		HandlerEmail: handlerEmail,
		OrderData:    raw,
		Lists: leads.ListSet{
			FollowUp:   outcome.Rule.ListFollowUp,
			Closing:    outcome.Rule.ListClosing,
			NotClosing: outcome.Rule.ListNotClosing,
		},
	})
	if err != nil {
		return Result{}, err
	}
	if !created {
		s.log.WebhookEvent(ev.Event, orderID, OutcomeDuplicateOrder)
		return Result{Status: http.StatusOK, Outcome: OutcomeDuplicateOrder, Message: "order already registered"}, nil
	}

	s.log.WebhookEvent(ev.Event, orderID, OutcomeLeadCreated)
	s.log.Info("lead created",
		"order_id", orderID,
		"matched_by", outcome.MatchedBy,
		"rule_id", outcome.Rule.ID,
	)
	return Result{Status: http.StatusOK, Outcome: OutcomeLeadCreated, Message: "lead registered"}, nil
}

func (s *Service) processPayment(ctx context.Context, ev Event) (Result, error) {
	orderID := ev.OrderID()
	if orderID == "" {
		return Result{Status: http.StatusBadRequest, Outcome: OutcomeInvalidPayload, Message: "order id missing"}, nil
	}
	if ev.Data.PaymentStatus != paymentStatusPaid {
		s.log.WebhookEvent(ev.Event, orderID, OutcomeIgnored)
		return Result{Status: http.StatusOK, Outcome: OutcomeIgnored, Message: "payment status is not paid"}, nil
	}

	_, moved, err := s.ledger.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if !moved {
		s.log.WebhookEvent(ev.Event, orderID, OutcomeIgnored)
		return Result{Status: http.StatusOK, Outcome: OutcomeIgnored, Message: "no follow_up lead for order"}, nil
	}

	s.log.WebhookEvent(ev.Event, orderID, OutcomeClosing)
	return Result{Status: http.StatusOK, Outcome: OutcomeClosing, Message: "lead moved to closing"}, nil
}

// productContext describes each orderline with its sku and variant id, so
// the missing rule can be created from the response alone.
func productContext(ev Event) string {
	parts := make([]string, 0, len(ev.Data.Orderlines))
	for _, line := range ev.Data.Orderlines {
		desc := line.ProductName
		if line.VariantSKU != "" {
			desc += " sku=" + line.VariantSKU
		}
		if line.VariantUniqueID != "" {
			desc += " variant=" + line.VariantUniqueID
		}
		parts = append(parts, desc)
	}
	return strings.Join(parts, "; ")
}
