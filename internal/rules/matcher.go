package rules

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNoProductMatch means no active rule recognized any product on the order.
	ErrNoProductMatch = errors.New("no rule matches the order's products")
	// ErrNoHandlerMatch means rules matched the product but none accepted the
	// order's handler.
	ErrNoHandlerMatch = errors.New("no matching rule accepts the order's handler")
)

// Rule names shorter than this are excluded from substring matching; short
// names like "Pro" would swallow unrelated products.
const minContainmentLen = 5

// ProductCandidate is one orderline's product identity as seen on the wire.
type ProductCandidate struct {
	SKU       string
	Name      string
	VariantID string
}

// EventHandler is the sales person attributed to the order, if any.
type EventHandler struct {
	ID    string
	Name  string
	Email string
}

// OrderEvent is the normalized slice of an inbound event the matcher needs.
type OrderEvent struct {
	StoreID  string
	Products []ProductCandidate
	Handler  *EventHandler
}

// MatchOutcome reports the winning rule and which cascade level produced it.
type MatchOutcome struct {
	Rule      Rule
	MatchedBy string // "sku", "product_name", "partial_name" or "variant_id"
}

// Match resolves an order event against a snapshot of rules. The cascade runs
// strictly in order; a level that yields candidates short-circuits the rest,
// even if handler resolution then fails. Within the winning level, handler
// resolution walks candidates in slice order: a rule with an empty handler set
// wins immediately, otherwise the first rule whose set contains the event's
// handler wins.
func Match(ruleSet []Rule, ev OrderEvent) (MatchOutcome, error) {
	active := make([]Rule, 0, len(ruleSet))
	for _, r := range ruleSet {
		if r.IsActive {
			active = append(active, r)
		}
	}

	levels := []struct {
		name    string
		collect func() []Rule
	}{
		{"sku", func() []Rule { return matchSKU(active, ev) }},
		{"product_name", func() []Rule { return matchExactName(active, ev) }},
		{"partial_name", func() []Rule { return matchPartialName(active, ev) }},
		{"variant_id", func() []Rule { return matchVariantID(active, ev) }},
	}

	for _, level := range levels {
		candidates := level.collect()
		if len(candidates) == 0 {
			continue
		}
		winner, ok := resolveHandler(candidates, ev.Handler)
		if !ok {
			return MatchOutcome{}, ErrNoHandlerMatch
		}
		return MatchOutcome{Rule: winner, MatchedBy: level.name}, nil
	}
	return MatchOutcome{}, ErrNoProductMatch
}

// matchSKU is the only store-scoped level: a rule applies only when the event
// names the rule's store (or the event carries no store at all).
func matchSKU(ruleSet []Rule, ev OrderEvent) []Rule {
	var out []Rule
	for _, p := range ev.Products {
		sku := strings.TrimSpace(p.SKU)
		if sku == "" {
			continue
		}
		for _, r := range ruleSet {
			if ev.StoreID != "" && r.StoreID != "" && r.StoreID != ev.StoreID {
				continue
			}
			if r.ProductID != "" && r.ProductID == sku {
				out = append(out, r)
			}
		}
	}
	return out
}

func matchExactName(ruleSet []Rule, ev OrderEvent) []Rule {
	var out []Rule
	for _, p := range ev.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		for _, r := range ruleSet {
			if r.ProductName != "" && strings.EqualFold(r.ProductName, name) {
				out = append(out, r)
			}
		}
	}
	return out
}

// matchPartialName collects rules whose product name is contained in an
// orderline's product name. Longer rule names sort first so the most specific
// rule wins deterministically regardless of creation order.
func matchPartialName(ruleSet []Rule, ev OrderEvent) []Rule {
	var out []Rule
	for _, p := range ev.Products {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			continue
		}
		for _, r := range ruleSet {
			ruleName := strings.ToLower(strings.TrimSpace(r.ProductName))
			if len(ruleName) >= minContainmentLen && strings.Contains(name, ruleName) {
				out = append(out, r)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].ProductName) > len(out[j].ProductName)
	})
	return out
}

func matchVariantID(ruleSet []Rule, ev OrderEvent) []Rule {
	var out []Rule
	for _, p := range ev.Products {
		variant := strings.TrimSpace(p.VariantID)
		if variant == "" {
			continue
		}
		for _, r := range ruleSet {
			if r.ProductID != "" && r.ProductID == variant {
				out = append(out, r)
			}
		}
	}
	return out
}

// resolveHandler picks the first candidate whose handler set accepts the
// event's handler. An empty set accepts anything, including an absent handler.
func resolveHandler(candidates []Rule, h *EventHandler) (Rule, bool) {
	for _, r := range candidates {
		if len(r.Handlers) == 0 {
			return r, true
		}
		if h != nil && handlerInSet(r.Handlers, *h) {
			return r, true
		}
	}
	return Rule{}, false
}

// handlerInSet compares id first, then email, then name. IDs compare exactly
// after trimming; email and name compare case-insensitively.
func handlerInSet(set []Handler, h EventHandler) bool {
	id := strings.TrimSpace(h.ID)
	email := strings.TrimSpace(h.Email)
	name := strings.TrimSpace(h.Name)

	for _, m := range set {
		if id != "" && strings.TrimSpace(m.ID) == id {
			return true
		}
	}
	for _, m := range set {
		if email != "" && strings.EqualFold(strings.TrimSpace(m.Email), email) {
			return true
		}
	}
	for _, m := range set {
		if name != "" && strings.EqualFold(strings.TrimSpace(m.Name), name) {
			return true
		}
	}
	return false
}
