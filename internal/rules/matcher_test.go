package rules

import (
	"errors"
	"testing"
)

func rule(name, productID, storeID string, handlers ...Handler) Rule {
	return Rule{
		StoreID:     storeID,
		ProductName: name,
		ProductID:   productID,
		Handlers:    handlers,
		IsActive:    true,
	}
}

func TestMatchCascadePriority(t *testing.T) {
	bySKU := rule("Widget Pro", "SKU-1", "store-1")
	byName := rule("Widget Pro Max", "", "")
	byPartial := rule("Widget", "", "")

	ev := OrderEvent{
		StoreID: "store-1",
		Products: []ProductCandidate{
			{SKU: "SKU-1", Name: "Widget Pro Max", VariantID: "var-9"},
		},
	}

	tests := []struct {
		name          string
		rules         []Rule
		wantMatchedBy string
		wantRuleName  string
	}{
		{"sku wins over name", []Rule{byName, bySKU}, "sku", "Widget Pro"},
		{"exact name wins over partial", []Rule{byPartial, byName}, "product_name", "Widget Pro Max"},
		{"partial when nothing exact", []Rule{byPartial}, "partial_name", "Widget"},
		{"variant as last resort", []Rule{rule("Unrelated Thing", "var-9", "")}, "variant_id", "Unrelated Thing"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Match(tc.rules, ev)
			if err != nil {
				t.Fatalf("Match returned error: %v", err)
			}
			if got.MatchedBy != tc.wantMatchedBy {
				t.Errorf("MatchedBy = %q, want %q", got.MatchedBy, tc.wantMatchedBy)
			}
			if got.Rule.ProductName != tc.wantRuleName {
				t.Errorf("matched rule %q, want %q", got.Rule.ProductName, tc.wantRuleName)
			}
		})
	}
}

func TestMatchSKUIsStoreScoped(t *testing.T) {
	r := rule("Widget", "SKU-1", "store-1")
	ev := OrderEvent{
		StoreID:  "store-2",
		Products: []ProductCandidate{{SKU: "SKU-1"}},
	}

	if _, err := Match([]Rule{r}, ev); !errors.Is(err, ErrNoProductMatch) {
		t.Fatalf("expected ErrNoProductMatch for foreign store, got %v", err)
	}

	ev.StoreID = "store-1"
	got, err := Match([]Rule{r}, ev)
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if got.MatchedBy != "sku" {
		t.Errorf("MatchedBy = %q, want sku", got.MatchedBy)
	}
}

func TestMatchPartialName(t *testing.T) {
	t.Run("short rule names never match by containment", func(t *testing.T) {
		ev := OrderEvent{Products: []ProductCandidate{{Name: "Prototype Kit"}}}
		_, err := Match([]Rule{rule("Prot", "", "")}, ev)
		if !errors.Is(err, ErrNoProductMatch) {
			t.Fatalf("expected ErrNoProductMatch, got %v", err)
		}
	})

	t.Run("longest rule name wins", func(t *testing.T) {
		short := rule("Widget", "", "")
		long := rule("Widget Deluxe", "", "")
		ev := OrderEvent{Products: []ProductCandidate{{Name: "Super Widget Deluxe Bundle"}}}

		got, err := Match([]Rule{short, long}, ev)
		if err != nil {
			t.Fatalf("Match returned error: %v", err)
		}
		if got.Rule.ProductName != "Widget Deluxe" {
			t.Errorf("matched %q, want the longer rule name", got.Rule.ProductName)
		}
	})

	t.Run("containment is case-insensitive", func(t *testing.T) {
		ev := OrderEvent{Products: []ProductCandidate{{Name: "SUPER WIDGET 2000"}}}
		got, err := Match([]Rule{rule("widget 2000", "", "")}, ev)
		if err != nil {
			t.Fatalf("Match returned error: %v", err)
		}
		if got.MatchedBy != "partial_name" {
			t.Errorf("MatchedBy = %q, want partial_name", got.MatchedBy)
		}
	})
}

func TestMatchHandlerResolution(t *testing.T) {
	restricted := rule("Widget", "", "", Handler{ID: "h-1", Name: "Ani", Email: "ani@example.com"})
	open := rule("Widget", "", "")
	ev := func(h *EventHandler) OrderEvent {
		return OrderEvent{Products: []ProductCandidate{{Name: "Widget"}}, Handler: h}
	}

	t.Run("empty handler set wins immediately", func(t *testing.T) {
		got, err := Match([]Rule{open, restricted}, ev(nil))
		if err != nil {
			t.Fatalf("Match returned error: %v", err)
		}
		if len(got.Rule.Handlers) != 0 {
			t.Error("expected the open rule to win")
		}
	})

	t.Run("restricted set rejects absent handler", func(t *testing.T) {
		_, err := Match([]Rule{restricted}, ev(nil))
		if !errors.Is(err, ErrNoHandlerMatch) {
			t.Fatalf("expected ErrNoHandlerMatch, got %v", err)
		}
	})

	t.Run("id match", func(t *testing.T) {
		if _, err := Match([]Rule{restricted}, ev(&EventHandler{ID: "h-1"})); err != nil {
			t.Fatalf("expected id match, got %v", err)
		}
	})

	t.Run("email match is case-insensitive", func(t *testing.T) {
		if _, err := Match([]Rule{restricted}, ev(&EventHandler{Email: "ANI@Example.com"})); err != nil {
			t.Fatalf("expected email match, got %v", err)
		}
	})

	t.Run("name match is case-insensitive", func(t *testing.T) {
		if _, err := Match([]Rule{restricted}, ev(&EventHandler{Name: "ani"})); err != nil {
			t.Fatalf("expected name match, got %v", err)
		}
	})

	t.Run("unknown handler", func(t *testing.T) {
		_, err := Match([]Rule{restricted}, ev(&EventHandler{ID: "h-9", Email: "x@example.com", Name: "Bo"}))
		if !errors.Is(err, ErrNoHandlerMatch) {
			t.Fatalf("expected ErrNoHandlerMatch, got %v", err)
		}
	})

	t.Run("falls through to later candidate in the same level", func(t *testing.T) {
		got, err := Match([]Rule{restricted, open}, ev(&EventHandler{ID: "h-9"}))
		if err != nil {
			t.Fatalf("Match returned error: %v", err)
		}
		if len(got.Rule.Handlers) != 0 {
			t.Error("expected the open rule to win after the restricted rule rejected")
		}
	})
}

func TestMatchIgnoresInactiveRules(t *testing.T) {
	r := rule("Widget", "", "")
	r.IsActive = false
	ev := OrderEvent{Products: []ProductCandidate{{Name: "Widget"}}}

	if _, err := Match([]Rule{r}, ev); !errors.Is(err, ErrNoProductMatch) {
		t.Fatalf("expected ErrNoProductMatch for inactive rule, got %v", err)
	}
}

func TestMatchLevelShortCircuits(t *testing.T) {
	// Exact-name level produces only a restricted rule; a permissive rule
	// exists one level down but must never be consulted.
	restricted := rule("Widget", "", "", Handler{ID: "h-1"})
	openPartial := rule("Widge", "", "")
	ev := OrderEvent{Products: []ProductCandidate{{Name: "Widget"}}}

	_, err := Match([]Rule{restricted, openPartial}, ev)
	if !errors.Is(err, ErrNoHandlerMatch) {
		t.Fatalf("expected ErrNoHandlerMatch, got %v", err)
	}
}
