// Package webhook receives Scalev order events, authenticates them, and
// drives the matching and lead lifecycle that follows.
package webhook

import (
	"encoding/json"
	"strings"

	"github.com/madhasoeki/scalevxmailketing/internal/rules"
)

// Event names Scalev sends. Anything else is acknowledged and ignored.
const (
	EventTest                 = "business.test_event"
	EventOrderCreated         = "order.created"
	EventOrderEPaymentCreated = "order.epayment_created"
	EventOrderSpamCreated     = "order.spam_created"
	EventOrderUpdated         = "order.updated"
	EventPaymentStatusChanged = "order.payment_status_changed"
	EventOrderStatusChanged   = "order.status_changed"
	EventOrderDeleted         = "order.deleted"
)

const paymentStatusPaid = "paid"

// Event is the envelope Scalev posts to the webhook endpoint.
type Event struct {
	Event    string    `json:"event"`
	UniqueID string    `json:"unique_id"`
	Data     OrderData `json:"data"`
}

// OrderData is the order payload. Scalev sends ids as numbers on some events
// and strings on others; json.Number absorbs both.
type OrderData struct {
	OrderID            json.Number  `json:"order_id"`
	ID                 json.Number  `json:"id"`
	PaymentStatus      string       `json:"payment_status"`
	Store              StoreRef     `json:"store"`
	Orderlines         []Orderline  `json:"orderlines"`
	Handler            *HandlerRef  `json:"handler"`
	DestinationAddress *Destination `json:"destination_address"`
	CustomerName       string       `json:"customer_name"`
	CustomerEmail      string       `json:"customer_email"`
	CustomerPhone      string       `json:"customer_phone"`
}

// StoreRef identifies the store an order belongs to.
type StoreRef struct {
	ID       json.Number `json:"id"`
	UniqueID string      `json:"unique_id"`
	Name     string      `json:"name"`
}

// Orderline is one purchased product on the order.
type Orderline struct {
	VariantSKU      string `json:"variant_sku"`
	ProductName     string `json:"product_name"`
	VariantUniqueID string `json:"variant_unique_id"`
}

// HandlerRef is the sales person attributed to the order.
type HandlerRef struct {
	ID       json.Number `json:"id"`
	UniqueID string      `json:"unique_id"`
	Name     string      `json:"name"`
	Fullname string      `json:"fullname"`
	Email    string      `json:"email"`
}

// Destination is the shipping contact, the primary source of customer
// identity on an order.
type Destination struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// OrderID returns the order's identifier; some events carry it as order_id,
// others as id.
func (e *Event) OrderID() string {
	if s := e.Data.OrderID.String(); s != "" {
		return s
	}
	return e.Data.ID.String()
}

// StoreID prefers the store's stable unique_id over its numeric id.
func (e *Event) StoreID() string {
	if e.Data.Store.UniqueID != "" {
		return e.Data.Store.UniqueID
	}
	return e.Data.Store.ID.String()
}

// Customer returns the contact identity, preferring the destination address
// and falling back to the flat customer fields.
func (e *Event) Customer() (name, email, phone string) {
	if d := e.Data.DestinationAddress; d != nil {
		name, email, phone = d.Name, d.Email, d.Phone
	}
	if name == "" {
		name = e.Data.CustomerName
	}
	if email == "" {
		email = e.Data.CustomerEmail
	}
	if phone == "" {
		phone = e.Data.CustomerPhone
	}
	return strings.TrimSpace(name), strings.TrimSpace(email), strings.TrimSpace(phone)
}

// MatchEvent projects the wire payload onto the matcher's input.
func (e *Event) MatchEvent() rules.OrderEvent {
	out := rules.OrderEvent{StoreID: e.StoreID()}
	for _, line := range e.Data.Orderlines {
		out.Products = append(out.Products, rules.ProductCandidate{
			SKU:       line.VariantSKU,
			Name:      line.ProductName,
			VariantID: line.VariantUniqueID,
		})
	}
	if h := e.Data.Handler; h != nil {
		id := h.UniqueID
		if id == "" {
			id = h.ID.String()
		}
		name := h.Fullname
		if name == "" {
			name = h.Name
		}
		out.Handler = &rules.EventHandler{ID: id, Name: name, Email: h.Email}
	}
	return out
}
