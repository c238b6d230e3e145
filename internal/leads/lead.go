// Package leads tracks every matched order as a lead moving through the
// follow_up → closing / not_closing funnel, with an append-only status
// history and best-effort sync to the mail platform.
package leads

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Lead statuses. A lead starts in follow_up and leaves it exactly once.
const (
	StatusFollowUp   = "follow_up"
	StatusClosing    = "closing"
	StatusNotClosing = "not_closing"
)

// Lead is one tracked order. OrderID is unique; replays of the same order
// never create a second lead.
type Lead struct {
	ID                 uuid.UUID
	RuleID             *uuid.UUID // nulled when the matching rule is deleted
	OrderID            string
	Name               string
	Email              string
	Phone              string
	HandlerName        string
	HandlerEmail       string
	Status             string
	OrderData          json.RawMessage
	FollowUpStart      time.Time
	ClosedAt           *time.Time
	SentToMailketing   bool
	SentToMailketingAt *time.Time
	MailketingListID   string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HistoryEntry is one immutable status transition record.
type HistoryEntry struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	FromStatus string // empty for the creation entry
	ToStatus   string
	Notes      string
	CreatedAt  time.Time
}

// Stats summarizes the funnel for the admin dashboard.
type Stats struct {
	Total      int `json:"total"`
	FollowUp   int `json:"follow_up"`
	Closing    int `json:"closing"`
	NotClosing int `json:"not_closing"`
	Synced     int `json:"synced"`
}
