package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/madhasoeki/scalevxmailketing/platform/logger"
	"github.com/madhasoeki/scalevxmailketing/platform/phone"
)

// ListSyncer pushes a contact onto a mail-platform list.
type ListSyncer interface {
	AddSubscriber(ctx context.Context, listID, name, email, phoneNumber string) error
}

// ListSet holds the destination list ids configured on a matching rule. An
// empty id means no list is configured for that stage.
type ListSet struct {
	FollowUp   string
	Closing    string
	NotClosing string
}

// ListsSource resolves the destination lists of the rule a lead was matched
// under. Used on transitions, where only the lead (not the rule) is at hand.
type ListsSource interface {
	RuleLists(ctx context.Context, ruleID uuid.UUID) (ListSet, error)
}

// Store is the persistence surface the service needs. *Repository implements
// it; tests substitute a fake.
type Store interface {
	Create(ctx context.Context, params CreateParams) (Lead, bool, error)
	MoveToClosing(ctx context.Context, orderID string) (Lead, bool, error)
	MoveToNotClosing(ctx context.Context, id uuid.UUID, notes string) (Lead, bool, error)
	ListExpiredFollowUps(ctx context.Context, cutoff time.Time) ([]Lead, error)
	MarkSynced(ctx context.Context, id uuid.UUID, listID string) error
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, status string) ([]Lead, error)
	History(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error)
	Stats(ctx context.Context) (Stats, error)
}

// RegisterInput carries a matched order into the ledger.
type RegisterInput struct {
	RuleID       uuid.UUID
	OrderID      string
	Name         string
	Email        string
	Phone        string
	HandlerName  string
	HandlerEmail string
	OrderData    json.RawMessage
	Lists        ListSet
}

// Service owns the lead lifecycle: registration, the paid and expiry
// transitions, and the best-effort mail-platform sync that follows each of
// them. Sync failures are logged and never roll back a ledger write.
type Service struct {
	repo   Store
	syncer ListSyncer
	lists  ListsSource
	log    *logger.Logger
}

// NewService creates the leads service.
func NewService(repo Store, syncer ListSyncer, lists ListsSource, log *logger.Logger) *Service {
	return &Service{repo: repo, syncer: syncer, lists: lists, log: log}
}

// Register records a matched order as a follow_up lead and syncs it to the
// rule's follow-up list. Replays of an already-registered order return the
// existing lead with created=false and cause no sync.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Lead, bool, error) {
	lead, created, err := s.repo.Create(ctx, CreateParams{
		RuleID:       input.RuleID,
		OrderID:      input.OrderID,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        normalizePhone(input.Phone),
		HandlerName:  input.HandlerName,
		HandlerEmail: input.HandlerEmail,
		OrderData:    input.OrderData,
	})
	if err != nil {
		return Lead{}, false, fmt.Errorf("registering lead for order %s: %w", input.OrderID, err)
	}
	if created {
		s.sync(ctx, lead, input.Lists.FollowUp)
	}
	return lead, created, nil
}

// MarkOrderPaid moves the lead for orderID from follow_up to closing and
// syncs it to the rule's closing list. A lead that already left follow_up, or
// an order that never produced a lead, reports moved=false.
func (s *Service) MarkOrderPaid(ctx context.Context, orderID string) (Lead, bool, error) {
	lead, moved, err := s.repo.MoveToClosing(ctx, orderID)
	if err != nil {
		return Lead{}, false, fmt.Errorf("closing lead for order %s: %w", orderID, err)
	}
	if moved {
		s.sync(ctx, lead, s.listFor(ctx, lead, StatusClosing))
	}
	return lead, moved, nil
}

// CloseAsNotClosing moves a single lead from follow_up to not_closing (admin
// action or expiry sweep) and syncs it to the rule's not-closing list.
func (s *Service) CloseAsNotClosing(ctx context.Context, id uuid.UUID, notes string) (Lead, bool, error) {
	lead, moved, err := s.repo.MoveToNotClosing(ctx, id, notes)
	if err != nil {
		return Lead{}, false, fmt.Errorf("closing lead %s as not_closing: %w", id, err)
	}
	if moved {
		s.sync(ctx, lead, s.listFor(ctx, lead, StatusNotClosing))
	}
	return lead, moved, nil
}

// SweepExpired expires every follow_up lead whose window started at or before
// the cutoff. Each history note records the lead's actual age in follow-up as
// of now, not the configured threshold. One lead failing never stops the
// batch; the count of successfully expired leads is returned alongside the
// first error seen.
func (s *Service) SweepExpired(ctx context.Context, cutoff, now time.Time) (int, error) {
	expired, err := s.repo.ListExpiredFollowUps(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing expired leads: %w", err)
	}

	var moved int
	var firstErr error
	for _, lead := range expired {
		days := int(now.Sub(lead.FollowUpStart).Hours() / 24)
		notes := fmt.Sprintf("No payment after %d days in follow-up", days)

		_, ok, err := s.CloseAsNotClosing(ctx, lead.ID, notes)
		if err != nil {
			s.log.Error("expiry sweep: lead transition failed", "lead_id", lead.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			moved++
		}
	}
	return moved, firstErr
}

// Resync retries the mail-platform push for a lead at its current status.
func (s *Service) Resync(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	listID := s.listFor(ctx, lead, lead.Status)
	if listID == "" {
		return lead, errors.New("no destination list configured for the lead's status")
	}
	if err := s.syncer.AddSubscriber(ctx, listID, lead.Name, lead.Email, lead.Phone); err != nil {
		return lead, fmt.Errorf("syncing lead %s: %w", id, err)
	}
	if err := s.repo.MarkSynced(ctx, lead.ID, listID); err != nil {
		s.log.DatabaseError("leads.mark_synced", err)
	}
	return s.repo.GetByID(ctx, id)
}

// List, Get, History and Stats are thin passthroughs for the admin API.

func (s *Service) List(ctx context.Context, status string) ([]Lead, error) {
	return s.repo.List(ctx, status)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Lead, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]HistoryEntry, error) {
	return s.repo.History(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

// sync is the shared best-effort push. An empty list id is a configured
// no-op; failures are logged and swallowed.
func (s *Service) sync(ctx context.Context, lead Lead, listID string) {
	if listID == "" {
		return
	}
	if err := s.syncer.AddSubscriber(ctx, listID, lead.Name, lead.Email, lead.Phone); err != nil {
		s.log.SyncFailure(listID, lead.Email, err)
		return
	}
	if err := s.repo.MarkSynced(ctx, lead.ID, listID); err != nil {
		s.log.DatabaseError("leads.mark_synced", err)
	}
}

// listFor resolves the destination list for a status via the lead's rule.
// Leads whose rule was deleted have no destination.
func (s *Service) listFor(ctx context.Context, lead Lead, status string) string {
	if lead.RuleID == nil {
		return ""
	}
	lists, err := s.lists.RuleLists(ctx, *lead.RuleID)
	if err != nil {
		s.log.Error("resolving rule lists", "rule_id", *lead.RuleID, "error", err)
		return ""
	}
	switch status {
	case StatusFollowUp:
		return lists.FollowUp
	case StatusClosing:
		return lists.Closing
	case StatusNotClosing:
		return lists.NotClosing
	default:
		return ""
	}
}

func normalizePhone(raw string) string {
	return phone.NormalizeE164(raw)
}
