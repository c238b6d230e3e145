package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrLeadNotFound = errors.New("lead not found")

// CreateParams carries everything needed to register a new lead.
type CreateParams struct {
	RuleID       uuid.UUID
	OrderID      string
	Name         string
	Email        string
	Phone        string
	HandlerName  string
	HandlerEmail string
	OrderData    json.RawMessage
}

// Repository provides data access for leads and their history.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new leads repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, rule_id, order_id, name, email, COALESCE(phone, ''),
	COALESCE(handler_name, ''), COALESCE(handler_email, ''), status, order_data,
	follow_up_start, closed_at, sent_to_mailketing, sent_to_mailketing_at,
	COALESCE(mailketing_list_id, ''), created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.RuleID, &l.OrderID, &l.Name, &l.Email, &l.Phone,
		&l.HandlerName, &l.HandlerEmail, &l.Status, &l.OrderData,
		&l.FollowUpStart, &l.ClosedAt, &l.SentToMailketing, &l.SentToMailketingAt,
		&l.MailketingListID, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// Create registers a lead for an order. Creation is idempotent on order_id:
// when the order was already registered the existing lead is returned and
// created is false, with no history written. The insert and its creation
// history entry commit atomically.
func (r *Repository) Create(ctx context.Context, params CreateParams) (lead Lead, created bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, false, err
	}
	defer tx.Rollback(ctx)

	lead, err = scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (rule_id, order_id, name, email, phone, handler_name, handler_email, order_data)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING `+leadColumns,
		params.RuleID, params.OrderID, params.Name, params.Email,
		params.Phone, params.HandlerName, params.HandlerEmail, params.OrderData,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// Duplicate order; hand back the existing lead untouched.
		existing, getErr := r.GetByOrderID(ctx, params.OrderID)
		return existing, false, getErr
	}
	if err != nil {
		return Lead{}, false, err
	}

	if err := insertHistory(ctx, tx, lead.ID, "", StatusFollowUp, "Lead created from order"); err != nil {
		return Lead{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Lead{}, false, err
	}
	return lead, true, nil
}

// MoveToClosing transitions a lead out of follow_up when its order is paid.
// The conditional UPDATE is the concurrency guard: a lead that already left
// follow_up (or never existed) reports moved=false and stays untouched.
func (r *Repository) MoveToClosing(ctx context.Context, orderID string) (Lead, bool, error) {
	return r.transition(ctx, `
		UPDATE leads
		SET status = $2, closed_at = now(), updated_at = now()
		WHERE order_id = $1 AND status = $3
		RETURNING `+leadColumns,
		[]any{orderID, StatusClosing, StatusFollowUp},
		StatusClosing, "Payment received - order paid")
}

// MoveToNotClosing transitions a lead out of follow_up when it expires or an
// admin closes it manually. Guarded the same way as MoveToClosing; closed_at
// stays null, it marks a successful close only.
func (r *Repository) MoveToNotClosing(ctx context.Context, id uuid.UUID, notes string) (Lead, bool, error) {
	return r.transition(ctx, `
		UPDATE leads
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+leadColumns,
		[]any{id, StatusNotClosing, StatusFollowUp},
		StatusNotClosing, notes)
}

func (r *Repository) transition(ctx context.Context, query string, args []any, toStatus, notes string) (Lead, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, false, err
	}
	defer tx.Rollback(ctx)

	lead, err := scanLead(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, false, nil
	}
	if err != nil {
		return Lead{}, false, err
	}

	if err := insertHistory(ctx, tx, lead.ID, StatusFollowUp, toStatus, notes); err != nil {
		return Lead{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Lead{}, false, err
	}
	return lead, true, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, from, to, notes string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO lead_history (lead_id, from_status, to_status, notes)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''))`,
		leadID, from, to, notes)
	if err != nil {
		return fmt.Errorf("recording lead history: %w", err)
	}
	return nil
}

// MarkSynced records a successful mail-platform push for a lead.
func (r *Repository) MarkSynced(ctx context.Context, id uuid.UUID, listID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET sent_to_mailketing = true, sent_to_mailketing_at = now(),
			mailketing_list_id = $2, updated_at = now()
		WHERE id = $1`,
		id, listID)
	return err
}

// ListExpiredFollowUps returns every lead still in follow_up whose follow-up
// window started at or before the cutoff. The boundary is inclusive.
func (r *Repository) ListExpiredFollowUps(ctx context.Context, cutoff time.Time) ([]Lead, error) {
	return r.queryLeads(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE status = $1 AND follow_up_start <= $2
		ORDER BY follow_up_start`,
		StatusFollowUp, cutoff)
}

// List returns leads newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status string) ([]Lead, error) {
	if status == "" {
		return r.queryLeads(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC`)
	}
	return r.queryLeads(ctx, `SELECT `+leadColumns+` FROM leads WHERE status = $1 ORDER BY created_at DESC`, status)
}

func (r *Repository) queryLeads(ctx context.Context, query string, args ...any) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

// GetByID retrieves a single lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// GetByOrderID retrieves a lead by its order.
func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE order_id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// History returns a lead's transitions oldest first.
func (r *Repository) History(ctx context.Context, leadID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, COALESCE(from_status, ''), to_status, COALESCE(notes, ''), created_at
		FROM lead_history
		WHERE lead_id = $1
		ORDER BY created_at, id`,
		leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.FromStatus, &e.ToStatus, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats aggregates funnel counts.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = $1),
			count(*) FILTER (WHERE status = $2),
			count(*) FILTER (WHERE status = $3),
			count(*) FILTER (WHERE sent_to_mailketing)
		FROM leads`,
		StatusFollowUp, StatusClosing, StatusNotClosing,
	).Scan(&s.Total, &s.FollowUp, &s.Closing, &s.NotClosing, &s.Synced)
	return s, err
}
