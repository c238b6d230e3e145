// Package rules provides the matching-rule bounded context: admin-managed
// product × handler-set rules and the matcher that resolves inbound order
// events against them.
package rules

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRuleNotFound = errors.New("matching rule not found")

// Handler is one eligible sales handler inside a rule's handler set.
type Handler struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Rule associates a store product with an optional handler set and up to
// three Mailketing destination lists. An empty handler set matches any
// handler.
type Rule struct {
	ID             uuid.UUID
	StoreID        string
	StoreName      string
	ProductName    string
	ProductID      string // SKU or variant unique id the rule was registered under
	Handlers       []Handler
	ListFollowUp   string
	ListClosing    string
	ListNotClosing string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RuleParams carries the admin-supplied fields for create/update.
type RuleParams struct {
	StoreID        string
	StoreName      string
	ProductName    string
	ProductID      string
	Handlers       []Handler
	ListFollowUp   string
	ListClosing    string
	ListNotClosing string
	IsActive       bool
}

// Repository provides data access for matching rules.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new rules repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ruleColumns = `
	id, store_id, store_name, product_name, product_id, handlers,
	COALESCE(list_follow_up, ''), COALESCE(list_closing, ''), COALESCE(list_not_closing, ''),
	is_active, created_at, updated_at`

func scanRule(row pgx.Row) (Rule, error) {
	var r Rule
	err := row.Scan(
		&r.ID, &r.StoreID, &r.StoreName, &r.ProductName, &r.ProductID, &r.Handlers,
		&r.ListFollowUp, &r.ListClosing, &r.ListNotClosing,
		&r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// ListActive returns all active rules in creation order. The matcher treats
// this ordering as the candidate discovery order.
func (r *Repository) ListActive(ctx context.Context) ([]Rule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM product_rules WHERE is_active ORDER BY created_at, id`)
}

// List returns all rules, active or not, newest first (admin listing).
func (r *Repository) List(ctx context.Context) ([]Rule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM product_rules ORDER BY created_at DESC, id`)
}

func (r *Repository) list(ctx context.Context, query string) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// GetByID retrieves a single rule.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Rule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM product_rules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Rule{}, ErrRuleNotFound
	}
	return rule, err
}

// Create inserts a new rule.
func (r *Repository) Create(ctx context.Context, params RuleParams) (Rule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx, `
		INSERT INTO product_rules (
			store_id, store_name, product_name, product_id, handlers,
			list_follow_up, list_closing, list_not_closing, is_active
		)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
		RETURNING `+ruleColumns,
		params.StoreID, params.StoreName, params.ProductName, params.ProductID,
		normalizeHandlers(params.Handlers),
		params.ListFollowUp, params.ListClosing, params.ListNotClosing, params.IsActive,
	))
	return rule, err
}

// Update replaces all admin-managed fields of a rule.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params RuleParams) (Rule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx, `
		UPDATE product_rules SET
			store_id = $2, store_name = $3, product_name = $4, product_id = $5,
			handlers = $6,
			list_follow_up = NULLIF($7, ''), list_closing = NULLIF($8, ''),
			list_not_closing = NULLIF($9, ''), is_active = $10, updated_at = now()
		WHERE id = $1
		RETURNING `+ruleColumns,
		id, params.StoreID, params.StoreName, params.ProductName, params.ProductID,
		normalizeHandlers(params.Handlers),
		params.ListFollowUp, params.ListClosing, params.ListNotClosing, params.IsActive,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Rule{}, ErrRuleNotFound
	}
	return rule, err
}

// Delete removes a rule. Leads that referenced it keep their historical
// handler attribution; the foreign key is nulled by the schema.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM product_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// normalizeHandlers guarantees the stored handler set is a JSON array, never
// null, so the empty set keeps its "matches any handler" meaning.
func normalizeHandlers(handlers []Handler) []Handler {
	if handlers == nil {
		return []Handler{}
	}
	return handlers
}
