// Package settings stores the runtime credentials (platform API keys and the
// webhook shared secret) in a single database row, so they can be rotated at
// runtime without a deploy.
package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings is the single credential record. Empty strings mean unset.
type Settings struct {
	ScalevAPIKey        string
	ScalevWebhookSecret string
	MailketingAPIKey    string
}

// UpdateParams carries a partial settings update; nil fields are untouched.
type UpdateParams struct {
	ScalevAPIKey        *string
	ScalevWebhookSecret *string
	MailketingAPIKey    *string
}

// Repository reads and writes the settings row. It also serves as the
// token/secret source for the webhook handler and the platform clients, so
// every call sees the latest stored value.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the settings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the current settings. A missing row reads as all-unset.
func (r *Repository) Get(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(scalev_api_key, ''), COALESCE(scalev_webhook_secret, ''), COALESCE(mailketing_api_key, '')
		FROM settings WHERE id = 1`,
	).Scan(&s.ScalevAPIKey, &s.ScalevWebhookSecret, &s.MailketingAPIKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, nil
	}
	return s, err
}

// Update upserts the settings row, changing only the provided fields.
func (r *Repository) Update(ctx context.Context, params UpdateParams) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `
		INSERT INTO settings (id, scalev_api_key, scalev_webhook_secret, mailketing_api_key)
		VALUES (1, NULLIF($1, ''), NULLIF($2, ''), NULLIF($3, ''))
		ON CONFLICT (id) DO UPDATE SET
			scalev_api_key        = COALESCE(NULLIF($1, ''), CASE WHEN $4 THEN NULL ELSE settings.scalev_api_key END),
			scalev_webhook_secret = COALESCE(NULLIF($2, ''), CASE WHEN $5 THEN NULL ELSE settings.scalev_webhook_secret END),
			mailketing_api_key    = COALESCE(NULLIF($3, ''), CASE WHEN $6 THEN NULL ELSE settings.mailketing_api_key END),
			updated_at = now()
		RETURNING COALESCE(scalev_api_key, ''), COALESCE(scalev_webhook_secret, ''), COALESCE(mailketing_api_key, '')`,
		deref(params.ScalevAPIKey), deref(params.ScalevWebhookSecret), deref(params.MailketingAPIKey),
		isClear(params.ScalevAPIKey), isClear(params.ScalevWebhookSecret), isClear(params.MailketingAPIKey),
	).Scan(&s.ScalevAPIKey, &s.ScalevWebhookSecret, &s.MailketingAPIKey)
	return s, err
}

// deref maps a nil pointer to "" (keep current value).
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// isClear reports whether the caller explicitly set the field to empty,
// which clears the stored credential.
func isClear(p *string) bool {
	return p != nil && *p == ""
}

// WebhookSecret implements the webhook secret source.
func (r *Repository) WebhookSecret(ctx context.Context) (string, error) {
	s, err := r.Get(ctx)
	return s.ScalevWebhookSecret, err
}

// MailketingToken implements the Mailketing token source.
func (r *Repository) MailketingToken(ctx context.Context) (string, error) {
	s, err := r.Get(ctx)
	return s.MailketingAPIKey, err
}

// ScalevAPIKey implements the Scalev key source.
func (r *Repository) ScalevAPIKey(ctx context.Context) (string, error) {
	s, err := r.Get(ctx)
	return s.ScalevAPIKey, err
}
