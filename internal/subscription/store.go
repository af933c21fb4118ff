package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter/internal/domain"
)

// Subscription statuses as persisted in the subscriptions table.
const (
	StatusPendingConfirmation = "pending_confirmation"
	StatusConfirmed           = "confirmed"
)

// Store provides database operations for subscriptions and their
// confirmation tokens. It is the only writer of those tables.
type Store struct {
	db *sql.DB
}

// NewStore creates a new subscription store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreatePending inserts a subscription row in pending_confirmation state
// together with its confirmation token, inside a single transaction.
// Readers never observe one row without the other: if either insert fails
// the transaction is rolled back and no partial row exists.
func (s *Store) CreatePending(ctx context.Context, sub domain.NewSubscriber, token string) (uuid.UUID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	subscriptionID := uuid.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)`,
		subscriptionID, sub.Email.String(), sub.Name.String(), time.Now().UTC(), StatusPendingConfirmation)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert subscription: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscription_tokens (subscription_token, subscription_id)
		VALUES ($1, $2)`,
		token, subscriptionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert confirmation token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit transaction: %w", err)
	}
	return subscriptionID, nil
}

// SubscriberIDForToken resolves a confirmation token to its subscription id.
// The boolean is false when the token is unknown; that is not an error.
func (s *Store) SubscriberIDForToken(ctx context.Context, token string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT subscription_id FROM subscription_tokens WHERE subscription_token = $1`,
		token).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("look up token: %w", err)
	}
	return id, true, nil
}

// MarkConfirmed transitions a subscription to confirmed. The update is
// idempotent: confirming an already-confirmed subscription is a no-op.
func (s *Store) MarkConfirmed(ctx context.Context, subscriptionID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2`,
		StatusConfirmed, subscriptionID)
	if err != nil {
		return fmt.Errorf("mark subscription confirmed: %w", err)
	}
	return nil
}

// ConfirmedEmails returns the stored email strings of every confirmed
// subscriber. Values are returned as raw strings; callers re-validate
// before use since data can drift invalid after storage.
func (s *Store) ConfirmedEmails(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email FROM subscriptions WHERE status = $1`, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("query confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan subscriber row: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
