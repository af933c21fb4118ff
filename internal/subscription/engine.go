package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/ignite/newsletter/internal/domain"
)

// ErrUnknownToken is returned by Confirm for any token that was never
// issued. Malformed and unknown tokens produce the same error so the
// response shape carries no enumeration signal.
var ErrUnknownToken = errors.New("subscription token is not valid")

// ConfirmationMailer sends the confirmation email for a new subscriber.
type ConfirmationMailer interface {
	SendConfirmation(ctx context.Context, to domain.SubscriberEmail, confirmationLink string) error
}

// Engine owns the subscriber lifecycle: create pending, issue token,
// transition to confirmed.
type Engine struct {
	store   *Store
	mailer  ConfirmationMailer
	baseURL string
	log     *zap.Logger
}

// NewEngine creates a subscription engine. baseURL is the public URL the
// confirmation link is built from.
func NewEngine(store *Store, mailer ConfirmationMailer, baseURL string, log *zap.Logger) *Engine {
	return &Engine{store: store, mailer: mailer, baseURL: baseURL, log: log}
}

// Subscribe validates the raw form input, persists a pending subscription
// with its confirmation token atomically, and sends the confirmation
// email. A validation failure returns a *domain.ValidationError before any
// storage is touched. A mail failure after commit is returned to the
// caller but does not undo the subscription: the pending row persists and
// confirmation stays independently retriable.
func (e *Engine) Subscribe(ctx context.Context, nameRaw, emailRaw string) error {
	sub, err := domain.NewSubscriberFromRaw(nameRaw, emailRaw)
	if err != nil {
		return err
	}

	token, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("generate confirmation token: %w", err)
	}

	subscriptionID, err := e.store.CreatePending(ctx, sub, token)
	if err != nil {
		return fmt.Errorf("store new subscriber: %w", err)
	}
	e.log.Info("new subscriber stored",
		zap.String("subscription_id", subscriptionID.String()),
		zap.String("status", StatusPendingConfirmation))

	link := fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s",
		e.baseURL, url.QueryEscape(token))
	if err := e.mailer.SendConfirmation(ctx, sub.Email, link); err != nil {
		e.log.Error("confirmation email failed after commit",
			zap.String("subscription_id", subscriptionID.String()),
			zap.Error(err))
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

// Confirm redeems a confirmation token. Unknown tokens return
// ErrUnknownToken; redeeming a token whose subscription is already
// confirmed succeeds silently.
func (e *Engine) Confirm(ctx context.Context, token string) error {
	subscriptionID, found, err := e.store.SubscriberIDForToken(ctx, token)
	if err != nil {
		return fmt.Errorf("resolve confirmation token: %w", err)
	}
	if !found {
		return ErrUnknownToken
	}

	if err := e.store.MarkConfirmed(ctx, subscriptionID); err != nil {
		return fmt.Errorf("confirm subscriber: %w", err)
	}
	e.log.Info("subscriber confirmed", zap.String("subscription_id", subscriptionID.String()))
	return nil
}
