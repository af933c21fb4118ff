// Package newsletter fans a published issue out to all confirmed
// subscribers.
package newsletter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ignite/newsletter/internal/domain"
)

// SubscriberSource yields the stored email strings of confirmed
// subscribers. The dispatcher only ever reads.
type SubscriberSource interface {
	ConfirmedEmails(ctx context.Context) ([]string, error)
}

// Sender delivers one email. Implemented by the mail gateway client.
type Sender interface {
	Send(ctx context.Context, to domain.SubscriberEmail, subject, htmlBody, textBody string) error
}

// Dispatcher delivers newsletter issues synchronously, best effort. It is
// not a job queue: there is no durable retry, and concurrent Publish calls
// are not serialized (single-publisher usage assumed).
type Dispatcher struct {
	subscribers SubscriberSource
	sender      Sender
	log         *zap.Logger
}

// NewDispatcher creates a newsletter dispatcher
func NewDispatcher(subscribers SubscriberSource, sender Sender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{subscribers: subscribers, sender: sender, log: log}
}

// Publish sends the issue to every confirmed subscriber.
//
// Failure policy is deliberately asymmetric: a stored email that no longer
// parses is logged and skipped, because one corrupt row must never block
// delivery to the rest of the list; a send failure aborts the whole
// publish and surfaces the offending recipient, since it usually means the
// gateway itself is unhealthy. Context cancellation is observed between
// iterations; an in-flight send is not interrupted.
func (d *Dispatcher) Publish(ctx context.Context, title, htmlContent, textContent string) error {
	emails, err := d.subscribers.ConfirmedEmails(ctx)
	if err != nil {
		return fmt.Errorf("fetch confirmed subscribers: %w", err)
	}

	for _, raw := range emails {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("publish aborted: %w", err)
		}

		email, err := domain.ParseSubscriberEmail(raw)
		if err != nil {
			d.log.Warn("skipping subscriber with invalid stored email",
				zap.String("email", raw), zap.Error(err))
			continue
		}

		if err := d.sender.Send(ctx, email, title, htmlContent, textContent); err != nil {
			return fmt.Errorf("send newsletter issue to %s: %w", email, err)
		}
	}
	return nil
}
