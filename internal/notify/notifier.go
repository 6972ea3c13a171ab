package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/samber/lo"
	tb "gopkg.in/tucnak/telebot.v2"
)

// Notifier delivers a Markdown message to one user. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

type TelegramNotifier struct {
	client  sender
	retries int
	backoff func() *backoff.Backoff
	logger  providers.Logger
}

func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, text string) error {
	b := n.backoff()
	opts := &tb.SendOptions{ParseMode: tb.ModeMarkdown, DisableWebPagePreview: true}

	for attempt := 1; ; attempt++ {
		_, err := n.client.Send(&tb.User{ID: userID}, text, opts)
		if err == nil {
			n.logger.Debugf(providers.TypeNotify, "Message delivered to %d", userID)
			return nil
		}
		if attempt >= n.retries {
			n.logger.Errorf(providers.TypeNotify, "Unable to deliver message to %d after %d attempts: %s", userID, attempt, err)
			return fmt.Errorf("send to %d: %w", userID, err)
		}

		delay := b.Duration()
		n.logger.Warnf(providers.TypeNotify, "Send to %d failed: %s, retrying in %s", userID, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Broadcast sends text to every distinct id and returns the joined errors.
func Broadcast(ctx context.Context, n Notifier, ids []int64, text string) error {
	var errs []error
	for _, id := range lo.Uniq(ids) {
		if err := n.Notify(ctx, id, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newBackoff() *backoff.Backoff {
	return &backoff.Backoff{Min: 500 * time.Millisecond, Max: 5 * time.Second, Factor: 2}
}

func NewTelegramNotifier(conf *structures.Config, logger providers.Logger) (Notifier, error) {
	client, err := tb.NewBot(tb.Settings{
		Token:     conf.Telegram.Token,
		ParseMode: tb.ModeMarkdown,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{
		client:  client,
		retries: max(conf.Notification.SendRetries, 1),
		backoff: newBackoff,
		logger:  logger,
	}, nil
}
