// Package notify delivers operator alerts. Delivery is one best-effort
// attempt; callers decide what a failure means.
package notify

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fileguard/internal/logging"
)

var ErrNotificationFailed = errors.New("notification failed")

type Notifier interface {
	// Notify sends one message. An empty recipient selects the configured
	// default recipient.
	Notify(ctx context.Context, subject, body, recipient string) error
}

// LogNotifier writes notifications to the logger. It is used when no mail
// transport is configured.
type LogNotifier struct {
	log       logging.Logger
	recipient string
}

func NewLogNotifier(log logging.Logger, recipient string) *LogNotifier {
	if log == nil {
		log = logging.Nop{}
	}
	return &LogNotifier{log: log.With("module", "notify"), recipient: recipient}
}

func (n *LogNotifier) Notify(ctx context.Context, subject, body, recipient string) error {
	if recipient == "" {
		recipient = n.recipient
	}
	n.log.Warn(ctx, "notification", "subject", subject, "recipient", recipient, "body", body)
	return nil
}
