package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"advisory/internal/models"
	"advisory/internal/repository"
)

// Notifier delivers a plain-text event to recipients. Implementations
// must be fire-and-forget: the call never blocks on delivery and never
// reports failure to the caller.
type Notifier interface {
	Notify(message string, senderID uint64, recipientIDs []uint64)
}

// Dispatcher persists one Notification row per recipient in the
// background. Failures are logged and dropped; a lost notification
// never rolls back the ledger write that triggered it.
type Dispatcher struct {
	Repo    repository.Repository
	Logger  *zap.Logger
	Timeout time.Duration
}

func (d *Dispatcher) Notify(message string, senderID uint64, recipientIDs []uint64) {
	if d == nil || d.Repo == nil || message == "" || len(recipientIDs) == 0 {
		return
	}
	recipients := make([]uint64, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if id > 0 {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}
	go d.deliver(message, senderID, recipients)
}

func (d *Dispatcher) deliver(message string, senderID uint64, recipientIDs []uint64) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, recipientID := range recipientIDs {
		item := &models.Notification{
			Message:     message,
			SenderID:    senderID,
			RecipientID: recipientID,
		}
		if err := d.Repo.InsertNotification(ctx, item); err != nil {
			if d.Logger != nil {
				d.Logger.Warn("notification insert failed",
					zap.Uint64("recipient_id", recipientID),
					zap.Error(err),
				)
			}
		}
	}
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) Notify(string, uint64, []uint64) {}
