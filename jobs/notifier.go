package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian/internal/procurement"
)

// Notifier publishes lifecycle events onto the job queue. Enqueue failures
// are logged and swallowed: notification is never transactional with the
// state change it describes.
type Notifier struct {
	client *Client
	logger *slog.Logger
}

// NewNotifier constructs a queue-backed notifier.
func NewNotifier(client *Client, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

// Notify implements procurement.Notifier.
func (n *Notifier) Notify(ctx context.Context, evt procurement.LifecycleEvent) error {
	task, err := NewNotifyTask(NotifyPayload{
		Event:       string(evt.Kind),
		PONumber:    evt.PONumber,
		POID:        evt.POID,
		VendorID:    evt.VendorID,
		RedeemURL:   evt.RedeemURL,
		VendorNotes: evt.VendorNotes,
		At:          evt.At,
	})
	if err != nil {
		return err
	}
	if _, err := n.client.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		if n.logger != nil {
			n.logger.Warn("enqueue notification", slog.Any("error", err))
		}
	}
	return nil
}
