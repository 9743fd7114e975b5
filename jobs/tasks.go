package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotify delivers purchase-order lifecycle notifications.
	TaskTypeNotify = "po:notify"
	// TaskTypeTokenSweep expires stale vendor tokens.
	TaskTypeTokenSweep = "po:token_sweep"
	// TaskTypeIdempotencyCleanup prunes processed idempotency keys.
	TaskTypeIdempotencyCleanup = "po:idempotency_cleanup"
)

// NotifyPayload describes a lifecycle notification for downstream delivery.
type NotifyPayload struct {
	Event       string    `json:"event"`
	PONumber    string    `json:"po_number"`
	POID        int64     `json:"po_id"`
	VendorID    int64     `json:"vendor_id"`
	RedeemURL   string    `json:"redeem_url,omitempty"`
	VendorNotes string    `json:"vendor_notes,omitempty"`
	At          time.Time `json:"at"`
}

// NewNotifyTask constructs an Asynq task for a lifecycle notification.
func NewNotifyTask(payload NotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotify, data), nil
}

// HandleNotifyTask processes TaskTypeNotify tasks. Delivery is best-effort;
// a malformed payload is dropped rather than retried.
func HandleNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder for SMTP/webhook delivery; the engine only publishes.
	fmt.Printf("[jobs] notify event=%s po=%s vendor=%d\n", payload.Event, payload.PONumber, payload.VendorID)
	return nil
}

// NewTokenSweepTask constructs the periodic token sweep task.
func NewTokenSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeTokenSweep, nil)
}

// TokenSweeper garbage-collects vendor tokens that expired long ago and were
// never consumed. Expiry itself is enforced at redemption time.
type TokenSweeper struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTokenSweeper constructs a TokenSweeper.
func NewTokenSweeper(pool *pgxpool.Pool, logger *slog.Logger) *TokenSweeper {
	return &TokenSweeper{pool: pool, logger: logger}
}

// Handle processes TaskTypeTokenSweep tasks.
func (s *TokenSweeper) Handle(ctx context.Context, t *asynq.Task) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vendor_tokens WHERE consumed_at IS NULL AND expires_at < NOW() - INTERVAL '30 days'`)
	if err != nil {
		return err
	}
	if s.logger != nil && tag.RowsAffected() > 0 {
		s.logger.Info("token sweep", slog.Int64("removed", tag.RowsAffected()))
	}
	return nil
}

// NewIdempotencyCleanupTask constructs the periodic idempotency cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}

// IdempotencyCleaner prunes idempotency keys past their retention window.
type IdempotencyCleaner struct {
	store     *shared.IdempotencyStore
	retention time.Duration
}

// NewIdempotencyCleaner constructs an IdempotencyCleaner.
func NewIdempotencyCleaner(store *shared.IdempotencyStore, retention time.Duration) *IdempotencyCleaner {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &IdempotencyCleaner{store: store, retention: retention}
}

// Handle processes TaskTypeIdempotencyCleanup tasks.
func (c *IdempotencyCleaner) Handle(ctx context.Context, t *asynq.Task) error {
	return c.store.Cleanup(ctx, c.retention)
}
