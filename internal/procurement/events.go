package procurement

import (
	"context"
	"time"
)

// Lifecycle event kinds published to the notifier.
type EventKind string

const (
	EventDispatched     EventKind = "PO_DISPATCHED"
	EventVendorAccepted EventKind = "PO_VENDOR_ACCEPTED"
	EventVendorRejected EventKind = "PO_VENDOR_REJECTED"
	EventFullyReceived  EventKind = "PO_FULLY_RECEIVED"
	EventRejected       EventKind = "PO_REJECTED"
)

// LifecycleEvent describes a state transition for downstream notification.
type LifecycleEvent struct {
	Kind        EventKind
	PONumber    string
	POID        int64
	VendorID    int64
	RedeemURL   string
	VendorNotes string
	At          time.Time
}

// Notifier receives lifecycle events. Delivery is fire-and-forget and never
// transactional with the state change.
type Notifier interface {
	Notify(ctx context.Context, evt LifecycleEvent) error
}
