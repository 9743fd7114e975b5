package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order lifecycle statuses.
type POStatus string

const (
	POStatusDraft             POStatus = "DRAFT"
	POStatusPendingApproval   POStatus = "PENDING_APPROVAL"
	POStatusRejected          POStatus = "REJECTED"
	POStatusApproved          POStatus = "APPROVED"
	POStatusVendorReview      POStatus = "VENDOR_REVIEW"
	POStatusVendorRejected    POStatus = "VENDOR_REJECTED"
	POStatusVendorAccepted    POStatus = "VENDOR_ACCEPTED"
	POStatusPartiallyReceived POStatus = "PARTIALLY_RECEIVED"
	POStatusFullyReceived     POStatus = "FULLY_RECEIVED"
	POStatusCancelled         POStatus = "CANCELLED"
)

// Terminal reports whether no further lifecycle mutation is permitted.
func (s POStatus) Terminal() bool {
	switch s {
	case POStatusRejected, POStatusVendorRejected, POStatusFullyReceived, POStatusCancelled:
		return true
	}
	return false
}

// Per-approver resolution statuses.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// Goods receipt statuses.
type GRNStatus string

const (
	GRNStatusPending   GRNStatus = "PENDING"
	GRNStatusPartial   GRNStatus = "PARTIAL"
	GRNStatusCompleted GRNStatus = "COMPLETED"
)

// PurchaseOrder domain model. Status and the vendor decision fields are owned by
// the lifecycle and never written directly by callers.
type PurchaseOrder struct {
	ID             int64
	Number         string
	VendorID       int64
	WarehouseID    int64
	Status         POStatus
	TotalValue     decimal.Decimal
	ReceivedValue  decimal.Decimal
	ExpectedDate   time.Time
	Notes          string
	VendorAccepted *bool
	VendorNotes    string
	CreatedAt      time.Time
}

// RemainingBalance is the unreconciled financial exposure on the order.
func (po PurchaseOrder) RemainingBalance() decimal.Decimal {
	bal := po.TotalValue.Sub(po.ReceivedValue)
	if bal.IsNegative() {
		return decimal.Zero
	}
	return bal
}

// LineItem belongs to exactly one purchase order. Everything except
// ReceivedQty is immutable after creation.
type LineItem struct {
	ID          int64
	POID        int64
	ProductID   int64
	VariantID   int64
	OrderedQty  int64
	ReceivedQty int64
	UnitPrice   decimal.Decimal
}

// LineTotal is ordered quantity times unit price.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.OrderedQty))
}

// ReceivedTotal is received quantity times unit price.
func (l LineItem) ReceivedTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.ReceivedQty))
}

// Approval records one approver's one-shot resolution for a purchase order.
type Approval struct {
	ID           int64
	POID         int64
	ApproverID   int64
	Status       ApprovalStatus
	Comment      string
	SignatureRef string
	ResolvedAt   *time.Time
}

// VendorToken is the single-use capability credential handed to the vendor.
// Only the SHA-256 digest of the token is ever stored.
type VendorToken struct {
	ID         int64
	POID       int64
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	Accepted   *bool
	Notes      string
}

// Live reports whether the token can still be redeemed at the given instant.
func (t VendorToken) Live(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

// GoodsReceipt is an immutable record of physical receipt against a PO.
// Corrections are new receipts, never edits.
type GoodsReceipt struct {
	ID            int64
	Number        string
	POID          int64
	WarehouseID   int64
	Status        GRNStatus
	TotalReceived decimal.Decimal
	ReceivedAt    time.Time
	Notes         string
}

// GRNLine describes one received line inside a goods receipt.
type GRNLine struct {
	ID        int64
	GRNID     int64
	ProductID int64
	VariantID int64
	Qty       int64
	UnitPrice decimal.Decimal
}

var (
	// ErrValidation indicates malformed input, e.g. a non-positive quantity.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrIllegalTransition occurs when a trigger fires from a state whose guard fails.
	ErrIllegalTransition = errors.New("procurement: illegal transition")
	// ErrOverReceipt indicates a receipt would push a line past its ordered quantity.
	ErrOverReceipt = errors.New("procurement: receipt exceeds ordered quantity")
	// ErrAlreadyResolved indicates an approver attempted a second resolution.
	ErrAlreadyResolved = errors.New("procurement: approval already resolved")
	// ErrTokenInvalid covers unknown, expired and already-consumed vendor tokens.
	ErrTokenInvalid = errors.New("procurement: vendor token invalid")
	// ErrNotAuthorized indicates the caller is not the bound approver.
	ErrNotAuthorized = errors.New("procurement: not authorized")
	// ErrConfiguration indicates an unusable setup such as an empty approver set.
	ErrConfiguration = errors.New("procurement: invalid configuration")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
)
