package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, id int64) (PurchaseOrder, []LineItem, error)
	ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error)
	ListApprovals(ctx context.Context, poID int64) ([]Approval, error)
	ListGRNs(ctx context.Context, poID int64) ([]GoodsReceipt, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertLineItem(ctx context.Context, line LineItem) (int64, error)
	UpdatePOStatus(ctx context.Context, id int64, status POStatus) error
	UpdatePOReceiving(ctx context.Context, id int64, status POStatus, receivedValue decimal.Decimal) error
	UpdatePOVendorDecision(ctx context.Context, id int64, status POStatus, accepted bool, notes string) error
	InsertApproval(ctx context.Context, approval Approval) (int64, error)
	ListApprovalsForUpdate(ctx context.Context, poID int64) ([]Approval, error)
	ResolveApproval(ctx context.Context, approval Approval) (bool, error)
	InsertVendorToken(ctx context.Context, token VendorToken) (int64, error)
	ExpireLiveTokens(ctx context.Context, poID int64, now time.Time) error
	ConsumeVendorToken(ctx context.Context, hash string, accepted bool, notes string, now time.Time) (VendorToken, bool, error)
	CreateGRN(ctx context.Context, grn GoodsReceipt) (int64, error)
	InsertGRNLine(ctx context.Context, line GRNLine) error
	UpdateLineReceived(ctx context.Context, lineID, receivedQty int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort records lifecycle activity.
type MetricsPort interface {
	ObserveTransition(from, to POStatus)
	ObserveRedemption(outcome string)
	ObserveGRNPosted()
}

// SnapshotInvalidator drops cached PO snapshots after a lifecycle transition.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, poID int64)
}

// ListFilters narrow PO listings.
type ListFilters struct {
	Status   string
	VendorID int64
	Search   string
	SortBy   string
	SortDir  string
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	TokenTTL      time.Duration
	VendorBaseURL string
}

// Service orchestrates the purchase order lifecycle. All status mutations are
// serialized per order through the entity locker.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	notifier    Notifier
	locks       *shared.EntityLocker
	cache       SnapshotInvalidator
	metrics     MetricsPort
	tokenTTL    time.Duration
	vendorBase  string
}

// NewService constructs the lifecycle service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, notifier Notifier, cache SnapshotInvalidator, metrics MetricsPort, cfg ServiceConfig) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		notifier:    notifier,
		locks:       shared.NewEntityLocker(),
		cache:       cache,
		metrics:     metrics,
		tokenTTL:    ttl,
		vendorBase:  cfg.VendorBaseURL,
	}
}

// POSnapshot is the externally visible view of an order and its ledger.
type POSnapshot struct {
	PO    PurchaseOrder `json:"po"`
	Lines []LineItem    `json:"lines"`
}

// CreatePOInput describes creation payload.
type CreatePOInput struct {
	Number       string
	VendorID     int64
	WarehouseID  int64
	ExpectedDate time.Time
	Notes        string
	Lines        []CreateLineInput
}

// CreateLineInput describes one order line.
type CreateLineInput struct {
	ProductID int64
	VariantID int64
	Qty       int64
	UnitPrice decimal.Decimal
}

// ResolveApprovalInput carries an approver's decision.
type ResolveApprovalInput struct {
	Decision     Decision
	Comment      string
	SignatureRef string
}

// PostGRNInput describes a goods receipt posting.
type PostGRNInput struct {
	WarehouseID    int64
	Number         string
	ReceivedAt     time.Time
	Notes          string
	IdempotencyKey string
	Lines          []ReceiptLine
}

// DispatchResult returns the one-time redemption material for the vendor.
type DispatchResult struct {
	Snapshot  POSnapshot
	Token     string
	RedeemURL string
	ExpiresAt time.Time
}

// CreatePO persists a draft order with its line items.
func (s *Service) CreatePO(ctx context.Context, input CreatePOInput) (POSnapshot, error) {
	if input.VendorID == 0 {
		return POSnapshot{}, fmt.Errorf("%w: vendor required", ErrValidation)
	}
	if len(input.Lines) == 0 {
		return POSnapshot{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	lines := make([]LineItem, 0, len(input.Lines))
	for _, in := range input.Lines {
		line, err := NewLineItem(in.ProductID, in.VariantID, in.Qty, in.UnitPrice)
		if err != nil {
			return POSnapshot{}, err
		}
		lines = append(lines, line)
	}
	if input.Number == "" {
		input.Number = generateNumber("PO")
	}
	po := PurchaseOrder{
		Number:        input.Number,
		VendorID:      input.VendorID,
		WarehouseID:   input.WarehouseID,
		Status:        POStatusDraft,
		TotalValue:    OrderTotal(lines),
		ReceivedValue: decimal.Zero,
		ExpectedDate:  input.ExpectedDate,
		Notes:         input.Notes,
		CreatedAt:     time.Now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		poID, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = poID
		for i := range lines {
			lines[i].POID = poID
			lineID, err := tx.InsertLineItem(ctx, lines[i])
			if err != nil {
				return err
			}
			lines[i].ID = lineID
		}
		return nil
	})
	if err != nil {
		return POSnapshot{}, err
	}
	s.recordAudit(ctx, "PO_CREATE", po.ID, map[string]any{"number": po.Number, "total": po.TotalValue.String()})
	return POSnapshot{PO: po, Lines: lines}, nil
}

// SubmitForApproval moves a draft into the approval stage and seeds one
// pending approval per configured approver.
func (s *Service) SubmitForApproval(ctx context.Context, poID int64, approverIDs []int64) (POSnapshot, error) {
	s.locks.Lock(shared.POLockKey(poID))
	defer s.locks.Unlock(shared.POLockKey(poID))

	po, lines, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return POSnapshot{}, err
	}
	approvals, err := InitQuorum(poID, approverIDs)
	if err != nil {
		return POSnapshot{}, err
	}
	from := po.Status
	if err := Submit(&po, lines); err != nil {
		return POSnapshot{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdatePOStatus(ctx, poID, po.Status); err != nil {
			return err
		}
		for _, approval := range approvals {
			if _, err := tx.InsertApproval(ctx, approval); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return POSnapshot{}, err
	}
	s.finishTransition(ctx, po, from)
	s.recordAudit(ctx, "PO_SUBMIT", poID, map[string]any{"number": po.Number, "approvers": len(approvals)})
	return POSnapshot{PO: po, Lines: lines}, nil
}

// ResolveApproval records one approver's one-shot decision and, when the
// quorum resolves, transitions the order. The short-circuit on rejection is
// evaluated against the persisted set inside the transaction, so concurrent
// resolutions cannot both trigger the terminal transition.
func (s *Service) ResolveApproval(ctx context.Context, poID, approverID int64, input ResolveApprovalInput) (POSnapshot, error) {
	actor := shared.ActorFromContext(ctx)
	if actor.UserID != 0 && actor.UserID != approverID {
		return POSnapshot{}, fmt.Errorf("%w: approval bound to approver %d", ErrNotAuthorized, approverID)
	}

	s.locks.Lock(shared.POLockKey(poID))
	defer s.locks.Unlock(shared.POLockKey(poID))

	po, lines, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return POSnapshot{}, err
	}
	from := po.Status
	if err := guard(po, TriggerResolve, POStatusPendingApproval); err != nil {
		return POSnapshot{}, err
	}

	now := time.Now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		approvals, err := tx.ListApprovalsForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		idx := -1
		for i, a := range approvals {
			if a.ApproverID == approverID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: user %d is not an approver on this order", ErrNotAuthorized, approverID)
		}
		if err := approvals[idx].Resolve(input.Decision, input.Comment, input.SignatureRef, now); err != nil {
			return err
		}
		updated, err := tx.ResolveApproval(ctx, approvals[idx])
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: approver %d", ErrAlreadyResolved, approverID)
		}
		if err := ApplyQuorum(&po, AggregateQuorum(approvals)); err != nil {
			return err
		}
		if po.Status != from {
			if err := tx.UpdatePOStatus(ctx, poID, po.Status); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return POSnapshot{}, err
	}
	if po.Status == POStatusRejected {
		s.notify(ctx, LifecycleEvent{Kind: EventRejected, PONumber: po.Number, POID: po.ID, VendorID: po.VendorID, At: now})
	}
	s.finishTransition(ctx, po, from)
	s.recordAudit(ctx, "PO_APPROVAL", poID, map[string]any{"approver": approverID, "decision": string(input.Decision)})
	return POSnapshot{PO: po, Lines: lines}, nil
}

// DispatchToVendor sends an approved order to the vendor: any prior live
// token is invalidated and a fresh single-use token is issued. The plain
// token leaves the engine exactly once, in the returned result.
func (s *Service) DispatchToVendor(ctx context.Context, poID int64) (DispatchResult, error) {
	s.locks.Lock(shared.POLockKey(poID))
	defer s.locks.Unlock(shared.POLockKey(poID))

	po, lines, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return DispatchResult{}, err
	}
	from := po.Status
	if err := Dispatch(&po); err != nil {
		return DispatchResult{}, err
	}

	plain, hash, err := GenerateVendorToken()
	if err != nil {
		return DispatchResult{}, err
	}
	now := time.Now()
	token := NewVendorToken(poID, hash, s.tokenTTL, now)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ExpireLiveTokens(ctx, poID, now); err != nil {
			return err
		}
		if _, err := tx.InsertVendorToken(ctx, token); err != nil {
			return err
		}
		return tx.UpdatePOStatus(ctx, poID, po.Status)
	})
	if err != nil {
		return DispatchResult{}, err
	}

	url := s.redeemURL(plain)
	s.notify(ctx, LifecycleEvent{Kind: EventDispatched, PONumber: po.Number, POID: po.ID, VendorID: po.VendorID, RedeemURL: url, At: now})
	s.finishTransition(ctx, po, from)
	s.recordAudit(ctx, "PO_DISPATCH", poID, map[string]any{"number": po.Number, "expires_at": token.ExpiresAt})
	return DispatchResult{Snapshot: POSnapshot{PO: po, Lines: lines}, Token: plain, RedeemURL: url, ExpiresAt: token.ExpiresAt}, nil
}

// RedeemVendorToken is the single unauthenticated write path. Exactly one
// caller can flip a token from unconsumed to consumed; replays fail with
// ErrTokenInvalid and leave the recorded decision untouched.
func (s *Service) RedeemVendorToken(ctx context.Context, plainToken string, accepted bool, notes string) (POSnapshot, error) {
	if plainToken == "" {
		return POSnapshot{}, ErrTokenInvalid
	}
	hash := HashVendorToken(plainToken)
	now := time.Now()

	var po PurchaseOrder
	var lines []LineItem
	var from POStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		token, consumed, err := tx.ConsumeVendorToken(ctx, hash, accepted, notes, now)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrTokenInvalid
		}
		po, lines, err = s.repo.GetPO(ctx, token.POID)
		if err != nil {
			return err
		}
		from = po.Status
		if err := ApplyVendorDecision(&po, accepted, notes); err != nil {
			return err
		}
		return tx.UpdatePOVendorDecision(ctx, po.ID, po.Status, accepted, notes)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveRedemption("invalid")
		}
		return POSnapshot{}, err
	}

	if s.metrics != nil {
		outcome := "accepted"
		if !accepted {
			outcome = "rejected"
		}
		s.metrics.ObserveRedemption(outcome)
	}
	kind := EventVendorAccepted
	if !accepted {
		kind = EventVendorRejected
	}
	s.notify(ctx, LifecycleEvent{Kind: kind, PONumber: po.Number, POID: po.ID, VendorID: po.VendorID, VendorNotes: notes, At: now})
	s.finishTransition(ctx, po, from)
	s.recordAudit(ctx, "PO_VENDOR_DECISION", po.ID, map[string]any{"accepted": accepted})
	return POSnapshot{PO: po, Lines: lines}, nil
}

// PostGRN applies a goods receipt atomically: every requested line must fit
// its remaining quantity or the whole receipt is rejected unchanged.
func (s *Service) PostGRN(ctx context.Context, poID int64, input PostGRNInput) (GoodsReceipt, POSnapshot, error) {
	s.locks.Lock(shared.POLockKey(poID))
	defer s.locks.Unlock(shared.POLockKey(poID))

	po, lines, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return GoodsReceipt{}, POSnapshot{}, err
	}
	from := po.Status
	if err := guard(po, TriggerPostGRN, POStatusVendorAccepted, POStatusPartiallyReceived); err != nil {
		return GoodsReceipt{}, POSnapshot{}, err
	}

	updatedLines, grnLines, grnStatus, err := ReconcileReceipt(lines, input.Lines)
	if err != nil {
		return GoodsReceipt{}, POSnapshot{}, err
	}
	if err := ApplyReceipt(&po, updatedLines); err != nil {
		return GoodsReceipt{}, POSnapshot{}, err
	}

	if input.Number == "" {
		input.Number = generateNumber("GRN")
	}
	grn := GoodsReceipt{
		Number:        input.Number,
		POID:          poID,
		WarehouseID:   input.WarehouseID,
		Status:        grnStatus,
		TotalReceived: ReceiptValue(grnLines),
		ReceivedAt:    defaultTime(input.ReceivedAt),
		Notes:         input.Notes,
	}

	key := input.IdempotencyKey
	if key == "" {
		key = fmt.Sprintf("GRN:%s", grn.Number)
	}
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "procurement.grn"); err != nil {
			return GoodsReceipt{}, POSnapshot{}, err
		}
		inserted = true
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		grnID, err := tx.CreateGRN(ctx, grn)
		if err != nil {
			return err
		}
		grn.ID = grnID
		for _, line := range grnLines {
			line.GRNID = grnID
			if err := tx.InsertGRNLine(ctx, line); err != nil {
				return err
			}
		}
		for _, line := range updatedLines {
			if err := tx.UpdateLineReceived(ctx, line.ID, line.ReceivedQty); err != nil {
				return err
			}
		}
		return tx.UpdatePOReceiving(ctx, poID, po.Status, po.ReceivedValue)
	})
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, key)
		}
		return GoodsReceipt{}, POSnapshot{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveGRNPosted()
	}
	if po.Status == POStatusFullyReceived {
		s.notify(ctx, LifecycleEvent{Kind: EventFullyReceived, PONumber: po.Number, POID: po.ID, VendorID: po.VendorID, At: grn.ReceivedAt})
	}
	s.finishTransition(ctx, po, from)
	s.recordAudit(ctx, "GRN_POST", poID, map[string]any{"grn": grn.Number, "status": string(grn.Status), "value": grn.TotalReceived.String()})
	return grn, POSnapshot{PO: po, Lines: updatedLines}, nil
}

// CancelPO withdraws a draft order.
func (s *Service) CancelPO(ctx context.Context, poID int64) (POSnapshot, error) {
	s.locks.Lock(shared.POLockKey(poID))
	defer s.locks.Unlock(shared.POLockKey(poID))

	po, lines, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return POSnapshot{}, err
	}
	from := po.Status
	if err := Cancel(&po); err != nil {
		return POSnapshot{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePOStatus(ctx, poID, po.Status)
	})
	if err != nil {
		return POSnapshot{}, err
	}
	s.finishTransition(ctx, po, from)
	s.recordAudit(ctx, "PO_CANCEL", poID, map[string]any{"number": po.Number})
	return POSnapshot{PO: po, Lines: lines}, nil
}

// GetPO returns the current snapshot straight from the repository. Cached
// reads go through the snapshot cache at the HTTP boundary.
func (s *Service) GetPO(ctx context.Context, poID int64) (POSnapshot, error) {
	po, lines, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return POSnapshot{}, err
	}
	return POSnapshot{PO: po, Lines: lines}, nil
}

// LedgerLine is one row of the ledger summary.
type LedgerLine struct {
	LineID        int64           `json:"line_id"`
	ProductID     int64           `json:"product_id"`
	VariantID     int64           `json:"variant_id,omitempty"`
	OrderedQty    int64           `json:"ordered_qty"`
	ReceivedQty   int64           `json:"received_qty"`
	RemainingQty  int64           `json:"remaining_qty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	ReceivedValue decimal.Decimal `json:"received_value"`
}

// LedgerSummary aggregates the order's receiving position.
type LedgerSummary struct {
	POID             int64           `json:"po_id"`
	Status           POStatus        `json:"status"`
	TotalValue       decimal.Decimal `json:"total_value"`
	ReceivedValue    decimal.Decimal `json:"received_value"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Lines            []LedgerLine    `json:"lines"`
}

// GetLedgerSummary reports per-line and aggregate receiving progress.
func (s *Service) GetLedgerSummary(ctx context.Context, poID int64) (LedgerSummary, error) {
	po, lines, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return LedgerSummary{}, err
	}
	summary := LedgerSummary{
		POID:             po.ID,
		Status:           po.Status,
		TotalValue:       po.TotalValue,
		ReceivedValue:    po.ReceivedValue,
		RemainingBalance: po.RemainingBalance(),
		Lines:            make([]LedgerLine, 0, len(lines)),
	}
	for _, l := range lines {
		summary.Lines = append(summary.Lines, LedgerLine{
			LineID:        l.ID,
			ProductID:     l.ProductID,
			VariantID:     l.VariantID,
			OrderedQty:    l.OrderedQty,
			ReceivedQty:   l.ReceivedQty,
			RemainingQty:  l.Remaining(),
			UnitPrice:     l.UnitPrice,
			LineTotal:     l.LineTotal(),
			ReceivedValue: l.ReceivedTotal(),
		})
	}
	return summary, nil
}

// ListPOs returns orders matching the filters plus a total count.
func (s *Service) ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListPOs(ctx, limit, offset, filters)
}

// ListApprovals returns the quorum records for an order.
func (s *Service) ListApprovals(ctx context.Context, poID int64) ([]Approval, error) {
	if _, _, err := s.repo.GetPO(ctx, poID); err != nil {
		return nil, err
	}
	return s.repo.ListApprovals(ctx, poID)
}

// ListGRNs returns posted goods receipts for an order.
func (s *Service) ListGRNs(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	if _, _, err := s.repo.GetPO(ctx, poID); err != nil {
		return nil, err
	}
	return s.repo.ListGRNs(ctx, poID)
}

func (s *Service) finishTransition(ctx context.Context, po PurchaseOrder, from POStatus) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, po.ID)
	}
	if s.metrics != nil && po.Status != from {
		s.metrics.ObserveTransition(from, po.Status)
	}
}

func (s *Service) notify(ctx context.Context, evt LifecycleEvent) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Notify(ctx, evt)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func (s *Service) redeemURL(plainToken string) string {
	if s.vendorBase == "" {
		return "/vendor/acceptance/" + plainToken
	}
	return fmt.Sprintf("%s/vendor/acceptance/%s", s.vendorBase, plainToken)
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Year(), uuid.NewString()[:8])
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now()
	}
	return value
}
