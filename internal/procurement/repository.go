package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const poColumns = `id, number, vendor_id, warehouse_id, status, total_value::text, received_value::text,
expected_date, notes, vendor_accepted, vendor_notes, created_at`

// GetPO returns a purchase order and its ledger lines.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, []LineItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id)
	po, err := scanPO(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, ErrNotFound
		}
		return PurchaseOrder{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, po_id, product_id, variant_id, ordered_qty, received_qty, unit_price::text
FROM po_lines WHERE po_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()
	var lines []LineItem
	for rows.Next() {
		var l LineItem
		var price string
		if err := rows.Scan(&l.ID, &l.POID, &l.ProductID, &l.VariantID, &l.OrderedQty, &l.ReceivedQty, &price); err != nil {
			return PurchaseOrder{}, nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return PurchaseOrder{}, nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return PurchaseOrder{}, nil, err
	}
	return po, lines, nil
}

var poSortColumns = map[string]string{
	"created": "created_at",
	"number":  "number",
	"status":  "status",
	"total":   "total_value",
}

// ListPOs returns purchase orders matching the filters and a total count.
func (r *Repository) ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	var conds []string
	var args []any
	if filters.Status != "" {
		args = append(args, filters.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if filters.VendorID != 0 {
		args = append(args, filters.VendorID)
		conds = append(conds, fmt.Sprintf("vendor_id=$%d", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		conds = append(conds, fmt.Sprintf("(number ILIKE $%d OR notes ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := poSortColumns[filters.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(filters.SortDir, "asc") {
		dir = "ASC"
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM purchase_orders%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		poColumns, where, sortCol, dir, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var pos []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		pos = append(pos, po)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return pos, total, nil
}

// ListApprovals returns quorum records ordered by approver.
func (r *Repository) ListApprovals(ctx context.Context, poID int64) ([]Approval, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, po_id, approver_id, status, comment, signature_ref, resolved_at
FROM po_approvals WHERE po_id=$1 ORDER BY approver_id ASC`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApprovals(rows)
}

// ListGRNs returns posted goods receipts for an order, newest first.
func (r *Repository) ListGRNs(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, po_id, warehouse_id, status, total_received::text, received_at, notes
FROM grns WHERE po_id=$1 ORDER BY received_at DESC, id DESC`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grns []GoodsReceipt
	for rows.Next() {
		var g GoodsReceipt
		var totalStr string
		if err := rows.Scan(&g.ID, &g.Number, &g.POID, &g.WarehouseID, &g.Status, &totalStr, &g.ReceivedAt, &g.Notes); err != nil {
			return nil, err
		}
		if g.TotalReceived, err = decimal.NewFromString(totalStr); err != nil {
			return nil, err
		}
		grns = append(grns, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grns, nil
}

// Transactional operations

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders
(number, vendor_id, warehouse_id, status, total_value, received_value, expected_date, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
RETURNING id`,
		po.Number, po.VendorID, po.WarehouseID, string(po.Status), po.TotalValue.String(),
		po.ReceivedValue.String(), po.ExpectedDate, po.Notes, po.CreatedAt).Scan(&id)
	return id, err
}

func (t *txRepo) InsertLineItem(ctx context.Context, line LineItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO po_lines (po_id, product_id, variant_id, ordered_qty, received_qty, unit_price)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		line.POID, line.ProductID, line.VariantID, line.OrderedQty, line.ReceivedQty, line.UnitPrice.String()).Scan(&id)
	return id, err
}

func (t *txRepo) UpdatePOStatus(ctx context.Context, id int64, status POStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2 WHERE id=$1`, id, string(status))
	return err
}

func (t *txRepo) UpdatePOReceiving(ctx context.Context, id int64, status POStatus, receivedValue decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, received_value=$3 WHERE id=$1`,
		id, string(status), receivedValue.String())
	return err
}

func (t *txRepo) UpdatePOVendorDecision(ctx context.Context, id int64, status POStatus, accepted bool, notes string) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, vendor_accepted=$3, vendor_notes=$4 WHERE id=$1`,
		id, string(status), accepted, notes)
	return err
}

func (t *txRepo) InsertApproval(ctx context.Context, approval Approval) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO po_approvals (po_id, approver_id, status, comment, signature_ref)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		approval.POID, approval.ApproverID, string(approval.Status), approval.Comment, approval.SignatureRef).Scan(&id)
	return id, err
}

func (t *txRepo) ListApprovalsForUpdate(ctx context.Context, poID int64) ([]Approval, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, po_id, approver_id, status, comment, signature_ref, resolved_at
FROM po_approvals WHERE po_id=$1 ORDER BY approver_id ASC FOR UPDATE`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApprovals(rows)
}

// ResolveApproval applies the resolution only when the row is still pending.
func (t *txRepo) ResolveApproval(ctx context.Context, approval Approval) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE po_approvals
SET status=$3, comment=$4, signature_ref=$5, resolved_at=$6
WHERE po_id=$1 AND approver_id=$2 AND status='PENDING'`,
		approval.POID, approval.ApproverID, string(approval.Status), approval.Comment, approval.SignatureRef, approval.ResolvedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepo) InsertVendorToken(ctx context.Context, token VendorToken) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO vendor_tokens (po_id, token_hash, expires_at)
VALUES ($1, $2, $3) RETURNING id`, token.POID, token.TokenHash, token.ExpiresAt).Scan(&id)
	return id, err
}

func (t *txRepo) ExpireLiveTokens(ctx context.Context, poID int64, now time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE vendor_tokens SET expires_at=$2
WHERE po_id=$1 AND consumed_at IS NULL AND expires_at > $2`, poID, now)
	return err
}

// ConsumeVendorToken flips an unconsumed, unexpired token to consumed.
// Exactly one concurrent caller can win the conditional update.
func (t *txRepo) ConsumeVendorToken(ctx context.Context, hash string, accepted bool, notes string, now time.Time) (VendorToken, bool, error) {
	row := t.tx.QueryRow(ctx, `UPDATE vendor_tokens SET consumed_at=$2, accepted=$3, notes=$4
WHERE token_hash=$1 AND consumed_at IS NULL AND expires_at > $2
RETURNING id, po_id, token_hash, expires_at, consumed_at, accepted, notes`,
		hash, now, accepted, notes)
	var token VendorToken
	err := row.Scan(&token.ID, &token.POID, &token.TokenHash, &token.ExpiresAt, &token.ConsumedAt, &token.Accepted, &token.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VendorToken{}, false, nil
		}
		return VendorToken{}, false, err
	}
	return token, true, nil
}

func (t *txRepo) CreateGRN(ctx context.Context, grn GoodsReceipt) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO grns (number, po_id, warehouse_id, status, total_received, received_at, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		grn.Number, grn.POID, grn.WarehouseID, string(grn.Status), grn.TotalReceived.String(), grn.ReceivedAt, grn.Notes).Scan(&id)
	return id, err
}

func (t *txRepo) InsertGRNLine(ctx context.Context, line GRNLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO grn_lines (grn_id, product_id, variant_id, qty, unit_price)
VALUES ($1, $2, $3, $4, $5)`, line.GRNID, line.ProductID, line.VariantID, line.Qty, line.UnitPrice.String())
	return err
}

func (t *txRepo) UpdateLineReceived(ctx context.Context, lineID, receivedQty int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE po_lines SET received_qty=$2 WHERE id=$1`, lineID, receivedQty)
	return err
}

// Scan helpers

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var totalStr, receivedStr string
	err := row.Scan(&po.ID, &po.Number, &po.VendorID, &po.WarehouseID, &po.Status, &totalStr, &receivedStr,
		&po.ExpectedDate, &po.Notes, &po.VendorAccepted, &po.VendorNotes, &po.CreatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.TotalValue, err = decimal.NewFromString(totalStr); err != nil {
		return PurchaseOrder{}, err
	}
	if po.ReceivedValue, err = decimal.NewFromString(receivedStr); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

func scanApprovals(rows pgx.Rows) ([]Approval, error) {
	var approvals []Approval
	for rows.Next() {
		var a Approval
		if err := rows.Scan(&a.ID, &a.POID, &a.ApproverID, &a.Status, &a.Comment, &a.SignatureRef, &a.ResolvedAt); err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return approvals, nil
}
