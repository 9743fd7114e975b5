package procurement

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReceiptLine is one requested receipt against a PO line.
type ReceiptLine struct {
	ProductID int64
	VariantID int64
	Qty       int64
}

// ReconcileReceipt applies the requested receipt lines against the order's
// ledger. The whole receipt succeeds or fails: if any line would overshoot its
// ordered quantity, no line is touched and the ledger is returned unchanged.
//
// The receipt status is COMPLETED when every requested line consumed the full
// remaining quantity of its ledger line at posting time, PARTIAL otherwise.
func ReconcileReceipt(lines []LineItem, requested []ReceiptLine) ([]LineItem, []GRNLine, GRNStatus, error) {
	if len(requested) == 0 {
		return nil, nil, "", fmt.Errorf("%w: receipt requires at least one line", ErrValidation)
	}

	updated := append([]LineItem(nil), lines...)
	grnLines := make([]GRNLine, 0, len(requested))
	status := GRNStatusCompleted

	for _, req := range requested {
		idx := findLine(updated, req.ProductID, req.VariantID)
		if idx < 0 {
			return nil, nil, "", fmt.Errorf("%w: no order line for product %d variant %d", ErrValidation, req.ProductID, req.VariantID)
		}
		remainingBefore := updated[idx].Remaining()
		if err := updated[idx].PostReceipt(req.Qty); err != nil {
			return nil, nil, "", err
		}
		if req.Qty < remainingBefore {
			status = GRNStatusPartial
		}
		grnLines = append(grnLines, GRNLine{
			ProductID: req.ProductID,
			VariantID: req.VariantID,
			Qty:       req.Qty,
			UnitPrice: updated[idx].UnitPrice,
		})
	}
	return updated, grnLines, status, nil
}

// ReceiptValue sums qty times unit price over the receipt's lines.
func ReceiptValue(lines []GRNLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Qty)))
	}
	return total
}

func findLine(lines []LineItem, productID, variantID int64) int {
	for i, l := range lines {
		if l.ProductID == productID && l.VariantID == variantID {
			return i
		}
	}
	return -1
}
