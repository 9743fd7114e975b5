package procurement

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NewLineItem validates and builds a ledger line for a purchase order.
// Received quantity always starts at zero.
func NewLineItem(productID, variantID, qty int64, unitPrice decimal.Decimal) (LineItem, error) {
	if productID == 0 {
		return LineItem{}, fmt.Errorf("%w: product required", ErrValidation)
	}
	if qty <= 0 {
		return LineItem{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if unitPrice.IsNegative() {
		return LineItem{}, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
	}
	return LineItem{
		ProductID: productID,
		VariantID: variantID,
		OrderedQty: qty,
		UnitPrice:  unitPrice,
	}, nil
}

// Remaining is the still-orderable quantity on the line.
func (l LineItem) Remaining() int64 {
	return l.OrderedQty - l.ReceivedQty
}

// PostReceipt advances the received quantity. Receipts are never decremented;
// corrections require a fresh goods receipt.
func (l *LineItem) PostReceipt(qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: receipt quantity must be positive", ErrValidation)
	}
	if l.ReceivedQty+qty > l.OrderedQty {
		return fmt.Errorf("%w: line %d has %d remaining, got %d", ErrOverReceipt, l.ID, l.Remaining(), qty)
	}
	l.ReceivedQty += qty
	return nil
}

// OrderTotal sums line totals across a purchase order's lines.
func OrderTotal(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// ReceivedTotal sums received value across a purchase order's lines.
func ReceivedTotal(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.ReceivedTotal())
	}
	return total
}

// FullyReceived reports whether every line's remaining quantity is zero.
func FullyReceived(lines []LineItem) bool {
	for _, l := range lines {
		if l.Remaining() > 0 {
			return false
		}
	}
	return len(lines) > 0
}
