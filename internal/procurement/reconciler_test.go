package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func twoLineLedger(t *testing.T) []LineItem {
	t.Helper()
	a, err := NewLineItem(10, 0, 10, decimal.NewFromInt(5))
	require.NoError(t, err)
	a.ID = 1
	b, err := NewLineItem(20, 0, 4, decimal.NewFromInt(10))
	require.NoError(t, err)
	b.ID = 2
	return []LineItem{a, b}
}

func TestReconcileCompleteReceipt(t *testing.T) {
	lines := twoLineLedger(t)
	updated, grnLines, status, err := ReconcileReceipt(lines, []ReceiptLine{
		{ProductID: 10, Qty: 10},
		{ProductID: 20, Qty: 4},
	})
	require.NoError(t, err)
	require.Equal(t, GRNStatusCompleted, status)
	require.True(t, FullyReceived(updated))
	require.True(t, ReceiptValue(grnLines).Equal(decimal.NewFromInt(90)))

	// Source ledger must not be mutated.
	require.Equal(t, int64(0), lines[0].ReceivedQty)
}

func TestReconcilePartialReceipt(t *testing.T) {
	lines := twoLineLedger(t)
	updated, grnLines, status, err := ReconcileReceipt(lines, []ReceiptLine{
		{ProductID: 10, Qty: 6},
	})
	require.NoError(t, err)
	require.Equal(t, GRNStatusPartial, status)
	require.Equal(t, int64(4), updated[0].Remaining())
	require.True(t, ReceiptValue(grnLines).Equal(decimal.NewFromInt(30)))
}

func TestReconcileAllOrNothing(t *testing.T) {
	lines := twoLineLedger(t)
	// Second requested line overshoots: the first must not stick either.
	_, _, _, err := ReconcileReceipt(lines, []ReceiptLine{
		{ProductID: 10, Qty: 5},
		{ProductID: 20, Qty: 5},
	})
	require.ErrorIs(t, err, ErrOverReceipt)
	require.Equal(t, int64(0), lines[0].ReceivedQty)
	require.Equal(t, int64(0), lines[1].ReceivedQty)
}

func TestReconcileUnknownLine(t *testing.T) {
	lines := twoLineLedger(t)
	_, _, _, err := ReconcileReceipt(lines, []ReceiptLine{{ProductID: 99, Qty: 1}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestReconcileVariantMatters(t *testing.T) {
	line, err := NewLineItem(10, 7, 3, decimal.NewFromInt(2))
	require.NoError(t, err)

	_, _, _, err = ReconcileReceipt([]LineItem{line}, []ReceiptLine{{ProductID: 10, VariantID: 8, Qty: 1}})
	require.ErrorIs(t, err, ErrValidation)

	_, _, status, err := ReconcileReceipt([]LineItem{line}, []ReceiptLine{{ProductID: 10, VariantID: 7, Qty: 3}})
	require.NoError(t, err)
	require.Equal(t, GRNStatusCompleted, status)
}

func TestReconcileEmptyRequest(t *testing.T) {
	_, _, _, err := ReconcileReceipt(twoLineLedger(t), nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestReconcileFullConsumptionInSteps(t *testing.T) {
	lines := twoLineLedger(t)
	updated, _, status, err := ReconcileReceipt(lines, []ReceiptLine{{ProductID: 10, Qty: 6}})
	require.NoError(t, err)
	require.Equal(t, GRNStatusPartial, status)

	// A follow-up receipt that drains every remaining quantity is COMPLETED.
	updated, _, status, err = ReconcileReceipt(updated, []ReceiptLine{
		{ProductID: 10, Qty: 4},
		{ProductID: 20, Qty: 4},
	})
	require.NoError(t, err)
	require.Equal(t, GRNStatusCompleted, status)
	require.True(t, FullyReceived(updated))
}
