package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewLineItemValidation(t *testing.T) {
	_, err := NewLineItem(0, 0, 5, decimal.NewFromInt(10))
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewLineItem(1, 0, 0, decimal.NewFromInt(10))
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewLineItem(1, 0, 5, decimal.NewFromInt(-1))
	require.ErrorIs(t, err, ErrValidation)

	line, err := NewLineItem(1, 2, 5, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.Equal(t, int64(5), line.OrderedQty)
	require.Equal(t, int64(0), line.ReceivedQty)
	require.True(t, line.LineTotal().Equal(decimal.NewFromInt(50)))
}

func TestPostReceiptOverReceipt(t *testing.T) {
	line, err := NewLineItem(1, 0, 20, decimal.NewFromInt(3))
	require.NoError(t, err)

	require.NoError(t, line.PostReceipt(12))
	require.Equal(t, int64(8), line.Remaining())

	err = line.PostReceipt(9)
	require.ErrorIs(t, err, ErrOverReceipt)
	// Failed receipt leaves the line untouched.
	require.Equal(t, int64(12), line.ReceivedQty)
	require.Equal(t, int64(8), line.Remaining())

	require.NoError(t, line.PostReceipt(8))
	require.Equal(t, int64(0), line.Remaining())

	err = line.PostReceipt(1)
	require.ErrorIs(t, err, ErrOverReceipt)
}

func TestPostReceiptRejectsNonPositive(t *testing.T) {
	line, err := NewLineItem(1, 0, 5, decimal.NewFromInt(1))
	require.NoError(t, err)

	require.ErrorIs(t, line.PostReceipt(0), ErrValidation)
	require.ErrorIs(t, line.PostReceipt(-3), ErrValidation)
}

func TestOrderTotals(t *testing.T) {
	a, _ := NewLineItem(1, 0, 10, decimal.RequireFromString("5"))
	b, _ := NewLineItem(2, 0, 4, decimal.RequireFromString("10"))
	lines := []LineItem{a, b}

	require.True(t, OrderTotal(lines).Equal(decimal.NewFromInt(90)))
	require.True(t, ReceivedTotal(lines).IsZero())
	require.False(t, FullyReceived(lines))

	require.NoError(t, lines[0].PostReceipt(10))
	require.NoError(t, lines[1].PostReceipt(4))
	require.True(t, ReceivedTotal(lines).Equal(decimal.NewFromInt(90)))
	require.True(t, FullyReceived(lines))
}

func TestFullyReceivedEmptyLedger(t *testing.T) {
	require.False(t, FullyReceived(nil))
}

func TestRemainingBalanceClamped(t *testing.T) {
	po := PurchaseOrder{TotalValue: decimal.NewFromInt(90), ReceivedValue: decimal.NewFromInt(60)}
	require.True(t, po.RemainingBalance().Equal(decimal.NewFromInt(30)))

	po.ReceivedValue = decimal.NewFromInt(100)
	require.True(t, po.RemainingBalance().IsZero())
}
