package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func draftWithLines(t *testing.T) (PurchaseOrder, []LineItem) {
	t.Helper()
	line, err := NewLineItem(1, 0, 10, decimal.NewFromInt(5))
	require.NoError(t, err)
	return PurchaseOrder{ID: 1, Status: POStatusDraft, TotalValue: line.LineTotal()}, []LineItem{line}
}

func TestSubmitRequiresDraftWithLines(t *testing.T) {
	po, lines := draftWithLines(t)
	require.NoError(t, Submit(&po, lines))
	require.Equal(t, POStatusPendingApproval, po.Status)

	err := Submit(&po, lines)
	require.ErrorIs(t, err, ErrIllegalTransition)

	empty := PurchaseOrder{Status: POStatusDraft}
	err = Submit(&empty, nil)
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.Equal(t, POStatusDraft, empty.Status)
}

func TestApplyQuorumOutcomes(t *testing.T) {
	po := PurchaseOrder{Status: POStatusPendingApproval}
	require.NoError(t, ApplyQuorum(&po, ApprovalStatusPending))
	require.Equal(t, POStatusPendingApproval, po.Status)

	require.NoError(t, ApplyQuorum(&po, ApprovalStatusApproved))
	require.Equal(t, POStatusApproved, po.Status)

	rejected := PurchaseOrder{Status: POStatusPendingApproval}
	require.NoError(t, ApplyQuorum(&rejected, ApprovalStatusRejected))
	require.Equal(t, POStatusRejected, rejected.Status)
	require.True(t, rejected.Status.Terminal())

	err := ApplyQuorum(&rejected, ApprovalStatusApproved)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestDispatchAndVendorDecision(t *testing.T) {
	po := PurchaseOrder{Status: POStatusApproved}
	require.NoError(t, Dispatch(&po))
	require.Equal(t, POStatusVendorReview, po.Status)

	require.NoError(t, ApplyVendorDecision(&po, true, "eta 3 weeks"))
	require.Equal(t, POStatusVendorAccepted, po.Status)
	require.NotNil(t, po.VendorAccepted)
	require.True(t, *po.VendorAccepted)
	require.Equal(t, "eta 3 weeks", po.VendorNotes)

	declined := PurchaseOrder{Status: POStatusVendorReview}
	require.NoError(t, ApplyVendorDecision(&declined, false, "out of stock"))
	require.Equal(t, POStatusVendorRejected, declined.Status)
	require.True(t, declined.Status.Terminal())
}

func TestApplyVendorDecisionGuard(t *testing.T) {
	po := PurchaseOrder{Status: POStatusApproved}
	err := ApplyVendorDecision(&po, true, "")
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.Nil(t, po.VendorAccepted)
}

func TestApplyReceiptStatuses(t *testing.T) {
	line, err := NewLineItem(1, 0, 10, decimal.NewFromInt(5))
	require.NoError(t, err)
	po := PurchaseOrder{Status: POStatusVendorAccepted, TotalValue: line.LineTotal()}

	require.NoError(t, line.PostReceipt(4))
	require.NoError(t, ApplyReceipt(&po, []LineItem{line}))
	require.Equal(t, POStatusPartiallyReceived, po.Status)
	require.True(t, po.ReceivedValue.Equal(decimal.NewFromInt(20)))

	require.NoError(t, line.PostReceipt(6))
	require.NoError(t, ApplyReceipt(&po, []LineItem{line}))
	require.Equal(t, POStatusFullyReceived, po.Status)
	require.True(t, po.RemainingBalance().IsZero())
	require.True(t, po.Status.Terminal())
}

func TestReceiptGuardBeforeAcceptance(t *testing.T) {
	for _, status := range []POStatus{POStatusDraft, POStatusPendingApproval, POStatusApproved, POStatusVendorReview, POStatusVendorRejected} {
		po := PurchaseOrder{Status: status}
		err := ApplyReceipt(&po, nil)
		require.ErrorIs(t, err, ErrIllegalTransition, "status %s", status)
	}
}

func TestCancelDraftOnly(t *testing.T) {
	po := PurchaseOrder{Status: POStatusDraft}
	require.NoError(t, Cancel(&po))
	require.Equal(t, POStatusCancelled, po.Status)

	submitted := PurchaseOrder{Status: POStatusPendingApproval}
	require.ErrorIs(t, Cancel(&submitted), ErrIllegalTransition)
}
