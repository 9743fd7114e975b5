package procurement

import "fmt"

// Lifecycle triggers, used for guard diagnostics.
const (
	TriggerSubmit   = "submit"
	TriggerResolve  = "resolve_approval"
	TriggerDispatch = "dispatch_to_vendor"
	TriggerRedeem   = "redeem_vendor_token"
	TriggerPostGRN  = "post_grn"
	TriggerCancel   = "cancel"
)

// guard rejects a trigger unless the order sits in one of the allowed states.
// The failed guard names both the current state and the attempted trigger.
func guard(po PurchaseOrder, trigger string, allowed ...POStatus) error {
	for _, s := range allowed {
		if po.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s from %s", ErrIllegalTransition, trigger, po.Status)
}

// Submit moves a draft with at least one line into the approval stage.
func Submit(po *PurchaseOrder, lines []LineItem) error {
	if err := guard(*po, TriggerSubmit, POStatusDraft); err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: cannot %s without line items", ErrIllegalTransition, TriggerSubmit)
	}
	po.Status = POStatusPendingApproval
	return nil
}

// ApplyQuorum folds the aggregate approval outcome into the order status.
// A still-pending quorum leaves the order untouched.
func ApplyQuorum(po *PurchaseOrder, outcome ApprovalStatus) error {
	if err := guard(*po, TriggerResolve, POStatusPendingApproval); err != nil {
		return err
	}
	switch outcome {
	case ApprovalStatusApproved:
		po.Status = POStatusApproved
	case ApprovalStatusRejected:
		po.Status = POStatusRejected
	}
	return nil
}

// Dispatch marks an approved order as sent to the vendor for review.
func Dispatch(po *PurchaseOrder) error {
	if err := guard(*po, TriggerDispatch, POStatusApproved); err != nil {
		return err
	}
	po.Status = POStatusVendorReview
	return nil
}

// ApplyVendorDecision records the vendor's accept/reject outcome.
func ApplyVendorDecision(po *PurchaseOrder, accepted bool, notes string) error {
	if err := guard(*po, TriggerRedeem, POStatusVendorReview); err != nil {
		return err
	}
	po.VendorAccepted = &accepted
	po.VendorNotes = notes
	if accepted {
		po.Status = POStatusVendorAccepted
	} else {
		po.Status = POStatusVendorRejected
	}
	return nil
}

// ApplyReceipt derives the receiving status from the post-receipt ledger.
func ApplyReceipt(po *PurchaseOrder, lines []LineItem) error {
	if err := guard(*po, TriggerPostGRN, POStatusVendorAccepted, POStatusPartiallyReceived); err != nil {
		return err
	}
	po.ReceivedValue = ReceivedTotal(lines)
	if FullyReceived(lines) {
		po.Status = POStatusFullyReceived
	} else {
		po.Status = POStatusPartiallyReceived
	}
	return nil
}

// Cancel withdraws an order that was never submitted.
func Cancel(po *PurchaseOrder) error {
	if err := guard(*po, TriggerCancel, POStatusDraft); err != nil {
		return err
	}
	po.Status = POStatusCancelled
	return nil
}
