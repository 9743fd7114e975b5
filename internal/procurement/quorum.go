package procurement

import (
	"fmt"
	"time"
)

// Decision is an approver's resolution choice.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// InitQuorum builds one pending approval per configured approver.
// Duplicate approver ids collapse to a single record.
func InitQuorum(poID int64, approverIDs []int64) ([]Approval, error) {
	if len(approverIDs) == 0 {
		return nil, fmt.Errorf("%w: approver set is empty", ErrConfiguration)
	}
	seen := make(map[int64]bool, len(approverIDs))
	approvals := make([]Approval, 0, len(approverIDs))
	for _, id := range approverIDs {
		if id == 0 {
			return nil, fmt.Errorf("%w: approver id required", ErrConfiguration)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		approvals = append(approvals, Approval{POID: poID, ApproverID: id, Status: ApprovalStatusPending})
	}
	return approvals, nil
}

// Resolve applies a one-shot decision to a pending approval.
func (a *Approval) Resolve(decision Decision, comment, signatureRef string, now time.Time) error {
	if a.Status != ApprovalStatusPending {
		return fmt.Errorf("%w: approver %d already resolved %s", ErrAlreadyResolved, a.ApproverID, a.Status)
	}
	switch decision {
	case DecisionApprove:
		a.Status = ApprovalStatusApproved
	case DecisionReject:
		a.Status = ApprovalStatusRejected
	default:
		return fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
	}
	a.Comment = comment
	a.SignatureRef = signatureRef
	a.ResolvedAt = &now
	return nil
}

// AggregateQuorum computes the quorum outcome: any rejection short-circuits to
// Rejected, unanimous approval yields Approved, anything else stays Pending.
func AggregateQuorum(approvals []Approval) ApprovalStatus {
	if len(approvals) == 0 {
		return ApprovalStatusPending
	}
	allApproved := true
	for _, a := range approvals {
		switch a.Status {
		case ApprovalStatusRejected:
			return ApprovalStatusRejected
		case ApprovalStatusPending:
			allApproved = false
		}
	}
	if allApproved {
		return ApprovalStatusApproved
	}
	return ApprovalStatusPending
}
