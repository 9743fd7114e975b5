package procurement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitQuorum(t *testing.T) {
	_, err := InitQuorum(1, nil)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = InitQuorum(1, []int64{7, 0})
	require.ErrorIs(t, err, ErrConfiguration)

	approvals, err := InitQuorum(1, []int64{7, 8, 7})
	require.NoError(t, err)
	require.Len(t, approvals, 2)
	for _, a := range approvals {
		require.Equal(t, ApprovalStatusPending, a.Status)
		require.Equal(t, int64(1), a.POID)
	}
}

func TestResolveOneShot(t *testing.T) {
	now := time.Now()
	a := Approval{POID: 1, ApproverID: 7, Status: ApprovalStatusPending}

	require.NoError(t, a.Resolve(DecisionApprove, "looks fine", "sig-1", now))
	require.Equal(t, ApprovalStatusApproved, a.Status)
	require.NotNil(t, a.ResolvedAt)

	err := a.Resolve(DecisionReject, "changed my mind", "", now)
	require.ErrorIs(t, err, ErrAlreadyResolved)
	require.Equal(t, ApprovalStatusApproved, a.Status)
}

func TestResolveUnknownDecision(t *testing.T) {
	a := Approval{Status: ApprovalStatusPending}
	require.ErrorIs(t, a.Resolve(Decision("MAYBE"), "", "", time.Now()), ErrValidation)
	require.Equal(t, ApprovalStatusPending, a.Status)
}

func TestAggregateQuorum(t *testing.T) {
	cases := []struct {
		name     string
		statuses []ApprovalStatus
		want     ApprovalStatus
	}{
		{"empty", nil, ApprovalStatusPending},
		{"all pending", []ApprovalStatus{ApprovalStatusPending, ApprovalStatusPending}, ApprovalStatusPending},
		{"partial approval", []ApprovalStatus{ApprovalStatusApproved, ApprovalStatusPending}, ApprovalStatusPending},
		{"unanimous", []ApprovalStatus{ApprovalStatusApproved, ApprovalStatusApproved}, ApprovalStatusApproved},
		{"reject short-circuits", []ApprovalStatus{ApprovalStatusApproved, ApprovalStatusApproved, ApprovalStatusRejected}, ApprovalStatusRejected},
		{"reject beats pending", []ApprovalStatus{ApprovalStatusPending, ApprovalStatusRejected}, ApprovalStatusRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			approvals := make([]Approval, len(tc.statuses))
			for i, s := range tc.statuses {
				approvals[i] = Approval{Status: s}
			}
			require.Equal(t, tc.want, AggregateQuorum(approvals))
		})
	}
}
