package procurement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequisitionTransitions(t *testing.T) {
	all := []RequisitionStatus{
		StatusDraft, StatusPendingApproval, StatusApproved,
		StatusRejected, StatusConverted, StatusCancelled,
	}
	allowed := map[RequisitionStatus]map[RequisitionStatus]bool{
		StatusDraft:           {StatusPendingApproval: true, StatusCancelled: true},
		StatusPendingApproval: {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
		StatusApproved:        {StatusConverted: true, StatusCancelled: true},
	}
	for _, from := range all {
		for _, to := range all {
			require.Equalf(t, allowed[from][to], canTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	require.True(t, StatusRejected.Terminal())
	require.True(t, StatusConverted.Terminal())
	require.True(t, StatusCancelled.Terminal())
	require.False(t, StatusDraft.Terminal())
	require.False(t, StatusPendingApproval.Terminal())
	require.False(t, StatusApproved.Terminal())
}

func TestEditableStates(t *testing.T) {
	require.True(t, StatusDraft.Editable())
	require.True(t, StatusPendingApproval.Editable())
	require.False(t, StatusApproved.Editable())
	require.False(t, StatusRejected.Editable())
	require.False(t, StatusConverted.Editable())
	require.False(t, StatusCancelled.Editable())
}

func TestStatusValid(t *testing.T) {
	require.True(t, StatusDraft.Valid())
	require.False(t, RequisitionStatus("SHIPPED").Valid())
}

func TestPOProgression(t *testing.T) {
	require.True(t, canProgressPO(POStatusIssued, POStatusFulfilled))
	require.True(t, canProgressPO(POStatusIssued, POStatusCancelled))
	require.False(t, canProgressPO(POStatusFulfilled, POStatusCancelled))
	require.False(t, canProgressPO(POStatusCancelled, POStatusIssued))
	require.False(t, canProgressPO(POStatusFulfilled, POStatusIssued))
}
