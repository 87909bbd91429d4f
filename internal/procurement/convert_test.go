package procurement

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

func TestConvertIdempotent(t *testing.T) {
	svc, repo, events := newTestService(t)
	ctx := context.Background()
	approved := seedApproved(t, svc)

	first, firstItems, err := svc.Convert(ctx, finance, approved.ID)
	require.NoError(t, err)

	second, secondItems, err := svc.Convert(ctx, finance, approved.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Number, second.Number)
	require.Len(t, secondItems, len(firstItems))

	require.Len(t, repo.pos, 1)

	// Only the first conversion dispatches the PO document.
	var issued int
	for _, kind := range events.kinds() {
		if kind == EventPurchaseOrderIssued {
			issued++
		}
	}
	require.Equal(t, 1, issued)
}

func TestConvertRequiresApproved(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	draft, err := svc.Create(ctx, requester, testHeader())
	require.NoError(t, err)
	_, _, err = svc.Convert(ctx, finance, draft.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	submitted := seedSubmitted(t, svc)
	_, _, err = svc.Convert(ctx, finance, submitted.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestConvertSnapshotsItems(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	approved := seedApproved(t, svc)

	po, poItems, err := svc.Convert(ctx, finance, approved.ID)
	require.NoError(t, err)
	require.Equal(t, approved.ID, po.RequisitionID)
	require.Equal(t, approved.ProjectID, po.ProjectID)
	require.Equal(t, approved.SupplierID, po.SupplierID)
	require.Equal(t, "29.99", po.TotalAmount.StringFixed(2))

	_, reqItems, err := svc.Get(ctx, finance, approved.ID)
	require.NoError(t, err)
	require.Len(t, poItems, len(reqItems))
	for i, it := range poItems {
		require.Equal(t, po.ID, it.POID)
		require.Equal(t, reqItems[i].Description, it.Description)
		require.Equal(t, reqItems[i].Quantity, it.Quantity)
		require.True(t, reqItems[i].UnitPrice.Equal(it.UnitPrice))
		require.True(t, reqItems[i].LineTotal.Equal(it.LineTotal))
	}
}

func TestConcurrentConvertsProduceOnePO(t *testing.T) {
	svc, repo, _ := newTestService(t)
	approved := seedApproved(t, svc)

	type result struct {
		id  int64
		err error
	}
	const workers = 8
	results := make(chan result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			po, _, err := svc.Convert(context.Background(), finance, approved.ID)
			results <- result{id: po.ID, err: err}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for res := range results {
		require.NoError(t, res.err)
		seen[res.id] = true
	}
	require.Len(t, seen, 1)
	require.Len(t, repo.pos, 1)
}

func TestPONumbersDistinctAndOrdered(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var numbers []string
	for i := 0; i < 3; i++ {
		approved := seedApproved(t, svc)
		po, _, err := svc.Convert(ctx, finance, approved.ID)
		require.NoError(t, err)
		numbers = append(numbers, po.Number)
	}
	for i, n := range numbers {
		require.Equal(t, fmt.Sprintf("PO-%06d", i+1), n)
	}
}

func TestPurchaseOrderProgression(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	approved := seedApproved(t, svc)
	po, _, err := svc.Convert(ctx, finance, approved.ID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.MarkFulfilled(ctx, requester, po.ID), shared.ErrForbidden)

	require.NoError(t, svc.MarkFulfilled(ctx, finance, po.ID))
	got, _, err := svc.GetPurchaseOrder(ctx, finance, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusFulfilled, got.Status)

	require.ErrorIs(t, svc.CancelPurchaseOrder(ctx, admin, po.ID), shared.ErrInvalidState)
	require.ErrorIs(t, svc.MarkFulfilled(ctx, finance, po.ID), shared.ErrInvalidState)
}

func TestPurchaseOrderVisibilityFollowsRequisition(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	approved := seedApproved(t, svc)
	po, _, err := svc.Convert(ctx, finance, approved.ID)
	require.NoError(t, err)

	_, _, err = svc.GetPurchaseOrder(ctx, requester, po.ID)
	require.NoError(t, err)

	_, _, err = svc.GetPurchaseOrder(ctx, otherRequester, po.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, _, err = svc.GetPurchaseOrder(ctx, finance, po.ID)
	require.NoError(t, err)
}

func TestCancelIssuedPurchaseOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	approved := seedApproved(t, svc)
	po, _, err := svc.Convert(ctx, finance, approved.ID)
	require.NoError(t, err)

	require.NoError(t, svc.CancelPurchaseOrder(ctx, admin, po.ID))
	got, _, err := svc.GetPurchaseOrder(ctx, admin, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusCancelled, got.Status)

	// The requisition stays Converted; cancellation of the PO never reopens it.
	reqAfter, _, err := svc.Get(ctx, finance, approved.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConverted, reqAfter.Status)
}
