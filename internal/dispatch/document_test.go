package dispatch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/quarry-erp/quarry-erp/internal/procurement"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type stubStore struct {
	req     procurement.Requisition
	items   []procurement.RequisitionItem
	po      procurement.PurchaseOrder
	poItems []procurement.PurchaseOrderItem
	err     error
}

func (s *stubStore) GetRequisition(ctx context.Context, id int64) (procurement.Requisition, []procurement.RequisitionItem, error) {
	if s.err != nil {
		return procurement.Requisition{}, nil, s.err
	}
	return s.req, s.items, nil
}

func (s *stubStore) GetPurchaseOrder(ctx context.Context, id int64) (procurement.PurchaseOrder, []procurement.PurchaseOrderItem, error) {
	if s.err != nil {
		return procurement.PurchaseOrder{}, nil, s.err
	}
	return s.po, s.poItems, nil
}

func fixtureStore() *stubStore {
	return &stubStore{
		req: procurement.Requisition{
			ID:           7,
			Number:       "REQ-000007",
			RequesterID:  3,
			SupplierID:   9,
			Status:       procurement.StatusPendingApproval,
			DeliverTo:    "Site B",
			DeliveryDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			TotalAmount:  decimal.RequireFromString("20019.99"),
		},
		items: []procurement.RequisitionItem{
			{Description: "steel beam", Quantity: 10, Unit: "pc", UnitPrice: decimal.RequireFromString("2000.00"), LineTotal: decimal.RequireFromString("20000.00")},
			{Description: "bolts", Quantity: 2, Unit: "box", UnitPrice: decimal.RequireFromString("10.00"), LineTotal: decimal.RequireFromString("19.99")},
		},
		po: procurement.PurchaseOrder{
			ID:            21,
			Number:        "PO-000004",
			RequisitionID: 7,
			SupplierID:    9,
			Status:        procurement.POStatusIssued,
			TotalAmount:   decimal.RequireFromString("20019.99"),
			CreatedAt:     time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		},
		poItems: []procurement.PurchaseOrderItem{
			{Description: "steel beam", Quantity: 10, Unit: "pc", UnitPrice: decimal.RequireFromString("2000.00"), LineTotal: decimal.RequireFromString("20000.00")},
		},
	}
}

func TestRequisitionDocument(t *testing.T) {
	builder := NewBuilder(fixtureStore())

	doc, err := builder.RequisitionDocument(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Requisition REQ-000007 (PENDING_APPROVAL)", doc.Subject)
	require.Equal(t, "REQ-000007.pdf", doc.Filename)
	require.Contains(t, doc.HTML, "Purchase Requisition REQ-000007")
	require.Contains(t, doc.HTML, "steel beam")
	require.Contains(t, doc.HTML, "Deliver to: Site B")
	require.Contains(t, doc.HTML, "15 Jun 2025")
	// Thousands separators on money.
	require.Contains(t, doc.HTML, "20,019.99")
	require.Contains(t, doc.HTML, "2,000.00")
}

func TestRequisitionDocumentShowsRejectReason(t *testing.T) {
	store := fixtureStore()
	store.req.Status = procurement.StatusRejected
	store.req.RejectReason = "over budget"
	builder := NewBuilder(store)

	doc, err := builder.RequisitionDocument(context.Background(), 7)
	require.NoError(t, err)
	require.Contains(t, doc.HTML, "Reason: over budget")
	require.Contains(t, doc.Subject, "REJECTED")
}

func TestPurchaseOrderDocument(t *testing.T) {
	builder := NewBuilder(fixtureStore())

	doc, err := builder.PurchaseOrderDocument(context.Background(), 21)
	require.NoError(t, err)
	require.Equal(t, "Purchase Order PO-000004", doc.Subject)
	require.Equal(t, "PO-000004.pdf", doc.Filename)
	require.Contains(t, doc.HTML, "Purchase Order PO-000004")
	require.Contains(t, doc.HTML, "Issued 2 Jun 2025")
	require.Contains(t, doc.HTML, "20,019.99")
}

func TestDocumentEscapesHTML(t *testing.T) {
	store := fixtureStore()
	store.items[0].Description = `<script>alert("x")</script>`
	builder := NewBuilder(store)

	doc, err := builder.RequisitionDocument(context.Background(), 7)
	require.NoError(t, err)
	require.NotContains(t, doc.HTML, "<script>")
	require.Contains(t, doc.HTML, "&lt;script&gt;")
}

func TestDocumentPropagatesStoreError(t *testing.T) {
	builder := NewBuilder(&stubStore{err: fmt.Errorf("requisition 7: %w", shared.ErrNotFound)})

	_, err := builder.RequisitionDocument(context.Background(), 7)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEncodeMIMEWrapsAttachment(t *testing.T) {
	msg := Message{
		To:         []string{"finance@quarry.test"},
		Subject:    "Requisition REQ-000007",
		HTML:       "<html></html>",
		Attachment: []byte(strings.Repeat("x", 500)),
		Filename:   "REQ-000007.pdf",
	}
	raw := string(encodeMIME("noreply@quarry.test", msg))
	require.Contains(t, raw, "Subject: Requisition REQ-000007")
	require.Contains(t, raw, "Content-Type: application/pdf")
	require.Contains(t, raw, `filename="REQ-000007.pdf"`)
	for _, line := range strings.Split(raw, "\r\n") {
		require.LessOrEqual(t, len(line), 76+len("Content-Disposition: attachment; "))
	}
}
