package procurement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// Event kinds published after a successful commit.
const (
	EventRequisitionSubmitted = "requisition.submitted"
	EventRequisitionApproved  = "requisition.approved"
	EventRequisitionRejected  = "requisition.rejected"
	EventPurchaseOrderIssued  = "purchase_order.issued"
)

// DocumentEvent captures a committed transition handed to the dispatch
// pipeline. The worker re-reads current rows by id, so the event only needs
// to identify the documents involved.
type DocumentEvent struct {
	Kind          string
	RequisitionID int64
	POID          int64
	ActorID       int64
}

// EventPort receives post-commit lifecycle events. Implementations must
// return quickly (a bounded enqueue) and must never fail the triggering
// request: dispatch failures are logged and retried out-of-band.
type EventPort interface {
	Publish(ctx context.Context, evt DocumentEvent)
}

// AuditPort records who did what, reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CatalogPort resolves live supplier catalog prices for items that reference
// a catalog entry without an explicit price.
type CatalogPort interface {
	UnitPrice(ctx context.Context, supplierID int64, sku string) (decimal.Decimal, error)
}
