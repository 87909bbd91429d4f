package procurement

import (
	"context"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// Convert turns an Approved requisition into a numbered, immutable purchase
// order in a single transaction: re-validate items, allocate the next PO
// number, deep-copy the items, issue the PO and mark the requisition
// Converted with a back-reference. Converting an already-Converted
// requisition is a no-op that returns the existing purchase order, so a
// retried request after a late acknowledgement never creates a duplicate.
// Any failure aborts the whole transaction and leaves the requisition
// Approved, safe to retry.
func (s *Service) Convert(ctx context.Context, actor shared.Actor, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	if err := authorize(actor, actionConvert); err != nil {
		return PurchaseOrder{}, nil, err
	}

	var (
		po      PurchaseOrder
		poItems []PurchaseOrderItem
		issued  bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, items, err := tx.GetRequisition(ctx, id)
		if err != nil {
			return err
		}
		if req.Status == StatusConverted {
			po, poItems, err = tx.PurchaseOrderByRequisition(ctx, id)
			return err
		}
		if req.Status != StatusApproved {
			return shared.InvalidStatef("requisition %s is %s, only approved requisitions convert", req.Number, req.Status)
		}
		if len(items) == 0 {
			return shared.ValidationErrors{{Field: "items", Message: "at least one item is required"}}
		}
		if err := validateStoredItems(items); err != nil {
			return err
		}

		number, err := tx.NextPONumber(ctx)
		if err != nil {
			return err
		}
		po = PurchaseOrder{
			Number:        number,
			RequisitionID: req.ID,
			ProjectID:     req.ProjectID,
			SupplierID:    req.SupplierID,
			TotalAmount:   itemsTotal(items),
			Status:        POStatusIssued,
		}
		poID, err := tx.CreatePurchaseOrder(ctx, po)
		if err != nil {
			return err
		}
		po.ID = poID

		poItems = poItems[:0]
		for _, it := range items {
			item := PurchaseOrderItem{
				POID:        poID,
				Description: it.Description,
				Quantity:    it.Quantity,
				Unit:        it.Unit,
				UnitPrice:   it.UnitPrice,
				LineTotal:   LineTotal(it.Quantity, it.UnitPrice),
			}
			if err := tx.InsertPOItem(ctx, item); err != nil {
				return err
			}
			poItems = append(poItems, item)
		}

		req.Status = StatusConverted
		req.POID = poID
		req.TotalAmount = po.TotalAmount
		if err := tx.UpdateRequisition(ctx, req); err != nil {
			return err
		}
		issued = true
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	if issued {
		s.publish(ctx, DocumentEvent{Kind: EventPurchaseOrderIssued, RequisitionID: id, POID: po.ID, ActorID: actor.ID})
		s.recordAudit(ctx, actor, "PO_ISSUE", po.ID, map[string]any{"number": po.Number, "from_requisition": id, "total": po.TotalAmount.String()})
	}
	return po, poItems, nil
}

// GetPurchaseOrder returns a purchase order snapshot with its frozen items.
// Requesters only see purchase orders issued from their own requisitions.
func (s *Service) GetPurchaseOrder(ctx context.Context, actor shared.Actor, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	po, items, err := s.repo.GetPurchaseOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	if !actor.Role.Elevated() {
		req, _, err := s.repo.GetRequisition(ctx, po.RequisitionID)
		if err != nil {
			return PurchaseOrder{}, nil, err
		}
		if err := ensureOwner(actor, req); err != nil {
			return PurchaseOrder{}, nil, err
		}
	}
	return po, items, nil
}

// ListPurchaseOrders returns purchase order snapshots.
func (s *Service) ListPurchaseOrders(ctx context.Context, actor shared.Actor, filters ListFilters) ([]PurchaseOrder, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	return s.repo.ListPurchaseOrders(ctx, filters)
}

// MarkFulfilled progresses an issued purchase order to fulfilled. Items and
// totals stay frozen; only the status moves.
func (s *Service) MarkFulfilled(ctx context.Context, actor shared.Actor, id int64) error {
	return s.progressPO(ctx, actor, id, POStatusFulfilled, "PO_FULFIL")
}

// CancelPurchaseOrder administratively cancels an issued purchase order. The
// allocated PO number is never reused.
func (s *Service) CancelPurchaseOrder(ctx context.Context, actor shared.Actor, id int64) error {
	return s.progressPO(ctx, actor, id, POStatusCancelled, "PO_CANCEL")
}

func (s *Service) progressPO(ctx context.Context, actor shared.Actor, id int64, to POStatus, auditAction string) error {
	if err := authorize(actor, actionPO); err != nil {
		return err
	}
	po, _, err := s.repo.GetPurchaseOrder(ctx, id)
	if err != nil {
		return err
	}
	if !canProgressPO(po.Status, to) {
		return shared.InvalidStatef("purchase order %s is %s, cannot become %s", po.Number, po.Status, to)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePOStatus(ctx, id, po.Status, to)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, auditAction, id, map[string]any{"number": po.Number})
	return nil
}
