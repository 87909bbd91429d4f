package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// Service owns the requisition state machine. Every mutating operation runs
// inside a single store transaction keyed by the requisition id and the
// version it read; a concurrent conflicting write yields shared.ErrConflict
// and the caller must retry with fresh data.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
	events  EventPort
	logger  *slog.Logger
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort, events EventPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit, events: events, logger: logger}
}

// HeaderInput carries the requisition header fields.
type HeaderInput struct {
	ProjectID    int64
	SupplierID   int64
	DeliveryDate time.Time
	DeliverTo    string
	Instructions string
}

func validateHeader(h HeaderInput) error {
	var errs shared.ValidationErrors
	if h.ProjectID <= 0 {
		errs = append(errs, shared.FieldError{Field: "project_id", Message: "required"})
	}
	if h.SupplierID <= 0 {
		errs = append(errs, shared.FieldError{Field: "supplier_id", Message: "required"})
	}
	if strings.TrimSpace(h.DeliverTo) == "" {
		errs = append(errs, shared.FieldError{Field: "deliver_to", Message: "required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Create opens a new Draft requisition with no items and assigns its number.
func (s *Service) Create(ctx context.Context, actor shared.Actor, header HeaderInput) (Requisition, error) {
	if err := authorize(actor, actionCreate); err != nil {
		return Requisition{}, err
	}
	if err := validateHeader(header); err != nil {
		return Requisition{}, err
	}

	var created Requisition
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextRequisitionNumber(ctx)
		if err != nil {
			return err
		}
		req := Requisition{
			Number:       number,
			ProjectID:    header.ProjectID,
			SupplierID:   header.SupplierID,
			RequesterID:  actor.ID,
			RequestDate:  time.Now(),
			DeliveryDate: header.DeliveryDate,
			DeliverTo:    header.DeliverTo,
			Instructions: header.Instructions,
			TotalAmount:  decimal.Zero,
			Status:       StatusDraft,
			Version:      1,
		}
		id, err := tx.CreateRequisition(ctx, req)
		if err != nil {
			return err
		}
		req.ID = id
		created = req
		return nil
	})
	if err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, actor, "REQUISITION_CREATE", created.ID, map[string]any{"number": created.Number})
	return created, nil
}

// Edit replaces the header and the whole item list while the requisition is
// still Draft or PendingApproval, recomputes the total and bumps the version.
func (s *Service) Edit(ctx context.Context, actor shared.Actor, id int64, header HeaderInput, items []ItemInput) (Requisition, error) {
	if err := authorize(actor, actionEdit); err != nil {
		return Requisition{}, err
	}
	if err := validateHeader(header); err != nil {
		return Requisition{}, err
	}

	var updated Requisition
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, _, err := tx.GetRequisition(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureOwner(actor, req); err != nil {
			return err
		}
		if !req.Status.Editable() {
			return shared.InvalidStatef("requisition %s is %s", req.Number, req.Status)
		}

		resolved, err := s.resolveCatalogPrices(ctx, req.SupplierID, items)
		if err != nil {
			return err
		}
		if err := ValidateItems(resolved); err != nil {
			return err
		}
		if req.Status == StatusPendingApproval && len(resolved) == 0 {
			return shared.ValidationErrors{{Field: "items", Message: "a submitted requisition needs at least one item"}}
		}

		rows := make([]RequisitionItem, 0, len(resolved))
		for _, it := range resolved {
			rows = append(rows, RequisitionItem{
				RequisitionID: id,
				Description:   it.Description,
				Quantity:      it.Quantity,
				Unit:          it.Unit,
				UnitPrice:     it.UnitPrice,
				LineTotal:     LineTotal(it.Quantity, it.UnitPrice),
			})
		}
		if err := tx.ReplaceItems(ctx, id, rows); err != nil {
			return err
		}

		req.ProjectID = header.ProjectID
		req.SupplierID = header.SupplierID
		req.DeliveryDate = header.DeliveryDate
		req.DeliverTo = header.DeliverTo
		req.Instructions = header.Instructions
		req.TotalAmount = ComputeTotal(resolved)
		if err := tx.UpdateRequisition(ctx, req); err != nil {
			return err
		}
		req.Version++
		updated = req
		return nil
	})
	if err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, actor, "REQUISITION_EDIT", updated.ID, map[string]any{"number": updated.Number, "total": updated.TotalAmount.String()})
	return updated, nil
}

// Submit transitions Draft to PendingApproval once the item list passes
// validation and is not empty.
func (s *Service) Submit(ctx context.Context, actor shared.Actor, id int64) (Requisition, error) {
	updated, err := s.transition(ctx, actor, id, actionSubmit, StatusPendingApproval, func(req *Requisition, items []RequisitionItem) error {
		if err := ensureOwner(actor, *req); err != nil {
			return err
		}
		if len(items) == 0 {
			return shared.ValidationErrors{{Field: "items", Message: "at least one item is required"}}
		}
		if err := validateStoredItems(items); err != nil {
			return err
		}
		req.TotalAmount = itemsTotal(items)
		return nil
	})
	if err != nil {
		return Requisition{}, err
	}
	s.publish(ctx, DocumentEvent{Kind: EventRequisitionSubmitted, RequisitionID: updated.ID, ActorID: actor.ID})
	s.recordAudit(ctx, actor, "REQUISITION_SUBMIT", updated.ID, map[string]any{"number": updated.Number})
	return updated, nil
}

// Approve transitions PendingApproval to Approved. Finance or admin only.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, id int64) (Requisition, error) {
	updated, err := s.transition(ctx, actor, id, actionApprove, StatusApproved, nil)
	if err != nil {
		return Requisition{}, err
	}
	s.publish(ctx, DocumentEvent{Kind: EventRequisitionApproved, RequisitionID: updated.ID, ActorID: actor.ID})
	s.recordAudit(ctx, actor, "REQUISITION_APPROVE", updated.ID, map[string]any{"number": updated.Number})
	return updated, nil
}

// Reject transitions PendingApproval to Rejected, recording the reason.
func (s *Service) Reject(ctx context.Context, actor shared.Actor, id int64, reason string) (Requisition, error) {
	updated, err := s.transition(ctx, actor, id, actionReject, StatusRejected, func(req *Requisition, _ []RequisitionItem) error {
		req.RejectReason = reason
		return nil
	})
	if err != nil {
		return Requisition{}, err
	}
	s.publish(ctx, DocumentEvent{Kind: EventRequisitionRejected, RequisitionID: updated.ID, ActorID: actor.ID})
	s.recordAudit(ctx, actor, "REQUISITION_REJECT", updated.ID, map[string]any{"number": updated.Number, "reason": reason})
	return updated, nil
}

// Cancel administratively terminates a requisition that has not been
// converted. Requesters may cancel their own requisitions before approval.
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, id int64, reason string) (Requisition, error) {
	updated, err := s.transition(ctx, actor, id, actionCancel, StatusCancelled, func(req *Requisition, _ []RequisitionItem) error {
		if err := ensureCancellable(actor, *req); err != nil {
			return err
		}
		req.CancelReason = reason
		return nil
	})
	if err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, actor, "REQUISITION_CANCEL", updated.ID, map[string]any{"number": updated.Number, "reason": reason})
	return updated, nil
}

// transition performs one guarded status change in a single transaction.
// The guard runs after the row is loaded and before the write; it may adjust
// derived fields on req.
func (s *Service) transition(ctx context.Context, actor shared.Actor, id int64, act action, to RequisitionStatus, guard func(*Requisition, []RequisitionItem) error) (Requisition, error) {
	if err := authorize(actor, act); err != nil {
		return Requisition{}, err
	}
	var updated Requisition
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, items, err := tx.GetRequisition(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(req.Status, to) {
			return shared.InvalidStatef("requisition %s is %s, cannot become %s", req.Number, req.Status, to)
		}
		if guard != nil {
			if err := guard(&req, items); err != nil {
				return err
			}
		}
		req.Status = to
		if err := tx.UpdateRequisition(ctx, req); err != nil {
			return err
		}
		req.Version++
		updated = req
		return nil
	})
	if err != nil {
		return Requisition{}, err
	}
	return updated, nil
}

// Get returns a requisition snapshot with its items.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (Requisition, []RequisitionItem, error) {
	req, items, err := s.repo.GetRequisition(ctx, id)
	if err != nil {
		return Requisition{}, nil, err
	}
	if err := ensureOwner(actor, req); err != nil {
		return Requisition{}, nil, err
	}
	return req, items, nil
}

// List returns requisition snapshots. Requesters only see their own.
func (s *Service) List(ctx context.Context, actor shared.Actor, filters ListFilters) ([]Requisition, int, error) {
	if !actor.Role.Elevated() {
		filters.Requester = actor.ID
	}
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	return s.repo.ListRequisitions(ctx, filters)
}

func (s *Service) resolveCatalogPrices(ctx context.Context, supplierID int64, items []ItemInput) ([]ItemInput, error) {
	resolved := make([]ItemInput, len(items))
	copy(resolved, items)
	for i, it := range resolved {
		if it.SKU == "" || !it.UnitPrice.IsZero() {
			continue
		}
		if s.catalog == nil {
			continue
		}
		price, err := s.catalog.UnitPrice(ctx, supplierID, it.SKU)
		if err != nil {
			return nil, fmt.Errorf("catalog price for %s: %w", it.SKU, err)
		}
		resolved[i].UnitPrice = price
	}
	return resolved, nil
}

func validateStoredItems(items []RequisitionItem) error {
	inputs := make([]ItemInput, 0, len(items))
	for _, it := range items {
		inputs = append(inputs, ItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
		})
	}
	return ValidateItems(inputs)
}

func (s *Service) publish(ctx context.Context, evt DocumentEvent) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, evt)
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "procurement", EntityID: fmt.Sprintf("%d", entityID), Meta: meta, At: time.Now()}); err != nil && s.logger != nil {
		s.logger.Warn("record audit", slog.Any("error", err))
	}
}
