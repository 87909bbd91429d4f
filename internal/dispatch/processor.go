package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quarry-erp/quarry-erp/internal/jobs"
	"github.com/quarry-erp/quarry-erp/internal/procurement"
	"github.com/quarry-erp/quarry-erp/internal/shared"
	"github.com/quarry-erp/quarry-erp/jobs"
)

// Directory resolves who receives a document.
type Directory interface {
	EmailsByRole(ctx context.Context, role shared.Role) ([]string, error)
	EmailByID(ctx context.Context, userID int64) (string, error)
	SupplierEmail(ctx context.Context, supplierID int64) (string, error)
}

// Renderer converts document HTML to a PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Processor executes queued dispatch tasks on the worker. A returned error
// hands the task back to Asynq for a delayed retry; only malformed payloads
// and unknown event kinds are dropped.
type Processor struct {
	store     DocumentStore
	builder   *Builder
	directory Directory
	renderer  Renderer
	notifier  Notifier
	metrics   *jobmetrics.Metrics
	logger    *slog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(store DocumentStore, directory Directory, renderer Renderer, notifier Notifier, metrics *jobmetrics.Metrics, logger *slog.Logger) *Processor {
	return &Processor{
		store:     store,
		builder:   NewBuilder(store),
		directory: directory,
		renderer:  renderer,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleTask processes one queued dispatch:document task.
func (p *Processor) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.DispatchDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		p.logger.Error("dispatch payload unreadable", slog.Any("error", err))
		return asynq.SkipRetry
	}

	tracker := p.metrics.Track(jobs.TaskTypeDispatchDocument)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	doc, recipients, err := p.prepare(ctx, payload)
	if err != nil {
		resultErr = err
		p.logger.Error("prepare dispatch",
			slog.String("kind", payload.Kind),
			slog.Int64("requisition_id", payload.RequisitionID),
			slog.Any("error", err),
		)
		return resultErr
	}
	if len(recipients) == 0 {
		p.logger.Warn("dispatch has no recipients, dropping",
			slog.String("kind", payload.Kind),
			slog.Int64("requisition_id", payload.RequisitionID),
		)
		return asynq.SkipRetry
	}

	pdf, err := p.renderer.RenderHTML(ctx, doc.HTML)
	if err != nil {
		resultErr = fmt.Errorf("render %s: %w", doc.Filename, err)
		return resultErr
	}

	if err := p.notifier.Send(ctx, Message{
		To:         recipients,
		Subject:    doc.Subject,
		HTML:       doc.HTML,
		Attachment: pdf,
		Filename:   doc.Filename,
	}); err != nil {
		resultErr = fmt.Errorf("%w: send %s: %v", shared.ErrDispatch, doc.Subject, err)
		return resultErr
	}

	p.metrics.AddDispatch(payload.Kind)
	p.logger.Info("document dispatched",
		slog.String("kind", payload.Kind),
		slog.String("subject", doc.Subject),
		slog.Int("recipients", len(recipients)),
	)
	return nil
}

func (p *Processor) prepare(ctx context.Context, payload jobs.DispatchDocumentPayload) (Document, []string, error) {
	switch payload.Kind {
	case procurement.EventRequisitionSubmitted:
		doc, err := p.builder.RequisitionDocument(ctx, payload.RequisitionID)
		if err != nil {
			return Document{}, nil, err
		}
		to, err := p.directory.EmailsByRole(ctx, shared.RoleFinance)
		return doc, to, err

	case procurement.EventRequisitionApproved, procurement.EventRequisitionRejected:
		req, _, err := p.store.GetRequisition(ctx, payload.RequisitionID)
		if err != nil {
			return Document{}, nil, err
		}
		doc, err := p.builder.RequisitionDocument(ctx, payload.RequisitionID)
		if err != nil {
			return Document{}, nil, err
		}
		email, err := p.directory.EmailByID(ctx, req.RequesterID)
		if err != nil {
			return Document{}, nil, err
		}
		return doc, []string{email}, nil

	case procurement.EventPurchaseOrderIssued:
		po, _, err := p.store.GetPurchaseOrder(ctx, payload.POID)
		if err != nil {
			return Document{}, nil, err
		}
		doc, err := p.builder.PurchaseOrderDocument(ctx, payload.POID)
		if err != nil {
			return Document{}, nil, err
		}
		email, err := p.directory.SupplierEmail(ctx, po.SupplierID)
		if err != nil {
			return Document{}, nil, err
		}
		return doc, []string{email}, nil
	}
	return Document{}, nil, fmt.Errorf("unknown event kind %q: %w", payload.Kind, asynq.SkipRetry)
}
