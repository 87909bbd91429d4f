package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/quarry-erp/quarry-erp/internal/procurement"
	"github.com/quarry-erp/quarry-erp/jobs"
)

// Publisher forwards committed lifecycle events onto the background queue.
// Publish never blocks a request for long and never propagates a failure: a
// Redis outage costs the notification, not the transition that triggered it.
type Publisher struct {
	client  *jobs.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher constructs a Publisher. timeout bounds the enqueue round trip.
func NewPublisher(client *jobs.Client, timeout time.Duration, logger *slog.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{client: client, timeout: timeout, logger: logger}
}

// Publish implements procurement.EventPort.
func (p *Publisher) Publish(ctx context.Context, evt procurement.DocumentEvent) {
	// The event survives the request that produced it; only the deadline is
	// bounded, not tied to the caller's cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	_, err := p.client.EnqueueDispatchDocument(ctx, jobs.DispatchDocumentPayload{
		Kind:          evt.Kind,
		RequisitionID: evt.RequisitionID,
		POID:          evt.POID,
		ActorID:       evt.ActorID,
	})
	if err != nil {
		p.logger.Error("enqueue dispatch document",
			slog.String("kind", evt.Kind),
			slog.Int64("requisition_id", evt.RequisitionID),
			slog.Int64("po_id", evt.POID),
			slog.Any("error", err),
		)
		return
	}
	p.logger.Info("dispatch queued",
		slog.String("kind", evt.Kind),
		slog.Int64("requisition_id", evt.RequisitionID),
	)
}
