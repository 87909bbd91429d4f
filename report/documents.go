package report

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quarry-erp/quarry-erp/internal/dispatch"
	"github.com/quarry-erp/quarry-erp/internal/platform/httpx"
	"github.com/quarry-erp/quarry-erp/internal/procurement"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// DocumentSource builds the HTML for downloadable procurement documents.
type DocumentSource interface {
	RequisitionDocument(ctx context.Context, id int64) (dispatch.Document, error)
	PurchaseOrderDocument(ctx context.Context, id int64) (dispatch.Document, error)
}

// DocumentAccess authorizes document reads for the requesting actor. The
// report surface applies the same ownership rules as the JSON surface.
type DocumentAccess interface {
	Get(ctx context.Context, actor shared.Actor, id int64) (procurement.Requisition, []procurement.RequisitionItem, error)
	GetPurchaseOrder(ctx context.Context, actor shared.Actor, id int64) (procurement.PurchaseOrder, []procurement.PurchaseOrderItem, error)
}

// PDFRenderer converts HTML to PDF and reports renderer health.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
	Ping(ctx context.Context) error
}

// Handler manages report endpoints.
type Handler struct {
	renderer PDFRenderer
	source   DocumentSource
	access   DocumentAccess
	logger   *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(renderer PDFRenderer, source DocumentSource, access DocumentAccess, logger *slog.Logger) *Handler {
	return &Handler{renderer: renderer, source: source, access: access, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/requisitions/{id}.pdf", h.requisitionPDF)
	r.Get("/purchase-orders/{id}.pdf", h.purchaseOrderPDF)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) requisitionPDF(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, func(ctx context.Context, actor shared.Actor, id int64) (dispatch.Document, error) {
		if _, _, err := h.access.Get(ctx, actor, id); err != nil {
			return dispatch.Document{}, err
		}
		return h.source.RequisitionDocument(ctx, id)
	})
}

func (h *Handler) purchaseOrderPDF(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, func(ctx context.Context, actor shared.Actor, id int64) (dispatch.Document, error) {
		if _, _, err := h.access.GetPurchaseOrder(ctx, actor, id); err != nil {
			return dispatch.Document{}, err
		}
		return h.source.PurchaseOrderDocument(ctx, id)
	})
}

func (h *Handler) servePDF(w http.ResponseWriter, r *http.Request, build func(context.Context, shared.Actor, int64) (dispatch.Document, error)) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ValidationErrors{{Field: "id", Message: "must be a positive integer"}})
		return
	}
	doc, err := build(r.Context(), actor, id)
	if err != nil {
		h.logger.Warn("build document", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.renderer.RenderHTML(r.Context(), doc.HTML)
	if err != nil {
		h.logger.Error("render document pdf", slog.String("filename", doc.Filename), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+doc.Filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
