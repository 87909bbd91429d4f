package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quarry-erp/quarry-erp/internal/platform/httpx"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

// Handler manages procurement endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers procurement routes. The surrounding router applies the
// session middleware, so every handler can expect an actor in context.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/requisitions", h.createRequisition)
	r.Get("/requisitions", h.listRequisitions)
	r.Get("/requisitions/{id}", h.getRequisition)
	r.Put("/requisitions/{id}", h.editRequisition)
	r.Post("/requisitions/{id}/submit", h.submitRequisition)
	r.Post("/requisitions/{id}/approve", h.approveRequisition)
	r.Post("/requisitions/{id}/reject", h.rejectRequisition)
	r.Post("/requisitions/{id}/cancel", h.cancelRequisition)
	r.Post("/requisitions/{id}/convert", h.convertRequisition)
	r.Get("/purchase-orders", h.listPurchaseOrders)
	r.Get("/purchase-orders/{id}", h.getPurchaseOrder)
	r.Post("/purchase-orders/{id}/fulfil", h.fulfilPurchaseOrder)
	r.Post("/purchase-orders/{id}/cancel", h.cancelPurchaseOrder)
}

func (h *Handler) createRequisition(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	var payload headerPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.RespondError(w, toFieldErrors(err))
		return
	}
	header, err := payload.toHeader()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.Create(r.Context(), actor, header)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRequisitionResponse(req, nil))
}

func (h *Handler) editRequisition(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var payload editPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(payload.headerPayload); err != nil {
		httpx.RespondError(w, toFieldErrors(err))
		return
	}
	header, err := payload.toHeader()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := toItemInputs(payload.Items)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.Edit(r.Context(), actor, id, header, items)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequisitionResponse(req, nil))
}

func (h *Handler) submitRequisition(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor shared.Actor, id int64) (Requisition, error) {
		return h.service.Submit(r.Context(), actor, id)
	})
}

func (h *Handler) approveRequisition(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor shared.Actor, id int64) (Requisition, error) {
		return h.service.Approve(r.Context(), actor, id)
	})
}

func (h *Handler) rejectRequisition(w http.ResponseWriter, r *http.Request) {
	reason, ok := h.decodeReason(w, r)
	if !ok {
		return
	}
	h.transition(w, r, func(actor shared.Actor, id int64) (Requisition, error) {
		return h.service.Reject(r.Context(), actor, id, reason)
	})
}

func (h *Handler) cancelRequisition(w http.ResponseWriter, r *http.Request) {
	reason, ok := h.decodeReason(w, r)
	if !ok {
		return
	}
	h.transition(w, r, func(actor shared.Actor, id int64) (Requisition, error) {
		return h.service.Cancel(r.Context(), actor, id, reason)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(shared.Actor, int64) (Requisition, error)) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := fn(actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequisitionResponse(req, nil))
}

func (h *Handler) convertRequisition(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, items, err := h.service.Convert(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po, items))
}

func (h *Handler) getRequisition(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, items, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequisitionResponse(req, items))
}

func (h *Handler) listRequisitions(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	reqs, total, err := h.service.List(r.Context(), actor, queryFilters(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]requisitionResponse, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, toRequisitionResponse(req, nil))
	}
	httpx.JSON(w, http.StatusOK, listResponse[requisitionResponse]{Items: items, Total: total})
}

func (h *Handler) getPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, items, err := h.service.GetPurchaseOrder(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po, items))
}

func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	pos, total, err := h.service.ListPurchaseOrders(r.Context(), actor, queryFilters(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]poResponse, 0, len(pos))
	for _, po := range pos {
		items = append(items, toPOResponse(po, nil))
	}
	httpx.JSON(w, http.StatusOK, listResponse[poResponse]{Items: items, Total: total})
}

func (h *Handler) fulfilPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.progress(w, r, h.service.MarkFulfilled)
}

func (h *Handler) cancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.progress(w, r, h.service.CancelPurchaseOrder)
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor shared.Actor, id int64) error) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := fn(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, items, err := h.service.GetPurchaseOrder(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po, items))
}

func (h *Handler) decodeReason(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload reasonPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return "", false
	}
	if strings.TrimSpace(payload.Reason) == "" {
		httpx.RespondError(w, shared.ValidationErrors{{Field: "reason", Message: "required"}})
		return "", false
	}
	return payload.Reason, true
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ValidationErrors{{Field: "id", Message: "must be a positive integer"}}
	}
	return id, nil
}

func queryFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	projectID, _ := strconv.ParseInt(q.Get("project_id"), 10, 64)
	supplierID, _ := strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	return ListFilters{
		Status:     q.Get("status"),
		ProjectID:  projectID,
		SupplierID: supplierID,
		Search:     q.Get("search"),
		Limit:      limit,
		Offset:     offset,
	}
}

func toFieldErrors(err error) error {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return shared.ValidationErrors{{Field: "body", Message: err.Error()}}
	}
	out := make(shared.ValidationErrors, 0, len(invalid))
	for _, fe := range invalid {
		out = append(out, shared.FieldError{Field: strings.ToLower(fe.Field()), Message: "failed " + fe.Tag() + " validation"})
	}
	return out
}
