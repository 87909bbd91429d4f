package suppliers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	mdshared "github.com/quarry-erp/quarry-erp/internal/masterdata/shared"
	"github.com/quarry-erp/quarry-erp/internal/platform/httpx"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers supplier routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Get("/{id}/catalog", h.catalog)
	r.Put("/{id}/catalog", h.putCatalogItem)
}

type supplierPayload struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	IsActive *bool  `json:"is_active"`
}

type catalogItemPayload struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	UnitPrice   string `json:"unit_price"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := mdshared.ListFilters{
		Page:   page,
		Limit:  limit,
		Search: r.URL.Query().Get("search"),
	}

	suppliers, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": suppliers, "total": total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload supplierPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	supplier, err := h.service.Create(r.Context(), Supplier{
		Code:    payload.Code,
		Name:    payload.Name,
		Address: payload.Address,
		Email:   payload.Email,
		Phone:   payload.Phone,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var payload supplierPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	supplier := Supplier{
		Code:     payload.Code,
		Name:     payload.Name,
		Address:  payload.Address,
		Email:    payload.Email,
		Phone:    payload.Phone,
		IsActive: true,
	}
	if payload.IsActive != nil {
		supplier.IsActive = *payload.IsActive
	}
	if err := h.service.Update(r.Context(), id, supplier); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	items, err := h.service.Catalog(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) putCatalogItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var payload catalogItemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	price, err := decimal.NewFromString(payload.UnitPrice)
	if err != nil {
		httpx.RespondError(w, shared.ValidationErrors{{Field: "unit_price", Message: "must be a decimal number"}})
		return
	}
	item, err := h.service.PutCatalogItem(r.Context(), CatalogItem{
		SupplierID:  id,
		SKU:         payload.SKU,
		Description: payload.Description,
		Unit:        payload.Unit,
		UnitPrice:   price,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ValidationErrors{{Field: "id", Message: "must be a positive integer"}})
		return 0, false
	}
	return id, true
}
