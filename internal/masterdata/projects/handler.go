package projects

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

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

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

type projectPayload struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Site           string `json:"site"`
	ContractNumber string `json:"contract_number"`
	StartDate      string `json:"start_date"`
	Status         string `json:"status"`
}

func (p projectPayload) toProject() (Project, error) {
	project := Project{
		Code:           p.Code,
		Name:           p.Name,
		Site:           p.Site,
		ContractNumber: p.ContractNumber,
		Status:         Status(p.Status),
	}
	if p.StartDate != "" {
		start, err := time.Parse(time.DateOnly, p.StartDate)
		if err != nil {
			return Project{}, shared.ValidationErrors{{Field: "start_date", Message: "must be YYYY-MM-DD"}}
		}
		project.StartDate = start
	}
	return project, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := mdshared.ListFilters{
		Page:   page,
		Limit:  limit,
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}

	projects, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list projects", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": projects, "total": total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	project, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload projectPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	input, err := payload.toProject()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	project, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var payload projectPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	input, err := payload.toProject()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), id, input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	project, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ValidationErrors{{Field: "id", Message: "must be a positive integer"}})
		return 0, false
	}
	return id, true
}
