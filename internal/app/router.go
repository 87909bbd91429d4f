package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/quarry-erp/quarry-erp/internal/auth"
	"github.com/quarry-erp/quarry-erp/internal/masterdata/projects"
	"github.com/quarry-erp/quarry-erp/internal/masterdata/suppliers"
	"github.com/quarry-erp/quarry-erp/internal/observability"
	"github.com/quarry-erp/quarry-erp/internal/procurement"
	"github.com/quarry-erp/quarry-erp/internal/shared"
	"github.com/quarry-erp/quarry-erp/jobs"
	"github.com/quarry-erp/quarry-erp/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler        *auth.Handler
	ProcurementHandler *procurement.Handler
	ProjectsHandler    *projects.Handler
	SuppliersHandler   *suppliers.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Quarry defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireActor)
		r.Route("/procurement", params.ProcurementHandler.MountRoutes)
		r.Route("/projects", params.ProjectsHandler.MountRoutes)
		r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		if params.ReportHandler != nil {
			r.Route("/report", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
