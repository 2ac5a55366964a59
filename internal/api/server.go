package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/api/handler"
	mw "github.com/edvin/civicwatch/internal/api/middleware"
	"github.com/edvin/civicwatch/internal/config"
	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/export"
	"github.com/edvin/civicwatch/internal/media"
	"github.com/edvin/civicwatch/internal/notify"
	"github.com/edvin/civicwatch/internal/realtime"
	"github.com/edvin/civicwatch/internal/sop"
)

const submissionBurst = 5

// Check is a named readiness probe.
type Check func(ctx context.Context) error

// Deps are the collaborators the API is built from.
type Deps struct {
	Store    core.Store
	Hub      *realtime.Hub
	Catalog  *sop.Catalog
	Uploader media.Uploader
	Alerts   *notify.Channels
	Checks   map[string]Check
}

type Server struct {
	router      chi.Router
	logger      zerolog.Logger
	cfg         *config.Config
	deps        Deps
	services    *core.Services
	auditLogger *mw.AuditLogger
	submissions *mw.RateLimiter
}

func NewServer(logger zerolog.Logger, cfg *config.Config, deps Deps) *Server {
	services := core.NewServices(deps.Store, core.Options{
		Publisher: deps.Hub,
		Tau:       cfg.DecayTau,
		Catalog:   deps.Catalog,
		Alerts:    deps.Alerts,
		Logger:    logger,
	})

	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		cfg:         cfg,
		deps:        deps,
		services:    services,
		auditLogger: mw.NewAuditLogger(deps.Store, logger),
		submissions: mw.NewRateLimiter(cfg.ReportRatePerMinute, submissionBurst),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth([]byte(s.cfg.JWTSecret)))
		r.Use(s.auditLogger.Middleware)

		reports := handler.NewReport(s.services.Report)
		evidence := handler.NewMedia(s.services.Report, s.deps.Uploader)
		incidents := handler.NewIncident(s.services.Incident)
		dashboard := handler.NewDashboard(s.services.Dashboard)
		exports := handler.NewExport(s.services.Incident, export.CAPOptions{
			Sender:  s.cfg.CAPSender,
			WebBase: s.cfg.PublicBaseURL,
		})
		stream := handler.NewStream(s.deps.Hub, s.cfg.WSOriginPatterns, s.logger)
		sops := handler.NewSOP(s.deps.Catalog)
		search := handler.NewSearch(s.services.Search)

		// Any authenticated role
		r.Get("/reports", reports.List)
		r.Get("/reports/{id}", reports.Get)
		r.Get("/reports/{id}/escalations", reports.Escalations)
		r.Get("/incidents", incidents.List)
		r.Get("/incidents/{id}", incidents.Get)
		r.Get("/incidents/{id}/actions", incidents.Actions)
		r.Get("/incidents/{id}/procedure", incidents.Procedure)
		r.Get("/incidents/{id}/cap", exports.CAP)
		r.Get("/dashboard/heatmap", dashboard.Heatmap)
		r.Get("/dashboard/timeseries", dashboard.TimeSeries)
		r.Get("/export/incidents.csv", exports.CSV)
		r.Get("/export/incidents.geojson", exports.GeoJSON)
		r.Get("/sop", sops.List)
		r.Get("/search", search.Search)
		r.Get("/stream/sse", stream.SSE)
		r.Get("/stream/ws", stream.WebSocket)
		r.With(s.submissions.Middleware).Post("/reports", reports.Create)
		r.With(s.submissions.Middleware).Post("/reports/{id}/media", evidence.Upload)

		// Analyst triage
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(mw.RoleAnalyst))
			r.Get("/dashboard/analyst", dashboard.Analyst)
			r.Get("/departments", reports.Departments)
			r.Post("/reports/import", reports.Import)
			r.Post("/reports/{id}/review", reports.Review)
			r.Post("/reports/{id}/verify", reports.Verify)
			r.Post("/reports/{id}/reject", reports.Reject)
			r.Post("/reports/{id}/escalate", reports.Escalate)
		})

		// Authority actions
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(mw.RoleAuthority))
			r.Get("/dashboard/authority", dashboard.Authority)
			r.Post("/incidents/{id}/actions", incidents.Apply)
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

// Close flushes pending audit entries.
func (s *Server) Close() {
	s.auditLogger.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
