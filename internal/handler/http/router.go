package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nguyenvotandat/runway-backend/pkg/health"
	"github.com/nguyenvotandat/runway-backend/pkg/middleware"
)

// RouterConfig bundles the dependencies of the HTTP router.
type RouterConfig struct {
	ServiceName string
	Logger      *slog.Logger
	Campaigns   *CampaignHandler
	Health      *health.Handler
}

// NewRouter assembles the chi router with the full middleware chain and all
// campaign and voucher routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(CORS)

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", cfg.Campaigns.Create)
			r.Get("/", cfg.Campaigns.List)
			r.Get("/code/{code}", cfg.Campaigns.GetByCode)
			r.Get("/{id}", cfg.Campaigns.Get)
			r.Put("/{id}", cfg.Campaigns.Update)
			r.Delete("/{id}", cfg.Campaigns.Delete)
			r.Get("/{id}/stats", cfg.Campaigns.Stats)
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.Post("/validate", cfg.Campaigns.ValidateVoucher)
			r.Post("/redeem", cfg.Campaigns.RedeemVoucher)
			r.Post("/auto-apply", cfg.Campaigns.AutoApply)
		})
	})

	return r
}
