package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velmora/retail-admin-backend/api/controllers"
	"github.com/velmora/retail-admin-backend/api/middleware"
	"github.com/velmora/retail-admin-backend/internal/pricing"
	"github.com/velmora/retail-admin-backend/internal/promotions"
	"github.com/velmora/retail-admin-backend/internal/snapshot"
	"github.com/velmora/retail-admin-backend/pkg/config"
	"github.com/velmora/retail-admin-backend/pkg/db"
	"github.com/velmora/retail-admin-backend/pkg/logger"
	"github.com/velmora/retail-admin-backend/pkg/metrics"
	"github.com/velmora/retail-admin-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pricingService pricing.Service,
	promotionService promotions.Service,
	snapshotProvider *snapshot.Provider,
	engineMetrics *metrics.EngineMetrics,
	metricsGatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	mutationPolicy := middleware.NewMutationRateLimitPolicy(
		"catalog_mutation",
		cfg.RateLimit.MutationWindow,
		cfg.RateLimit.MutationIPLimit,
	)
	throttled := middleware.MutationRateLimit(mutationPolicy, nil, logg)
	if redisClient != nil {
		throttled = middleware.MutationRateLimit(mutationPolicy, redisClient, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/price-headers", func(r chi.Router) {
			r.With(throttled).Post("/", controllers.CreatePriceHeader(pricingService, logg))
			r.Get("/{headerId}", controllers.GetPriceHeader(pricingService, logg))
			r.With(throttled).Post("/{headerId}/prices", controllers.InsertPrice(pricingService, logg))
			r.With(throttled).Post("/{headerId}/prices/bulk", controllers.BulkInsertPrices(pricingService, logg))
		})
		r.Route("/prices", func(r chi.Router) {
			r.Get("/resolve", controllers.ResolvePrice(pricingService, logg))
			r.With(throttled).Post("/{priceId}/deactivate", controllers.DeactivatePrice(pricingService, logg))
		})

		r.Route("/promotion-headers", func(r chi.Router) {
			r.With(throttled).Post("/", controllers.CreatePromotionHeader(promotionService, logg))
			r.Get("/{headerId}", controllers.GetPromotionHeader(promotionService, logg))
			r.With(throttled).Post("/{headerId}/lines", controllers.InsertPromotionLine(promotionService, logg))
			r.With(throttled).Post("/{headerId}/deactivate", controllers.DeactivatePromotionHeader(promotionService, logg))
		})
		r.Route("/promotion-lines", func(r chi.Router) {
			r.Get("/resolve", controllers.ResolvePromotionLines(promotionService, logg))
			r.With(throttled).Post("/{lineId}/detail", controllers.InsertPromotionDetail(promotionService, logg))
			r.With(throttled).Post("/{lineId}/deactivate", controllers.DeactivatePromotionLine(promotionService, logg))
		})
		r.Get("/products/{productId}/promotions", controllers.ResolveProductPromotions(promotionService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluate", controllers.Evaluate(snapshotProvider, engineMetrics, logg))
	})

	return r
}
