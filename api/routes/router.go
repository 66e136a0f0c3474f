package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rinaldiihsan/sixstreet-sub001/api/controllers"
	"github.com/rinaldiihsan/sixstreet-sub001/api/middleware"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/catalog"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/checkout"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/notify"
	"github.com/rinaldiihsan/sixstreet-sub001/internal/regions"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/config"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/logger"
	"github.com/rinaldiihsan/sixstreet-sub001/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	catalogService catalog.Service,
	regionsService regions.Service,
	quoter controllers.ShippingQuoter,
	checkoutService checkout.Service,
	notifier notify.Notifier,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	readiness := map[string]controllers.Pinger{}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}
	if dbP != nil {
		readiness["db"] = dbP
	}

	shippingLimit := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		policy := middleware.NewRateLimitPolicy(
			"shipping",
			cfg.RateLimit.ShippingWindow,
			cfg.RateLimit.ShippingIPLimit,
			cfg.RateLimit.ShippingSessionLimit,
		)
		// Load already rejected malformed entries.
		if proxies, err := cfg.RateLimit.TrustedProxyNets(); err == nil {
			policy = policy.TrustingProxies(proxies)
		}
		shippingLimit = middleware.RateLimit(policy, redisClient, logg)
	}

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.UpstreamTokens(logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(catalogService, logg))
			r.Get("/groups/{groupId}", controllers.ProductGroupDetail(catalogService, logg))
		})

		r.Route("/regions", func(r chi.Router) {
			r.Get("/provinces", controllers.RegionProvinces(regionsService, logg))
			r.Get("/provinces/{provinceId}/cities", controllers.RegionCities(regionsService, logg))
			r.Get("/cities/{cityId}/subdistricts", controllers.RegionSubdistricts(regionsService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.CheckoutSession(cfg.Checkout, logg))

			r.With(shippingLimit).Get("/shipping/quotes", controllers.ShippingQuotes(quoter, logg))

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutGet(checkoutService, logg))
				r.Delete("/", controllers.CheckoutClear(checkoutService, logg))
				r.Put("/address", controllers.CheckoutSetAddress(checkoutService, logg))
				r.With(shippingLimit).Post("/shipping", controllers.CheckoutCalculateShipping(checkoutService, logg))
				r.Put("/shipping/selection", controllers.CheckoutSelectShipping(checkoutService, logg))
				r.Get("/notifications", controllers.CheckoutNotifications(notifier, logg))
			})
		})
	})

	return r
}
