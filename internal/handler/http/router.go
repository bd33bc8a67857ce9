package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Palak111111/Scrapify-server/internal/service"
	"github.com/Palak111111/Scrapify-server/pkg/health"
	"github.com/Palak111111/Scrapify-server/pkg/middleware"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	ServiceName    string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	Gatherer       prometheus.Gatherer
	HTTPMetrics    *middleware.HTTPMetrics
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	productService *service.ProductService,
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.AccessLog(logger))
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware)
	}
	r.Use(middleware.CORS(cfg.CORS))

	// Operational endpoints
	r.Mount("/health", healthHandler.Routes())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	productHandler := NewProductHandler(productService, logger, cfg.MaxBodyBytes)
	reviewHandler := NewReviewHandler(reviewService, logger, cfg.MaxBodyBytes)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(chimw.Compress(5, "application/json"))
		if cfg.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
		}

		r.Get("/", productHandler.ListProducts)
		r.Post("/", productHandler.CreateProduct)
		r.Put("/", productHandler.UpdateProduct)
		r.Post("/bulk", productHandler.CreateProducts)

		r.Get("/name/{name}", productHandler.GetProductsByName)
		r.Delete("/name/{name}", productHandler.DeleteProductsByName)
		r.Get("/category/{category}", productHandler.GetProductsByCategory)
		r.Get("/price/{price}", productHandler.GetProductsByPrice)

		r.Post("/rating", reviewHandler.RateProduct)
		r.Post("/review", reviewHandler.ReviewProduct)

		r.Get("/{id}", productHandler.GetProduct)
		r.Put("/{id}", productHandler.UpdateProduct)
		r.Delete("/{id}", productHandler.DeleteProduct)
	})

	return r
}
