package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/tomoca-dev/Tomo-web/pkg/logger"
	"github.com/tomoca-dev/Tomo-web/pkg/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cartHandler *CartHandler, reg *metrics.Registry, log zerolog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(reg.Middleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", reg.Handler())

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)
		r.Post("/checkout", cartHandler.Checkout)
		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
		r.Put("/items/{product_id}/variant", cartHandler.SetVariant)
		r.Delete("/items/{product_id}", cartHandler.RemoveItem)
	})

	return otelhttp.NewHandler(r, "cart-service")
}
