// Package http serves the Telegram webhook endpoint.
package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/tomoca-dev/Tomo-web/pkg/logger"
	"github.com/tomoca-dev/Tomo-web/pkg/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxUpdateSize = 1 << 20

// UpdateHandler consumes one decoded Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

type WebhookHandler struct {
	updates UpdateHandler
	secret  []byte
}

func NewWebhookHandler(updates UpdateHandler, secret string) *WebhookHandler {
	return &WebhookHandler{updates: updates, secret: []byte(secret)}
}

// ServeHTTP answers 200 once the update has been handled. Telegram retries
// anything else, so handler failures never surface as error statuses.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	secret := []byte(chi.URLParam(r, "secret"))
	if len(h.secret) == 0 || subtle.ConstantTimeCompare(secret, h.secret) != 1 {
		http.NotFound(w, r)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.FromContext(r.Context()).Warn().Err(err).Msg("invalid update payload")
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	// Finish the conversation turn even if Telegram drops the connection.
	h.updates.HandleUpdate(context.WithoutCancel(r.Context()), update)

	w.WriteHeader(http.StatusOK)
}

func NewRouter(webhook *WebhookHandler, reg *metrics.Registry, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(reg.Middleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", reg.Handler())
	r.With(middleware.RequestSize(maxUpdateSize)).Post("/webhook/{secret}", webhook.ServeHTTP)

	return otelhttp.NewHandler(r, "telegram-bot")
}
