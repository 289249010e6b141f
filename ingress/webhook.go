package ingress

import (
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shimmeringbee/cda"
	"github.com/shimmeringbee/cda/model"
	"github.com/shimmeringbee/logwrap"
	"net/http"
)

const maximumEventBody = 1 << 20

type eventBody struct {
	Events []model.ShortEvent `json:"events"`
}

// Webhook accepts pushed events over HTTP and hands them to the router.
type Webhook struct {
	router cda.EventRouter
	logger logwrap.Logger
}

func NewWebhook(router cda.EventRouter, logger logwrap.Logger) *Webhook {
	return &Webhook{router: router, logger: logger}
}

func (h *Webhook) RegisterRoutes(r chi.Router) {
	r.Post("/event", h.handleEvent)
}

// Handler is a standalone router serving only the webhook.
func (h *Webhook) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

func (h *Webhook) handleEvent(w http.ResponseWriter, r *http.Request) {
	var body eventBody

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maximumEventBody)).Decode(&body); err != nil {
		h.logger.LogWarn(r.Context(), "Rejected malformed webhook body.", logwrap.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.LogDebug(r.Context(), "Received webhook events.", logwrap.Datum("Count", len(body.Events)))

	for _, e := range body.Events {
		h.router.Route(r.Context(), e)
	}

	w.WriteHeader(http.StatusOK)
}
