package handler

import (
	"net/http"

	"quickshop/internal/notify"
)

// serviceVersion is reported by the discovery endpoint.
const serviceVersion = "1.0.0"

// descriptor is the service discovery document. Embeds read it to learn
// the minimum supported script version and the cart add path before
// starting a session.
type descriptor struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	MinEmbedVersion string `json:"min_embed_version"`
	CartAddPath     string `json:"cart_add_path"`
	NotifyChannel   string `json:"notify_channel"`
}

// handleWellKnown returns the service descriptor.
// GET /.well-known/quickshop
func (h *Handler) handleWellKnown(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, descriptor{
		Name:            "quickshop",
		Version:         serviceVersion,
		MinEmbedVersion: h.config.MinEmbedVersion,
		CartAddPath:     h.config.Shop.CartAddPath,
		NotifyChannel:   notify.ChannelCartUpdated,
	})
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
