package handler

import (
	"log/slog"
	"net/http"

	"quickshop/internal/caps"
	"quickshop/internal/config"
	"quickshop/internal/model"
	"quickshop/internal/storefront"
	"quickshop/internal/view"
)

// === Request/Response Types ===

// createSessionRequest creates a popup session. PagePayloads carries the
// product JSON documents the embed found on the page, keyed by document
// location.
type createSessionRequest struct {
	PagePayloads map[string]string `json:"page_payloads,omitempty"`
	Source       string            `json:"source,omitempty"`
}

type createSessionResponse struct {
	SessionID string            `json:"session_id"`
	Status    model.PopupStatus `json:"status"`
	Ops       []view.Op         `json:"ops"`
}

type openRequest struct {
	ProductID int64 `json:"product_id"`
}

type selectRequest struct {
	Option string `json:"option"`
	Value  string `json:"value"`
}

// opsResponse is the shared response shape for popup operations: the
// popup status after the operation plus the view ops recorded since the
// last response, in emit order.
type opsResponse struct {
	Status model.PopupStatus `json:"status"`
	Ops    []view.Op         `json:"ops"`
}

type addToCartResponse struct {
	Status  model.PopupStatus `json:"status"`
	Ops     []view.Op         `json:"ops"`
	Message model.Message     `json:"message"`
	Added   []addedItem       `json:"added"`
}

// addedItem is one cart line the pipeline added.
type addedItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
	Bundled   bool  `json:"bundled"`
}

// === Session Handlers ===

// handleCreateSession creates a new popup session.
// POST /sessions
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	sourceType := req.Source
	if sourceType == "" {
		sourceType = h.config.SourceType
	}

	var source storefront.Source
	switch sourceType {
	case config.SourcePage:
		source = storefront.NewPageSource(req.PagePayloads)
	case config.SourceStorefront:
		if h.remote == nil {
			h.writeError(w, model.NewValidationError("source", "storefront source is not configured"))
			return
		}
		source = h.remote
	default:
		h.writeError(w, model.NewValidationError("source", "must be page or storefront"))
		return
	}

	resolved := caps.Resolve(caps.FromContext(ctx), h.config.CapsConfig())
	resolved.View = view.NewRecorder()
	sess := h.manager.Create(resolved, source)

	h.logger.InfoContext(ctx, "session created",
		slog.String("session_id", sess.ID),
		slog.String("source", sourceType),
		slog.Int("page_payloads", len(req.PagePayloads)),
	)

	h.writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: sess.ID,
		Status:    sess.Info().Status,
		Ops:       drainOps(sess),
	})
}

// handleGetSession reports session state.
// GET /sessions/{id}
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sess.Info())
}

// handleDeleteSession drops a session.
// DELETE /sessions/{id}
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.manager.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleOpenPopup opens the popup on a product.
// POST /sessions/{id}/open
//
// A payload failure is not an HTTP error: the embed gets 200 with the
// popup still closed and no ops, and simply does not show anything.
func (h *Handler) handleOpenPopup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req openRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "opening popup",
		slog.String("session_id", sess.ID),
		slog.Int64("product_id", req.ProductID),
	)

	if err := sess.Open(ctx, req.ProductID); err != nil {
		// Open already logged the payload problem.
		h.writeJSON(w, http.StatusOK, opsResponse{
			Status: sess.Info().Status,
			Ops:    []view.Op{},
		})
		return
	}

	h.writeJSON(w, http.StatusOK, opsResponse{
		Status: sess.Info().Status,
		Ops:    drainOps(sess),
	})
}

// handleSelectOption records an option choice.
// POST /sessions/{id}/select
func (h *Handler) handleSelectOption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Option == "" {
		h.writeError(w, model.NewValidationError("option", "option name required"))
		return
	}

	h.logger.InfoContext(ctx, "selecting option",
		slog.String("session_id", sess.ID),
		slog.String("option", req.Option),
		slog.String("value", req.Value),
	)

	if err := sess.Select(ctx, req.Option, req.Value); err != nil {
		h.writeError(w, mapPopupError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, opsResponse{
		Status: sess.Info().Status,
		Ops:    drainOps(sess),
	})
}

// handleAddToCart runs the add-to-cart pipeline.
// POST /sessions/{id}/add-to-cart
func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "adding to cart",
		slog.String("session_id", sess.ID),
	)

	out, err := sess.AddToCart(ctx)
	if err != nil {
		h.writeError(w, mapPopupError(err))
		return
	}

	added := make([]addedItem, 0, 2)
	if out.Primary != nil {
		added = append(added, addedItem{VariantID: out.Primary.ID, Quantity: 1})
	}
	if out.Bundled != nil {
		added = append(added, addedItem{VariantID: out.Bundled.ID, Quantity: 1, Bundled: true})
	}

	h.writeJSON(w, http.StatusOK, addToCartResponse{
		Status:  sess.Info().Status,
		Ops:     drainOps(sess),
		Message: out.Message,
		Added:   added,
	})
}

// handleClosePopup dismisses the popup.
// POST /sessions/{id}/close
func (h *Handler) handleClosePopup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	sess.Close(ctx)

	h.writeJSON(w, http.StatusOK, opsResponse{
		Status: sess.Info().Status,
		Ops:    drainOps(sess),
	})
}
