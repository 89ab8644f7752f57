// Package handler provides the HTTP and MCP transports for the
// quickshop service.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quickshop/internal/config"
	"quickshop/internal/model"
	"quickshop/internal/popup"
	"quickshop/internal/storefront"
	"quickshop/internal/view"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	manager *popup.Manager
	remote  storefront.Source
	config  *config.Config
	logger  *slog.Logger
}

// New creates a new Handler. remote is the live storefront source for
// source=storefront sessions; nil disables that source type.
func New(manager *popup.Manager, remote storefront.Source, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		remote:  remote,
		config:  cfg,
		logger:  logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Discovery endpoint
	mux.HandleFunc("GET /.well-known/quickshop", h.handleWellKnown)

	// REST transport - popup session operations
	mux.HandleFunc("POST /sessions", h.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", h.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", h.handleDeleteSession)
	mux.HandleFunc("POST /sessions/{id}/open", h.handleOpenPopup)
	mux.HandleFunc("POST /sessions/{id}/select", h.handleSelectOption)
	mux.HandleFunc("POST /sessions/{id}/add-to-cart", h.handleAddToCart)
	mux.HandleFunc("POST /sessions/{id}/close", h.handleClosePopup)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	if errors.As(err, &apiErr) {
		// Found APIError in error chain - use it
	} else {
		// Wrap unexpected errors
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	// Limit request body size to prevent DoS
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// mapPopupError translates session state errors into API errors.
// Payload errors never reach this: a failed open responds 200 with the
// popup still closed.
func mapPopupError(err error) *model.APIError {
	switch {
	case errors.Is(err, model.ErrPopupClosed):
		return &model.APIError{
			Code:       "POPUP_CLOSED",
			Message:    "popup is closed, open a product first",
			StatusCode: http.StatusConflict,
			Err:        err,
		}
	case errors.Is(err, model.ErrUnknownOption):
		return &model.APIError{
			Code:       "UNKNOWN_OPTION",
			Message:    err.Error(),
			StatusCode: http.StatusBadRequest,
			Err:        err,
		}
	default:
		return model.NewInternalError(err)
	}
}

// drainOps empties the session's op recorder. Sessions created over
// HTTP always carry a Recorder; the nil branch covers views wired by
// other transports.
func drainOps(sess *popup.Session) []view.Op {
	rec, ok := sess.View().(*view.Recorder)
	if !ok {
		return []view.Op{}
	}
	ops := rec.Drain()
	if ops == nil {
		return []view.Op{}
	}
	return ops
}
