package caps

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// contextKey is a private type for context keys in this package.
type contextKey int

// declaredKey stores the parsed embed declaration in request contexts.
const declaredKey contextKey = iota

// Middleware creates HTTP middleware that performs the embed handshake.
// Parses the Quickshop-Embed header and gates the declared version.
// The header is optional: requests without one run on defaults. A
// malformed header or an embed older than minVersion is rejected with
// 400 Bad Request before any handler runs.
func Middleware(minVersion string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Discovery and health endpoints work without a handshake,
			// and MCP clients declare capabilities per tool call.
			if isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(Header)
			declared, err := Parse(header)
			if err != nil {
				logger.Warn("invalid embed header",
					slog.String("header", header),
					slog.String("error", err.Error()))
				writeHandshakeError(w, http.StatusBadRequest, "embed_header_invalid",
					"Invalid "+Header+" header: "+err.Error())
				return
			}

			if declared != nil {
				if err := ValidateVersion(declared.Version, minVersion); err != nil {
					var verErr *VersionError
					if errors.As(err, &verErr) {
						writeHandshakeError(w, http.StatusBadRequest, verErr.Code, verErr.Message)
					} else {
						writeHandshakeError(w, http.StatusBadRequest, EmbedVersionUnsupported, err.Error())
					}
					return
				}
			}

			reqCtx := context.WithValue(r.Context(), declaredKey, declared)
			next.ServeHTTP(w, r.WithContext(reqCtx))
		})
	}
}

// isExemptPath returns true for paths that skip the embed handshake.
func isExemptPath(path string) bool {
	switch {
	case path == "/.well-known/quickshop":
		return true
	case path == "/health" || path == "/healthz":
		return true
	case path == "/mcp":
		return true
	default:
		return false
	}
}

// writeHandshakeError writes the standard error envelope.
func writeHandshakeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}

// FromContext retrieves the embed declaration stored by Middleware.
// Nil means the request carried no header; defaults apply.
func FromContext(ctx context.Context) *Declared {
	v := ctx.Value(declaredKey)
	if v == nil {
		return nil
	}
	return v.(*Declared)
}
