// MCP transport handler for the quickshop service using the official
// MCP Go SDK. Exposes the popup session operations as tools so agent
// runtimes can drive the popup headlessly.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"quickshop/internal/caps"
	"quickshop/internal/config"
	"quickshop/internal/model"
	"quickshop/internal/popup"
	"quickshop/internal/storefront"
	"quickshop/internal/view"
)

// === MCP Tool Input/Output Types ===
// MCP requests carry no Quickshop-Embed header, so start_session takes
// the capability declaration inline. Every other tool addresses the
// session by id.

// EmbedDeclaration mirrors the Quickshop-Embed header fields for MCP
// callers.
type EmbedDeclaration struct {
	Version     string `json:"version,omitempty" jsonschema:"embed script version, semver"`
	MoneyFormat string `json:"money_format,omitempty" jsonschema:"shop money format pattern"`
	Notify      *bool  `json:"notify,omitempty" jsonschema:"whether to publish cart-updated events"`
}

// StartSessionInput is the input schema for the start_session tool.
type StartSessionInput struct {
	Embed        *EmbedDeclaration `json:"embed,omitempty" jsonschema:"host capability declaration"`
	PagePayloads map[string]string `json:"page_payloads,omitempty" jsonschema:"product JSON documents keyed by location"`
	Source       string            `json:"source,omitempty" jsonschema:"payload source: page or storefront"`
}

// StartSessionOutput reports the created session.
type StartSessionOutput struct {
	SessionID string            `json:"session_id"`
	Status    model.PopupStatus `json:"status"`
}

// SessionInput addresses an existing session.
type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID,required"`
}

// OpenPopupInput is the input schema for the open_popup tool.
type OpenPopupInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID,required"`
	ProductID int64  `json:"product_id" jsonschema:"product ID,required"`
}

// SelectOptionInput is the input schema for the select_option tool.
type SelectOptionInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID,required"`
	Option    string `json:"option" jsonschema:"option name,required"`
	Value     string `json:"value" jsonschema:"option value,required"`
}

// PopupOutput is the shared output shape for popup operations: status
// after the operation plus the recorded view ops.
type PopupOutput struct {
	Status model.PopupStatus `json:"status"`
	Ops    []view.Op         `json:"ops"`
}

// AddToCartOutput extends PopupOutput with the pipeline outcome.
type AddToCartOutput struct {
	Status  model.PopupStatus `json:"status"`
	Ops     []view.Op         `json:"ops"`
	Message model.Message     `json:"message"`
	Added   []addedItem       `json:"added"`
}

// NewMCPServer creates an MCP server with popup tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "quickshop",
			Version: serviceVersion,
		},
		&mcp.ServerOptions{
			Instructions: "Quickshop popup sessions. Start a session, open a product, " +
				"select variant options, and add to cart. Responses carry the view " +
				"operations a storefront embed would replay.",
		},
	)

	// Register popup tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_session",
		Description: "Start a popup session. Optionally declare embed capabilities and push page-embedded product JSON documents.",
	}, h.mcpStartSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "open_popup",
		Description: "Open the quick-shop popup on a product. A missing or malformed product payload leaves the popup closed.",
	}, h.mcpOpenPopup)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_option",
		Description: "Select a value for one of the product's options, e.g. Color=Black.",
	}, h.mcpSelectOption)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add the selected variant to the cart. The outcome message reports success or why the add was refused.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "close_popup",
		Description: "Close the popup and clear the selection.",
	}, h.mcpClosePopup)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_popup_state",
		Description: "Get the current session state: popup status, product, selection, price.",
	}, h.mcpGetPopupState)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpStartSession(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input StartSessionInput,
) (*mcp.CallToolResult, *StartSessionOutput, error) {
	var declared *caps.Declared
	if input.Embed != nil {
		if err := caps.ValidateVersion(input.Embed.Version, h.config.MinEmbedVersion); err != nil {
			var verErr *caps.VersionError
			if errors.As(err, &verErr) {
				return nil, nil, fmt.Errorf("%s: %s", verErr.Code, verErr.Message)
			}
			return nil, nil, err
		}
		declared = &caps.Declared{
			Version:     input.Embed.Version,
			MoneyFormat: input.Embed.MoneyFormat,
			Notify:      input.Embed.Notify,
		}
	}

	sourceType := input.Source
	if sourceType == "" {
		sourceType = h.config.SourceType
	}

	var source storefront.Source
	switch sourceType {
	case config.SourcePage:
		source = storefront.NewPageSource(input.PagePayloads)
	case config.SourceStorefront:
		if h.remote == nil {
			return nil, nil, fmt.Errorf("storefront source is not configured")
		}
		source = h.remote
	default:
		return nil, nil, fmt.Errorf("source must be page or storefront")
	}

	resolved := caps.Resolve(declared, h.config.CapsConfig())
	resolved.View = view.NewRecorder()
	sess := h.manager.Create(resolved, source)

	return nil, &StartSessionOutput{
		SessionID: sess.ID,
		Status:    sess.Info().Status,
	}, nil
}

func (h *Handler) mcpOpenPopup(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input OpenPopupInput,
) (*mcp.CallToolResult, *PopupOutput, error) {
	sess, err := h.session(input.SessionID)
	if err != nil {
		return nil, nil, err
	}

	// Payload failures leave the popup closed; the caller reads the
	// status rather than an error, matching the HTTP transport.
	if err := sess.Open(ctx, input.ProductID); err != nil {
		return nil, &PopupOutput{Status: sess.Info().Status, Ops: []view.Op{}}, nil
	}

	return nil, &PopupOutput{
		Status: sess.Info().Status,
		Ops:    drainOps(sess),
	}, nil
}

func (h *Handler) mcpSelectOption(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SelectOptionInput,
) (*mcp.CallToolResult, *PopupOutput, error) {
	sess, err := h.session(input.SessionID)
	if err != nil {
		return nil, nil, err
	}

	if input.Option == "" {
		return nil, nil, fmt.Errorf("option is required")
	}

	if err := sess.Select(ctx, input.Option, input.Value); err != nil {
		return nil, nil, h.mcpError(mapPopupError(err))
	}

	return nil, &PopupOutput{
		Status: sess.Info().Status,
		Ops:    drainOps(sess),
	}, nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, *AddToCartOutput, error) {
	sess, err := h.session(input.SessionID)
	if err != nil {
		return nil, nil, err
	}

	out, err := sess.AddToCart(ctx)
	if err != nil {
		return nil, nil, h.mcpError(mapPopupError(err))
	}

	added := make([]addedItem, 0, 2)
	if out.Primary != nil {
		added = append(added, addedItem{VariantID: out.Primary.ID, Quantity: 1})
	}
	if out.Bundled != nil {
		added = append(added, addedItem{VariantID: out.Bundled.ID, Quantity: 1, Bundled: true})
	}

	return nil, &AddToCartOutput{
		Status:  sess.Info().Status,
		Ops:     drainOps(sess),
		Message: out.Message,
		Added:   added,
	}, nil
}

func (h *Handler) mcpClosePopup(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, *PopupOutput, error) {
	sess, err := h.session(input.SessionID)
	if err != nil {
		return nil, nil, err
	}

	sess.Close(ctx)

	return nil, &PopupOutput{
		Status: sess.Info().Status,
		Ops:    drainOps(sess),
	}, nil
}

func (h *Handler) mcpGetPopupState(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, *popup.Info, error) {
	sess, err := h.session(input.SessionID)
	if err != nil {
		return nil, nil, err
	}

	info := sess.Info()
	return nil, &info, nil
}

// session resolves a session id for a tool call.
func (h *Handler) session(id string) (*popup.Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	sess, err := h.manager.Get(id)
	if err != nil {
		return nil, h.mcpError(err)
	}
	return sess, nil
}

// mcpError converts service errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	if apiErr, ok := err.(*model.APIError); ok {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
