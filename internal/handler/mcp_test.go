package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quickshop/internal/cart"
	"quickshop/internal/model"
	"quickshop/internal/popup"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

func TestMCPServerCreation(t *testing.T) {
	h, _ := testHandler(&cart.Mock{})
	server := h.NewMCPServer()

	if server == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPHandlerCreation(t *testing.T) {
	h, _ := testHandler(&cart.Mock{})
	handler := h.NewMCPHandler()

	if handler == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPInitialize(t *testing.T) {
	_, mux := testHandler(&cart.Mock{})

	// MCP initialization request
	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2025-06-18",
			"clientInfo": map[string]string{
				"name":    "test-client",
				"version": "1.0.0",
			},
			"capabilities": map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}

	if resp.Error != nil {
		t.Errorf("Unexpected error: %+v", resp.Error)
	}

	if resp.Result == nil {
		t.Error("Expected result in response")
	}
}

func TestMCPToolsList(t *testing.T) {
	_, mux := testHandler(&cart.Mock{})
	mcpSession := initMCPSession(t, mux)

	listReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/list",
	}

	listBody, _ := json.Marshal(listReq)
	listHTTPReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(listBody))
	setMCPHeaders(listHTTPReq, mcpSession)
	listW := httptest.NewRecorder()

	mux.ServeHTTP(listW, listHTTPReq)

	if listW.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", listW.Code, http.StatusOK, listW.Body.String())
	}

	jsonData, err := parseSSEResponse(listW.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Error != nil {
		t.Errorf("Unexpected error: %+v", resp.Error)
	}

	var toolsResult struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}

	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	// Verify all 6 popup tools are registered
	expectedTools := map[string]bool{
		"start_session":   false,
		"open_popup":      false,
		"select_option":   false,
		"add_to_cart":     false,
		"close_popup":     false,
		"get_popup_state": false,
	}

	for _, tool := range toolsResult.Tools {
		if _, ok := expectedTools[tool.Name]; ok {
			expectedTools[tool.Name] = true
		}
	}

	for name, found := range expectedTools {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPStartSession(t *testing.T) {
	_, mux := testHandler(&cart.Mock{})
	mcpSession := initMCPSession(t, mux)

	result := callTool(t, mux, mcpSession, 2, "start_session", map[string]interface{}{
		"page_payloads": shellPayloads(),
		"embed": map[string]interface{}{
			"version":      "2.3.1",
			"money_format": "${{amount}} USD",
		},
	})

	if result.IsError {
		t.Fatalf("Expected success, got error: %s", toolText(t, result))
	}

	var out StartSessionOutput
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("Failed to parse output: %v", err)
	}

	if !strings.HasPrefix(out.SessionID, "qs_") {
		t.Errorf("SessionID = %s, want qs_ prefix", out.SessionID)
	}
	if out.Status != model.StatusClosed {
		t.Errorf("Status = %s, want %s", out.Status, model.StatusClosed)
	}
}

func TestMCPStartSessionOldEmbed(t *testing.T) {
	_, mux := testHandler(&cart.Mock{})
	mcpSession := initMCPSession(t, mux)

	result := callTool(t, mux, mcpSession, 2, "start_session", map[string]interface{}{
		"embed": map[string]interface{}{"version": "1.0.0"},
	})

	if !result.IsError {
		t.Fatal("Expected error for outdated embed version")
	}
	if text := toolText(t, result); !strings.Contains(text, "embed_version_unsupported") {
		t.Errorf("Error text = %q, want embed_version_unsupported", text)
	}
}

func TestMCPPopupFlow(t *testing.T) {
	var calls []int64
	api := &cart.Mock{
		AddItemFunc: func(ctx context.Context, variantID int64, quantity int) (*cart.Added, error) {
			calls = append(calls, variantID)
			return &cart.Added{}, nil
		},
	}

	_, mux := testHandler(api)
	mcpSession := initMCPSession(t, mux)

	popupSession := mcpStartPopupSession(t, mux, mcpSession)

	// Open the product
	result := callTool(t, mux, mcpSession, 3, "open_popup", map[string]interface{}{
		"session_id": popupSession,
		"product_id": 632910392,
	})
	if result.IsError {
		t.Fatalf("open_popup failed: %s", toolText(t, result))
	}

	var opened PopupOutput
	json.Unmarshal([]byte(toolText(t, result)), &opened)
	if opened.Status != model.StatusOpen {
		t.Fatalf("Status after open = %s, want %s", opened.Status, model.StatusOpen)
	}
	if len(opened.Ops) == 0 || opened.Ops[0].Type != "open_popup" {
		t.Fatalf("Ops = %v, want open_popup first", opTypes(opened.Ops))
	}

	// Select both options
	for _, sel := range []struct{ option, value string }{
		{"Color", "Black"},
		{"Size", "Small"},
	} {
		result = callTool(t, mux, mcpSession, 4, "select_option", map[string]interface{}{
			"session_id": popupSession,
			"option":     sel.option,
			"value":      sel.value,
		})
		if result.IsError {
			t.Fatalf("select_option %s failed: %s", sel.option, toolText(t, result))
		}
	}

	// Add to cart
	result = callTool(t, mux, mcpSession, 5, "add_to_cart", map[string]interface{}{
		"session_id": popupSession,
	})
	if result.IsError {
		t.Fatalf("add_to_cart failed: %s", toolText(t, result))
	}

	var added AddToCartOutput
	json.Unmarshal([]byte(toolText(t, result)), &added)
	if added.Message.Content != "Added to cart!" {
		t.Errorf("Message = %q, want Added to cart!", added.Message.Content)
	}
	if len(added.Added) != 1 || added.Added[0].VariantID != 101 {
		t.Errorf("Added = %+v, want variant 101", added.Added)
	}
	if len(calls) != 1 || calls[0] != 101 {
		t.Errorf("cart calls = %v, want [101]", calls)
	}

	// Inspect state
	result = callTool(t, mux, mcpSession, 6, "get_popup_state", map[string]interface{}{
		"session_id": popupSession,
	})
	var info popup.Info
	json.Unmarshal([]byte(toolText(t, result)), &info)
	if info.ProductID != 632910392 {
		t.Errorf("ProductID = %d, want 632910392", info.ProductID)
	}
	if info.Selection["Color"] != "Black" {
		t.Errorf("Selection = %v, want Color=Black", info.Selection)
	}

	// Close
	result = callTool(t, mux, mcpSession, 7, "close_popup", map[string]interface{}{
		"session_id": popupSession,
	})
	var closed PopupOutput
	json.Unmarshal([]byte(toolText(t, result)), &closed)
	if closed.Status != model.StatusClosed {
		t.Errorf("Status after close = %s, want %s", closed.Status, model.StatusClosed)
	}
}

func TestMCPOpenPopupMissingPayload(t *testing.T) {
	_, mux := testHandler(&cart.Mock{})
	mcpSession := initMCPSession(t, mux)
	popupSession := mcpStartPopupSession(t, mux, mcpSession)

	result := callTool(t, mux, mcpSession, 3, "open_popup", map[string]interface{}{
		"session_id": popupSession,
		"product_id": 404404,
	})

	// Payload failures are reported through status, not tool errors.
	if result.IsError {
		t.Fatalf("Expected success result, got error: %s", toolText(t, result))
	}

	var out PopupOutput
	json.Unmarshal([]byte(toolText(t, result)), &out)
	if out.Status != model.StatusClosed {
		t.Errorf("Status = %s, want %s", out.Status, model.StatusClosed)
	}
	if len(out.Ops) != 0 {
		t.Errorf("Ops = %v, want none", out.Ops)
	}
}

func TestMCPUnknownSession(t *testing.T) {
	_, mux := testHandler(&cart.Mock{})
	mcpSession := initMCPSession(t, mux)

	result := callTool(t, mux, mcpSession, 2, "open_popup", map[string]interface{}{
		"session_id": "qs_ffffffffffffffff",
		"product_id": 632910392,
	})

	if !result.IsError {
		t.Fatal("Expected error for unknown session")
	}
	if text := toolText(t, result); !strings.Contains(text, "SESSION_NOT_FOUND") {
		t.Errorf("Error text = %q, want SESSION_NOT_FOUND", text)
	}
}

// === MCP Test Helpers ===

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) ([]byte, error) {
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body), nil
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}

	return w.Header().Get("Mcp-Session-Id")
}

// callTool issues a tools/call request and returns the parsed result.
func callTool(t *testing.T, mux *http.ServeMux, mcpSession string, id int, name string, args map[string]interface{}) callToolResult {
	t.Helper()

	rawArgs, _ := json.Marshal(args)
	callReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/call",
		Params: toolCallParams{
			Name:      name,
			Arguments: rawArgs,
		},
	}

	body, _ := json.Marshal(callReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, mcpSession)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("tools/call %s: status %d\nBody: %s", name, w.Code, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	if resp.Error != nil {
		t.Fatalf("tools/call %s: unexpected JSON-RPC error: %+v", name, resp.Error)
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	return result
}

// toolText returns the first text content block of a tool result.
func toolText(t *testing.T, result callToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	return result.Content[0].Text
}

// mcpStartPopupSession starts a popup session over MCP with the shell
// product payload and returns its id.
func mcpStartPopupSession(t *testing.T, mux *http.ServeMux, mcpSession string) string {
	t.Helper()

	result := callTool(t, mux, mcpSession, 2, "start_session", map[string]interface{}{
		"page_payloads": shellPayloads(),
	})
	if result.IsError {
		t.Fatalf("start_session failed: %s", toolText(t, result))
	}

	var out StartSessionOutput
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("Failed to parse start_session output: %v", err)
	}
	return out.SessionID
}
