// Package cart implements the storefront cart API client and the
// add-to-cart pipeline. All cart wire types, HTTP logic, and the
// bundle promotion rule live here.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quickshop/internal/model"
	"quickshop/internal/transport"
)

// DefaultAddPath is the conventional cart add endpoint.
const DefaultAddPath = "/cart/add"

// userAgent identifies this service to the storefront.
// Storefront CDNs rate-limit requests without a User-Agent.
const userAgent = "Quickshop/1.0"

// === Cart API Wire Types ===

// addRequest is the platform cart-add body.
type addRequest struct {
	Items []itemRequest `json:"items"`
}

// itemRequest is one line of an add request.
type itemRequest struct {
	ID       int64 `json:"id"` // variant id
	Quantity int   `json:"quantity"`
}

// Added echoes what the platform put in the cart. Decoded best effort:
// themes reshape this body freely, so no field is relied on.
type Added struct {
	Items []AddedItem `json:"items"`
}

// AddedItem is one echoed cart line.
type AddedItem struct {
	ID       int64  `json:"id"`
	Quantity int    `json:"quantity"`
	Title    string `json:"title,omitempty"`
	Price    int64  `json:"price,omitempty"`
}

// platformError is the platform cart error body.
// Description carries the shopper-facing text when the platform has
// one ("All 2 Rain Shell are in your cart.").
type platformError struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// === Client ===

// API is the slice of the cart client the submit pipeline needs.
type API interface {
	// AddItem puts quantity units of a variant into the cart.
	AddItem(ctx context.Context, variantID int64, quantity int) (*Added, error)
}

// Config holds cart client configuration.
type Config struct {
	StoreURL string // required, e.g. https://shop.example.com
	AddPath  string // cart add endpoint, default DefaultAddPath
}

// Client talks to the storefront cart API.
type Client struct {
	httpClient *http.Client
	storeURL   string
	addPath    string
}

// New creates a cart client for the given storefront.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	addPath := cfg.AddPath
	if addPath == "" {
		addPath = DefaultAddPath
	}

	// Chrome TLS fingerprint transport avoids JA3-based blocking on
	// storefront CDNs. See internal/transport for rationale.
	return &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport.NewChromeTransport(30 * time.Second),
		},
		storeURL: strings.TrimSuffix(cfg.StoreURL, "/"),
		addPath:  addPath,
	}, nil
}

// AddItem puts quantity units of a variant into the cart.
// A non-2xx response is parsed as a platform error body; 422 and 400
// carrying a description become cart-rejected errors with the
// platform's own shopper-facing text.
func (c *Client) AddItem(ctx context.Context, variantID int64, quantity int) (*Added, error) {
	body := addRequest{Items: []itemRequest{{ID: variantID, Quantity: quantity}}}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storeURL+c.addPath, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("cart", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.parseError(resp.StatusCode, respBody)
	}

	added := &Added{}
	if len(respBody) > 0 {
		json.Unmarshal(respBody, added) // Best effort decode
	}
	return added, nil
}

// parseError converts a platform cart error to model.APIError.
func (c *Client) parseError(statusCode int, body []byte) error {
	var perr platformError
	json.Unmarshal(body, &perr) // Best effort parse

	switch statusCode {
	case 422, 400:
		if perr.Description != "" {
			return model.NewCartRejectedError(perr.Description)
		}
		msg := perr.Message
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError("cart", msg)
	case 404:
		return model.NewNotFoundError("cart endpoint")
	case 429:
		return model.NewRateLimitError("cart")
	default:
		return model.NewUpstreamError("cart",
			fmt.Errorf("status %d: %s", statusCode, perr.Message))
	}
}

// Verify Client implements API at compile time.
var _ API = (*Client)(nil)
