package storefront

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quickshop/internal/model"
	"quickshop/internal/transport"
)

// === Document Locations ===

// BundleLocation is the document location of the auto-bundle product.
const BundleLocation = "bundle-product-json"

// DefaultBundlePath is the storefront path of the auto-bundle product
// document when none is configured.
const DefaultBundlePath = "/products/auto-bundle.js"

// productLocationPrefix starts every per-product document location.
const productLocationPrefix = "product-json-"

// ProductLocation returns the document location for a product id.
// Matches the element ids the embed script assigns to the JSON blocks
// it ships inside the product page.
func ProductLocation(id int64) string {
	return fmt.Sprintf("%s%d", productLocationPrefix, id)
}

// === Source Interface ===

// Source supplies raw product documents by location.
// Implementations differ in where documents come from; callers parse
// them with ParseProduct.
type Source interface {
	// Payload returns the raw document stored at location.
	// A location with no document yields model.ErrPayloadMissing.
	Payload(ctx context.Context, location string) ([]byte, error)
}

// === Page Source ===

// PageSource serves the documents the embed pushed when the session
// was created. This is the default source: the popup works entirely
// from what the product page already carries, no storefront round trip.
type PageSource struct {
	docs map[string][]byte
}

// NewPageSource copies the pushed document set. Keys are locations,
// values the raw JSON text of each embedded document.
func NewPageSource(payloads map[string]string) *PageSource {
	docs := make(map[string][]byte, len(payloads))
	for loc, text := range payloads {
		docs[loc] = []byte(text)
	}
	return &PageSource{docs: docs}
}

// Payload returns the pushed document at location.
func (s *PageSource) Payload(_ context.Context, location string) ([]byte, error) {
	doc, ok := s.docs[location]
	if !ok {
		return nil, fmt.Errorf("%w: no document at %s", model.ErrPayloadMissing, location)
	}
	return doc, nil
}

// Locations returns the addressable locations in no particular order.
func (s *PageSource) Locations() []string {
	locs := make([]string, 0, len(s.docs))
	for loc := range s.docs {
		locs = append(locs, loc)
	}
	return locs
}

// === Remote Source ===

// userAgent identifies this service to the storefront.
// Storefront CDNs rate-limit requests without a User-Agent.
const userAgent = "Quickshop/1.0"

// RemoteConfig holds RemoteSource configuration.
type RemoteConfig struct {
	StoreURL    string // required, e.g. https://shop.example.com
	BundlePath  string // auto-bundle document path, default DefaultBundlePath
	AccessToken string // optional, sent as X-Storefront-Token
}

// RemoteSource fetches product documents live from the storefront.
// Product locations map to {storeURL}/products/{id}.js, the bundle
// location to the configured bundle path. Used when the service runs
// with source=storefront.
type RemoteSource struct {
	httpClient  *http.Client
	storeURL    string
	bundlePath  string
	accessToken string
}

// NewRemoteSource creates a RemoteSource for the given storefront.
func NewRemoteSource(cfg RemoteConfig) (*RemoteSource, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	bundlePath := cfg.BundlePath
	if bundlePath == "" {
		bundlePath = DefaultBundlePath
	}

	// Chrome TLS fingerprint transport avoids JA3-based blocking on
	// storefront CDNs. See internal/transport for rationale.
	return &RemoteSource{
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport.NewChromeTransport(10 * time.Second),
		},
		storeURL:    strings.TrimSuffix(cfg.StoreURL, "/"),
		bundlePath:  bundlePath,
		accessToken: cfg.AccessToken,
	}, nil
}

// Payload fetches the document behind location from the storefront.
func (s *RemoteSource) Payload(ctx context.Context, location string) ([]byte, error) {
	path, err := s.locationPath(location)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.storeURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if s.accessToken != "" {
		req.Header.Set("X-Storefront-Token", s.accessToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("storefront", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s not on storefront", model.ErrPayloadMissing, location)
	case http.StatusTooManyRequests:
		return nil, model.NewRateLimitError("storefront")
	default:
		return nil, model.NewUpstreamError("storefront",
			fmt.Errorf("status %d fetching %s", resp.StatusCode, path))
	}
}

// locationPath maps a document location onto its storefront path.
func (s *RemoteSource) locationPath(location string) (string, error) {
	if location == BundleLocation {
		return s.bundlePath, nil
	}
	if id, ok := strings.CutPrefix(location, productLocationPrefix); ok && id != "" {
		return "/products/" + id + ".js", nil
	}
	return "", fmt.Errorf("%w: unroutable location %q", model.ErrPayloadMissing, location)
}

// Verify both sources implement Source at compile time.
var (
	_ Source = (*PageSource)(nil)
	_ Source = (*RemoteSource)(nil)
)
