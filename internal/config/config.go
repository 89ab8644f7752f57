// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/mod/semver"

	"quickshop/internal/caps"
	"quickshop/internal/cart"
	"quickshop/internal/storefront"
)

// Payload source types.
const (
	SourcePage       = "page"       // embed pushes product JSON at session create
	SourceStorefront = "storefront" // service fetches product JSON live
)

// Config holds all service configuration.
// Environment determines whether the shop block loads from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// Where sessions get their product payloads
	SourceType string // "page" or "storefront"

	// GCP settings (production shop secret)
	GCPProject string
	ShopSecret string

	// Minimum embed version accepted by the capability handshake
	MinEmbedVersion string

	// Shop-specific configuration (loaded from secrets in production)
	Shop ShopConfig
}

// ShopConfig contains shop-specific settings.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type ShopConfig struct {
	StoreURL    string `json:"store_url"`
	StoreDomain string `json:"store_domain"` // Derived from StoreURL if not set
	CartAddPath string `json:"cart_add_path,omitempty"`
	MoneyFormat string `json:"money_format,omitempty"`
	BundlePath  string `json:"bundle_path,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) -> ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	// Otherwise, use ENV vars / Secret Manager approach
	cfg := &Config{
		Port:            envOrDefault("PORT", "8080"),
		Environment:     envOrDefault("ENVIRONMENT", "development"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		SourceType:      envOrDefault("SOURCE_TYPE", SourcePage),
		GCPProject:      os.Getenv("GCP_PROJECT_ID"),
		ShopSecret:      os.Getenv("SHOP_CONFIG_SECRET"),
		MinEmbedVersion: envOrDefault("MIN_EMBED_VERSION", caps.DefaultMinVersion),
	}

	// Page-source deployments run without GCP access, so the secret
	// path only engages when both settings are present.
	var err error
	if cfg.Environment == "production" && cfg.GCPProject != "" && cfg.ShopSecret != "" {
		err = cfg.loadShopFromSecretManager(ctx)
	} else {
		err = cfg.loadShopFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading shop config: %w", err)
	}

	cfg.applyShopDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Use a struct that matches the JSON structure
	var fileConfig struct {
		Port            string     `json:"port"`
		Environment     string     `json:"environment"`
		LogLevel        string     `json:"log_level"`
		SourceType      string     `json:"source_type"`
		MinEmbedVersion string     `json:"min_embed_version"`
		Shop            ShopConfig `json:"shop"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:            withDefault(fileConfig.Port, "8080"),
		Environment:     withDefault(fileConfig.Environment, "development"),
		LogLevel:        withDefault(fileConfig.LogLevel, "info"),
		SourceType:      withDefault(fileConfig.SourceType, SourcePage),
		MinEmbedVersion: withDefault(fileConfig.MinEmbedVersion, caps.DefaultMinVersion),
		Shop:            fileConfig.Shop,
	}

	cfg.applyShopDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadShopFromSecretManager fetches the shop block from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret}/versions/latest
func (c *Config) loadShopFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.ShopSecret)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Shop); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadShopFromEnv reads the shop block from individual environment
// variables. Used in development mode for local testing.
func (c *Config) loadShopFromEnv() error {
	c.Shop = ShopConfig{
		StoreURL:    os.Getenv("SHOP_STORE_URL"),
		StoreDomain: os.Getenv("SHOP_STORE_DOMAIN"),
		CartAddPath: os.Getenv("SHOP_CART_ADD_PATH"),
		MoneyFormat: os.Getenv("SHOP_MONEY_FORMAT"),
		BundlePath:  os.Getenv("SHOP_BUNDLE_PATH"),
		AccessToken: os.Getenv("SHOP_ACCESS_TOKEN"),
	}
	return nil
}

// applyShopDefaults fills the conventional paths and derives the store
// domain from the URL when not explicitly set.
func (c *Config) applyShopDefaults() {
	if c.Shop.CartAddPath == "" {
		c.Shop.CartAddPath = cart.DefaultAddPath
	}
	if c.Shop.BundlePath == "" {
		c.Shop.BundlePath = storefront.DefaultBundlePath
	}
	if c.Shop.StoreDomain == "" && c.Shop.StoreURL != "" {
		c.Shop.StoreDomain = extractDomain(c.Shop.StoreURL)
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.SourceType != SourcePage && c.SourceType != SourceStorefront {
		return fmt.Errorf("source_type must be %q or %q", SourcePage, SourceStorefront)
	}

	// The storefront source fetches product JSON live; it cannot run
	// without knowing the store.
	if c.SourceType == SourceStorefront && c.Shop.StoreURL == "" {
		return fmt.Errorf("store_url is required for the storefront source")
	}
	if c.Shop.StoreURL != "" {
		if _, err := url.Parse(c.Shop.StoreURL); err != nil {
			return fmt.Errorf("invalid store_url: %w", err)
		}
	}

	min := c.MinEmbedVersion
	if !strings.HasPrefix(min, "v") {
		min = "v" + min
	}
	if !semver.IsValid(min) {
		return fmt.Errorf("min_embed_version %q is not valid semver", c.MinEmbedVersion)
	}

	return nil
}

// CapsConfig builds the capability handshake configuration.
func (c *Config) CapsConfig() caps.Config {
	return caps.Config{MoneyFormat: c.Shop.MoneyFormat}
}

// CartConfig builds the cart client configuration.
// Only meaningful when a store URL is configured.
func (c *Config) CartConfig() cart.Config {
	return cart.Config{
		StoreURL: strings.TrimSuffix(c.Shop.StoreURL, "/"),
		AddPath:  c.Shop.CartAddPath,
	}
}

// RemoteSourceConfig builds the live storefront source configuration.
func (c *Config) RemoteSourceConfig() storefront.RemoteConfig {
	return storefront.RemoteConfig{
		StoreURL:    strings.TrimSuffix(c.Shop.StoreURL, "/"),
		BundlePath:  c.Shop.BundlePath,
		AccessToken: c.Shop.AccessToken,
	}
}

// extractDomain parses the domain from a URL string.
func extractDomain(storeURL string) string {
	u, err := url.Parse(storeURL)
	if err != nil {
		// Fallback: strip protocol prefix manually
		domain := strings.TrimPrefix(storeURL, "https://")
		domain = strings.TrimPrefix(domain, "http://")
		return strings.Split(domain, "/")[0]
	}
	return u.Host
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
