// Package storefront loads and parses platform product payloads.
// All platform wire types, document locations, and catalog fetch logic
// live here; the rest of the service only sees model.Product.
package storefront

// === Platform Product JSON Types ===

// ProductPayload represents the platform product JSON document, the
// same shape the storefront serves at /products/{handle}.js and embeds
// in product pages.
type ProductPayload struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	Price         int64            `json:"price"` // integer minor units
	Description   string           `json:"description"`
	FeaturedImage string           `json:"featured_image"`
	Images        []string         `json:"images"`
	Options       []string         `json:"options"`
	Variants      []VariantPayload `json:"variants"`
}

// VariantPayload represents one variant inside the product document.
// Options is positional: Options[i] is the value for the product's
// i-th option name.
type VariantPayload struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Price     int64    `json:"price"` // integer minor units
	Available bool     `json:"available"`
	Options   []string `json:"options"`
}
