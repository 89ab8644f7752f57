// Package model defines the product, selection, and popup domain types.
package model

// === Constants ===

// DefaultOptionName is the placeholder option the platform assigns to
// products that have no real options. A product whose option list is
// exactly [DefaultOptionName] is treated as option-less.
const DefaultOptionName = "Title"

// PlaceholderImage is shown when a product carries no images at all.
const PlaceholderImage = "/assets/quickshop-placeholder.svg"

// === Product & Variant ===

// Product is the canonical product as parsed from a storefront payload.
// Prices are in minor currency units (cents). Options holds the ordered
// option names; each variant's Options holds the values aligned to those
// positions. Variants preserve listing order.
type Product struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Price         int64     `json:"price"`
	Description   string    `json:"description,omitempty"` // HTML
	FeaturedImage string    `json:"featured_image,omitempty"`
	Images        []string  `json:"images,omitempty"`
	Options       []string  `json:"options,omitempty"`
	Variants      []Variant `json:"variants"`
}

// Variant is a purchasable combination of option values.
type Variant struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title,omitempty"`
	Price     int64    `json:"price"`
	Available bool     `json:"available"`
	Options   []string `json:"options,omitempty"`
}

// OptionValue returns the variant's value at option position i,
// or "" when the variant carries no value for that position.
func (v *Variant) OptionValue(i int) string {
	if i < 0 || i >= len(v.Options) {
		return ""
	}
	return v.Options[i]
}

// MatchVariant resolves the variant the selection identifies.
//
// A variant matches when, for every option name on the product, the
// selection holds a value equal to the variant's value at that position.
// Comparison is exact; case folding happens nowhere in matching.
// A product with no options, or with only the placeholder option,
// matches its first variant on any selection. When several variants
// carry the same option tuple, the first in listing order wins.
// Returns (nil, false) when nothing matches or the product has no variants.
func (p *Product) MatchVariant(sel Selection) (*Variant, bool) {
	if len(p.Variants) == 0 {
		return nil, false
	}
	if len(p.Options) == 0 || p.HasOnlyDefaultOption() {
		return &p.Variants[0], true
	}
	for i := range p.Variants {
		if p.variantMatches(&p.Variants[i], sel) {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

func (p *Product) variantMatches(v *Variant, sel Selection) bool {
	if len(v.Options) < len(p.Options) {
		return false
	}
	for i, name := range p.Options {
		chosen, ok := sel.Lookup(name)
		if !ok || chosen != v.Options[i] {
			return false
		}
	}
	return true
}

// OptionValues returns the distinct values offered for option position i,
// in first-seen order across the variant list. Empty values are skipped.
func (p *Product) OptionValues(i int) []string {
	var values []string
	seen := make(map[string]bool)
	for _, v := range p.Variants {
		val := v.OptionValue(i)
		if val == "" || seen[val] {
			continue
		}
		seen[val] = true
		values = append(values, val)
	}
	return values
}

// HasOnlyDefaultOption reports whether the product's only option is the
// platform placeholder. Such products render no selectors.
func (p *Product) HasOnlyDefaultOption() bool {
	return len(p.Options) == 1 && p.Options[0] == DefaultOptionName
}

// RequiredOptions returns the option names a selection must cover
// before add-to-cart. The placeholder-only list requires nothing.
func (p *Product) RequiredOptions() []string {
	if p.HasOnlyDefaultOption() {
		return nil
	}
	return p.Options
}

// BestImage picks the image for the popup header: the featured image when
// set, else the first listed image, else the placeholder.
func (p *Product) BestImage() string {
	if p.FeaturedImage != "" {
		return p.FeaturedImage
	}
	if len(p.Images) > 0 && p.Images[0] != "" {
		return p.Images[0]
	}
	return PlaceholderImage
}

// FirstAvailableVariant returns the first variant with Available set,
// or nil when every variant is unavailable.
func (p *Product) FirstAvailableVariant() *Variant {
	for i := range p.Variants {
		if p.Variants[i].Available {
			return &p.Variants[i]
		}
	}
	return nil
}

// === Selection ===

// Selection maps option names to the shopper's chosen values.
// A fresh (empty) selection is created every time the popup opens.
type Selection map[string]string

// NewSelection returns an empty selection.
func NewSelection() Selection {
	return make(Selection)
}

// Set records the chosen value for an option name.
func (s Selection) Set(option, value string) {
	s[option] = value
}

// Value returns the chosen value for an option name, or "".
func (s Selection) Value(option string) string {
	return s[option]
}

// Lookup returns the chosen value and whether a real choice exists.
// An empty stored value counts as no choice.
func (s Selection) Lookup(option string) (string, bool) {
	v, ok := s[option]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Complete reports whether every option name has a non-empty value.
func (s Selection) Complete(options []string) bool {
	for _, name := range options {
		if s[name] == "" {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the selection.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// === Enums ===

// PopupStatus represents the popup state within a session.
type PopupStatus string

const (
	StatusClosed PopupStatus = "closed" // No product loaded, selection empty
	StatusOpen   PopupStatus = "open"   // Product loaded, selection live
)

// === Messages ===

// Message is shopper-facing feedback shown inside the popup.
// Type discriminates between error, warning, and info messages.
type Message struct {
	Type    string `json:"type"`           // "error", "warning", "info"
	Code    string `json:"code,omitempty"` // e.g., "sold_out", "cart_add_failed"
	Content string `json:"content"`        // Human-readable message
}

// NewErrorMessage creates an error message.
func NewErrorMessage(code, content string) Message {
	return Message{
		Type:    "error",
		Code:    code,
		Content: content,
	}
}

// NewInfoMessage creates an informational message.
func NewInfoMessage(code, content string) Message {
	return Message{
		Type:    "info",
		Code:    code,
		Content: content,
	}
}

// NewWarningMessage creates a warning message. Warnings flag issues that
// affect expectations (e.g., an incomplete selection) without tearing the
// popup down.
func NewWarningMessage(code, content string) Message {
	return Message{
		Type:    "warning",
		Code:    code,
		Content: content,
	}
}
