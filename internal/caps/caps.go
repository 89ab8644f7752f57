// Package caps implements the embed capability handshake.
// The embed declares its host integrations in the Quickshop-Embed
// header; the service resolves the declaration once per session into
// concrete capabilities with working defaults, so the popup flow never
// checks for optional integrations at call sites.
package caps

import (
	"quickshop/internal/model"
	"quickshop/internal/notify"
	"quickshop/internal/view"
)

// Declared is what the embed announced in its Quickshop-Embed header.
type Declared struct {
	// Version is the embed script version, semver.
	Version string

	// MoneyFormat is the shop money format pattern, when the embed
	// carries one (themes embed it in their settings).
	MoneyFormat string

	// Notify reports whether the host wants cart-updated events.
	// nil means not declared, which defaults to on.
	Notify *bool
}

// Capabilities are a session's resolved host integrations. Every field
// is usable after Resolve; callers never guard against nil.
type Capabilities struct {
	// View receives render operations. Defaults to the discard view;
	// the transport that owns the session swaps in its own.
	View view.View

	// FormatMoney renders minor units for display.
	FormatMoney func(int64) string

	// PublishCartUpdated announces a successful cart add.
	PublishCartUpdated func(notify.Event)
}

// Config carries the service-side inputs to capability resolution.
type Config struct {
	// MoneyFormat is the shop-configured pattern, used when the embed
	// declares none.
	MoneyFormat string
}

// Resolve turns a declaration into working capabilities.
// Money format precedence: embed declaration, then shop config, then
// the plain dollar fallback. Notifications default on; a declared
// notify=?0 swaps the publisher for a no-op.
func Resolve(declared *Declared, cfg Config) Capabilities {
	resolved := Capabilities{
		View:               view.Nop{},
		FormatMoney:        model.FormatCents,
		PublishCartUpdated: notify.Publish,
	}

	pattern := cfg.MoneyFormat
	if declared != nil && declared.MoneyFormat != "" {
		pattern = declared.MoneyFormat
	}
	if pattern != "" {
		resolved.FormatMoney = model.Formatter(pattern)
	}

	if declared != nil && declared.Notify != nil && !*declared.Notify {
		resolved.PublishCartUpdated = func(notify.Event) {}
	}

	return resolved
}
