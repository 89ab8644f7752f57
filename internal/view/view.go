// Package view defines the render capability interface for popup hosts.
// Implementations translate popup state changes into host-specific
// display updates; the server itself only records them.
package view

import (
	"quickshop/internal/model"
)

// GroupKind selects how an option group is rendered.
type GroupKind string

const (
	// KindButtons renders mutually exclusive buttons with a sliding
	// active-value indicator.
	KindButtons GroupKind = "buttons"
	// KindSelect renders a single-choice dropdown.
	KindSelect GroupKind = "select"
)

// Group is one option row of the variant selector: the option name,
// its rendering kind, the distinct values in listing order, and the
// currently active value (empty until the shopper picks one).
type Group struct {
	Option string    `json:"option"`
	Kind   GroupKind `json:"kind"`
	Values []string  `json:"values"`
	Active string    `json:"active,omitempty"`
}

// PopupContent is the static part of the popup: everything shown
// around the selector groups.
type PopupContent struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// View abstracts popup display operations into a unified interface.
// Each host surface (embed script, test recorder, etc.) provides its
// own implementation.
//
// Methods never fail: a host that cannot apply an operation drops it.
type View interface {
	// OpenPopup shows the popup shell with the product content.
	// Selector groups arrive separately via RenderGroup.
	OpenPopup(content PopupContent)

	// ClosePopup hides the popup and discards its display state.
	ClosePopup()

	// RenderGroup draws or redraws one full option group.
	RenderGroup(g Group)

	// SetActiveValue marks value as the active choice in the named
	// option group.
	SetActiveValue(option, value string)

	// MoveIndicator slides the indicator of a buttons group to the
	// value at index. count is the number of values in the group, so
	// hosts can derive the indicator width.
	MoveIndicator(option string, index, count int)

	// SetPrice replaces the popup price text.
	SetPrice(text string)

	// SetSubmitEnabled toggles the add-to-cart control.
	SetSubmitEnabled(enabled bool)

	// ShowMessage surfaces a message to the shopper.
	ShowMessage(msg model.Message)
}

// Nop is the default View for sessions whose host declared no render
// integration. All operations are discarded.
type Nop struct{}

func (Nop) OpenPopup(PopupContent)          {}
func (Nop) ClosePopup()                     {}
func (Nop) RenderGroup(Group)               {}
func (Nop) SetActiveValue(string, string)   {}
func (Nop) MoveIndicator(string, int, int)  {}
func (Nop) SetPrice(string)                 {}
func (Nop) SetSubmitEnabled(bool)           {}
func (Nop) ShowMessage(model.Message)       {}

// Verify Nop implements View at compile time.
var _ View = Nop{}
