// Package render computes the popup display state and the minimal view
// operations that bring a host in line with it.
// The session keeps the previous State; after every change it snapshots
// the next State and diffs, so hosts replay only what moved instead of
// redrawing the whole popup.
package render

import (
	"strings"

	"quickshop/internal/model"
	"quickshop/internal/view"
)

// selectOptionName marks the option rendered as a dropdown.
const selectOptionName = "size"

// KindFor returns the rendering kind for an option name. Size options
// (case-insensitive) become dropdowns; everything else renders as
// buttons with a sliding indicator.
func KindFor(option string) view.GroupKind {
	if strings.EqualFold(option, selectOptionName) {
		return view.KindSelect
	}
	return view.KindButtons
}

// Indicator returns the geometry of a buttons-group indicator: its
// width as a percentage of the group, and its horizontal offset as a
// percentage of its own width.
func Indicator(index, count int) (width, offset float64) {
	if count <= 0 {
		return 0, 0
	}
	return 100.0 / float64(count), float64(index) * 100.0
}

// BuildGroups derives the selector groups for a product: one group per
// option name carrying the distinct values in listing order, with the
// selection's value marked active. Placeholder-only products render no
// groups at all.
func BuildGroups(p *model.Product, sel model.Selection) []view.Group {
	if p.HasOnlyDefaultOption() {
		return nil
	}
	groups := make([]view.Group, 0, len(p.Options))
	for i, name := range p.Options {
		groups = append(groups, view.Group{
			Option: name,
			Kind:   KindFor(name),
			Values: p.OptionValues(i),
			Active: sel.Value(name),
		})
	}
	return groups
}

// State is the render target of a popup at one instant.
type State struct {
	Groups []view.Group
	Price  string
}

// Snapshot computes the state for a product and selection. prevPrice
// is the price text currently showing; it carries over unless the
// selection fully resolves a variant, in which case the variant's
// formatted price replaces it.
func Snapshot(p *model.Product, sel model.Selection, format func(int64) string, prevPrice string) State {
	st := State{
		Groups: BuildGroups(p, sel),
		Price:  prevPrice,
	}
	if v, ok := p.MatchVariant(sel); ok {
		st.Price = format(v.Price)
	}
	return st
}
