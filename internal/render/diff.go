package render

import "quickshop/internal/view"

// Diff emits the view operations that reconcile a host showing prev
// into next.
//
// Algorithm:
//  1. Group structure changed (open, product swap) → redraw every group
//  2. Structure unchanged → SetActiveValue per group whose active value
//     moved, plus MoveIndicator for buttons groups
//  3. Price text changed → SetPrice
//
// Operations are emitted in that order so hosts can apply them as they
// arrive.
func Diff(prev, next State, v view.View) {
	if !sameGroupShape(prev.Groups, next.Groups) {
		for _, g := range next.Groups {
			v.RenderGroup(g)
		}
	} else {
		for i, g := range next.Groups {
			if g.Active == prev.Groups[i].Active {
				continue
			}
			v.SetActiveValue(g.Option, g.Active)
			if g.Kind == view.KindButtons {
				if idx := valueIndex(g.Values, g.Active); idx >= 0 {
					v.MoveIndicator(g.Option, idx, len(g.Values))
				}
			}
		}
	}

	if next.Price != prev.Price {
		v.SetPrice(next.Price)
	}
}

// sameGroupShape reports whether two group lists agree on everything
// but the active value.
func sameGroupShape(a, b []view.Group) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Option != b[i].Option || a[i].Kind != b[i].Kind {
			return false
		}
		if len(a[i].Values) != len(b[i].Values) {
			return false
		}
		for j := range a[i].Values {
			if a[i].Values[j] != b[i].Values[j] {
				return false
			}
		}
	}
	return true
}

// valueIndex returns the position of value in values, or -1.
func valueIndex(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}
	return -1
}
