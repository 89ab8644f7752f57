package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"quickshop/internal/caps"
	"quickshop/internal/model"
	"quickshop/internal/notify"
	"quickshop/internal/storefront"
	"quickshop/internal/view"
)

// Message codes attached to pipeline feedback.
const (
	CodeIncompleteSelection = "incomplete_selection"
	CodeNoMatchingVariant   = "no_matching_variant"
	CodeSoldOut             = "sold_out"
	CodeCartAddFailed       = "cart_add_failed"
	CodeCartAdded           = "cart_added"
)

// Texts shown to the shopper.
const (
	msgIncomplete = "Please select all options before adding to cart."
	msgNoMatch    = "This combination is unavailable."
	msgSoldOut    = "Sold out."
	msgRetry      = "Could not add to cart. Please try again."
	msgSuccess    = "Added to cart!"
)

// Request is one add-to-cart attempt: the session's product, its
// current selection, and the capabilities resolved for the session.
type Request struct {
	Product      *model.Product
	Selection    model.Selection
	Capabilities caps.Capabilities
}

// Outcome is the terminal result of one submit. Message is always set
// and has also been shown through the view; Primary and Bundled are
// set only for the adds that actually happened.
type Outcome struct {
	Primary     *model.Variant
	Bundled     *model.Variant
	BundleTitle string
	Message     model.Message
}

// Submitter runs the add-to-cart pipeline.
type Submitter struct {
	api    API
	source storefront.Source
	logger *slog.Logger
}

// NewSubmitter creates a submitter backed by the given cart API and
// payload source. The source is only consulted for the bundle product.
func NewSubmitter(api API, source storefront.Source, logger *slog.Logger) *Submitter {
	return &Submitter{api: api, source: source, logger: logger}
}

// Submit runs the pipeline in order: selection completeness, variant
// match, availability, primary add, bundle rule, outcome message.
// The first three checks are local and never touch the network. The
// submit control is disabled for the network window and re-enabled on
// every return path.
func (s *Submitter) Submit(ctx context.Context, req *Request) *Outcome {
	v := req.Capabilities.View

	if !req.Selection.Complete(req.Product.RequiredOptions()) {
		return s.reject(ctx, v, CodeIncompleteSelection, msgIncomplete)
	}

	variant, ok := req.Product.MatchVariant(req.Selection)
	if !ok {
		return s.reject(ctx, v, CodeNoMatchingVariant, msgNoMatch)
	}
	if !variant.Available {
		return s.reject(ctx, v, CodeSoldOut, msgSoldOut)
	}

	v.SetSubmitEnabled(false)
	defer v.SetSubmitEnabled(true)

	if _, err := s.api.AddItem(ctx, variant.ID, 1); err != nil {
		s.logger.WarnContext(ctx, "cart add failed",
			slog.Int64("variant_id", variant.ID),
			slog.String("error", err.Error()))
		return s.reject(ctx, v, CodeCartAddFailed, rejectionText(err))
	}
	s.logger.InfoContext(ctx, "added to cart", slog.Int64("variant_id", variant.ID))
	req.Capabilities.PublishCartUpdated(notify.Event{
		Channel:   notify.ChannelCartUpdated,
		VariantID: variant.ID,
		Quantity:  1,
	})

	out := &Outcome{Primary: variant}

	if bundled := s.tryBundle(ctx, req); bundled != nil {
		out.Bundled = bundled.variant
		out.BundleTitle = bundled.title
		s.logger.InfoContext(ctx, "bundle added to cart",
			slog.Int64("variant_id", bundled.variant.ID),
			slog.String("title", bundled.title))
		req.Capabilities.PublishCartUpdated(notify.Event{
			Channel:   notify.ChannelCartUpdated,
			VariantID: bundled.variant.ID,
			Quantity:  1,
			Bundled:   true,
		})
	}

	if out.Bundled != nil {
		out.Message = model.NewInfoMessage(CodeCartAdded,
			fmt.Sprintf("Added to cart! We also added %q to your order.", out.BundleTitle))
	} else {
		out.Message = model.NewInfoMessage(CodeCartAdded, msgSuccess)
	}
	v.ShowMessage(out.Message)
	return out
}

// reject records a pipeline rejection, shows the message, and wraps it
// in an outcome.
func (s *Submitter) reject(ctx context.Context, v view.View, code, text string) *Outcome {
	s.logger.DebugContext(ctx, "add to cart rejected", slog.String("code", code))
	msg := model.NewErrorMessage(code, text)
	v.ShowMessage(msg)
	return &Outcome{Message: msg}
}

// rejectionText maps a cart client error onto what the shopper sees:
// the platform's own description when it sent one, the generic retry
// text otherwise.
func rejectionText(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == "CART_REJECTED" && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgRetry
}

// === Bundle Rule ===

// bundleAdd is the result of a successful bundle attempt.
type bundleAdd struct {
	variant *model.Variant
	title   string
}

// tryBundle applies the promotion: a black + medium selection gets the
// auto-bundle product added alongside the primary item. Every failure
// is silent, the primary success stands on its own.
func (s *Submitter) tryBundle(ctx context.Context, req *Request) *bundleAdd {
	if !wantsBundle(req.Product, req.Selection) {
		s.logger.DebugContext(ctx, "bundle rule not triggered")
		return nil
	}

	data, err := s.source.Payload(ctx, storefront.BundleLocation)
	if err != nil {
		s.logger.WarnContext(ctx, "bundle payload unavailable", slog.String("error", err.Error()))
		return nil
	}
	bundle, err := storefront.ParseProduct(data)
	if err != nil {
		s.logger.WarnContext(ctx, "bundle payload malformed", slog.String("error", err.Error()))
		return nil
	}

	variant := bundle.FirstAvailableVariant()
	if variant == nil {
		variant = &bundle.Variants[0]
	}

	if _, err := s.api.AddItem(ctx, variant.ID, 1); err != nil {
		s.logger.WarnContext(ctx, "bundle add failed",
			slog.Int64("variant_id", variant.ID),
			slog.String("error", err.Error()))
		return nil
	}
	return &bundleAdd{variant: variant, title: bundle.Title}
}

// wantsBundle reports whether the selection triggers the promotion:
// a color option (color or colour) valued black together with a size
// option valued medium or m, all compared case-insensitively.
func wantsBundle(p *model.Product, sel model.Selection) bool {
	black := false
	medium := false
	for _, name := range p.Options {
		value, ok := sel.Lookup(name)
		if !ok {
			continue
		}
		switch {
		case isColorOption(name) && strings.EqualFold(value, "black"):
			black = true
		case strings.EqualFold(name, "size") &&
			(strings.EqualFold(value, "medium") || strings.EqualFold(value, "m")):
			medium = true
		}
	}
	return black && medium
}

func isColorOption(name string) bool {
	return strings.EqualFold(name, "color") || strings.EqualFold(name, "colour")
}
