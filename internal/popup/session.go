// Package popup owns quick-shop sessions: the server-side state machine
// a shopper or agent drives through open, select, add-to-cart, and
// close. A session holds the loaded product, the option selection, and
// the capabilities resolved when the session was created; every state
// change is pushed to the host through the view capability.
package popup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"quickshop/internal/caps"
	"quickshop/internal/cart"
	"quickshop/internal/model"
	"quickshop/internal/render"
	"quickshop/internal/storefront"
	"quickshop/internal/view"
)

// Session is one shopper's popup. All methods are safe for concurrent
// use; state transitions and their view operations happen under the
// session mutex so hosts replay operations in the order they were
// produced.
type Session struct {
	ID string

	mu        sync.Mutex
	status    model.PopupStatus
	product   *model.Product
	selection model.Selection
	prev      render.State

	caps      caps.Capabilities
	source    storefront.Source
	submitter *cart.Submitter
	logger    *slog.Logger
}

func newSession(id string, capabilities caps.Capabilities, source storefront.Source, submitter *cart.Submitter, logger *slog.Logger) *Session {
	return &Session{
		ID:        id,
		status:    model.StatusClosed,
		selection: model.Selection{},
		caps:      capabilities,
		source:    source,
		submitter: submitter,
		logger:    logger,
	}
}

// View returns the session's render capability. HTTP sessions carry a
// view.Recorder here and drain it into responses.
func (s *Session) View() view.View {
	return s.caps.View
}

// Info is a read-only snapshot of the session for state queries.
type Info struct {
	ID        string            `json:"session_id"`
	Status    model.PopupStatus `json:"status"`
	ProductID int64             `json:"product_id,omitempty"`
	Selection model.Selection   `json:"selection,omitempty"`
	Price     string            `json:"price,omitempty"`
}

// Info snapshots the session state.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		ID:        s.ID,
		Status:    s.status,
		Selection: s.selection.Clone(),
		Price:     s.prev.Price,
	}
	if s.product != nil {
		info.ProductID = s.product.ID
	}
	return info
}

// Open loads the product payload for productID from the session's
// catalog source and opens the popup on it. A missing or malformed
// payload keeps the popup closed with the selection untouched and emits
// no view operations; the error is returned for the caller's logging.
//
// On success the popup opens fresh: selection reset, header content
// rendered (title, formatted price, description, best image), one group
// per real option, submit enabled. Opening over an already open popup
// replaces the product outright.
func (s *Session) Open(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	location := storefront.ProductLocation(productID)
	data, err := s.source.Payload(ctx, location)
	if err != nil {
		s.logger.WarnContext(ctx, "product payload unavailable",
			slog.String("session_id", s.ID),
			slog.String("location", location),
			slog.String("error", err.Error()))
		return err
	}
	product, err := storefront.ParseProduct(data)
	if err != nil {
		s.logger.WarnContext(ctx, "product payload malformed",
			slog.String("session_id", s.ID),
			slog.String("location", location),
			slog.String("error", err.Error()))
		return err
	}

	s.status = model.StatusOpen
	s.product = product
	s.selection = model.Selection{}

	v := s.caps.View
	price := s.caps.FormatMoney(product.Price)
	v.OpenPopup(view.PopupContent{
		Title:       product.Title,
		Price:       price,
		Description: product.Description,
		Image:       product.BestImage(),
	})

	// The popup header already shows the product price, so the diff
	// starts from that text and only re-prices when a variant matched
	// immediately (option-less products).
	prev := render.State{Price: price}
	next := render.Snapshot(product, s.selection, s.caps.FormatMoney, price)
	render.Diff(prev, next, v)
	s.prev = next

	v.SetSubmitEnabled(true)
	return nil
}

// Select records a value for one of the product's options and emits the
// minimal render delta. Rejects when the popup is closed or the option
// is not one of the product's.
func (s *Session) Select(ctx context.Context, option, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.StatusOpen {
		return model.ErrPopupClosed
	}
	known := false
	for _, name := range s.product.Options {
		if name == option {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", model.ErrUnknownOption, option)
	}

	s.selection.Set(option, value)

	next := render.Snapshot(s.product, s.selection, s.caps.FormatMoney, s.prev.Price)
	render.Diff(s.prev, next, s.caps.View)
	s.prev = next
	return nil
}

// AddToCart runs the add-to-cart pipeline on the current selection.
// Rejects when the popup is closed; every pipeline failure beyond that
// is recovered into the outcome's message.
func (s *Session) AddToCart(ctx context.Context) (*cart.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.StatusOpen {
		return nil, model.ErrPopupClosed
	}

	out := s.submitter.Submit(ctx, &cart.Request{
		Product:      s.product,
		Selection:    s.selection.Clone(),
		Capabilities: s.caps,
	})
	return out, nil
}

// Close dismisses the popup and clears product, selection, and render
// state. Closing a closed popup is a no-op. A later Open starts from an
// empty selection.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == model.StatusClosed {
		return
	}

	s.caps.View.ClosePopup()
	s.status = model.StatusClosed
	s.product = nil
	s.selection = model.Selection{}
	s.prev = render.State{}
	s.logger.DebugContext(ctx, "popup closed", slog.String("session_id", s.ID))
}
