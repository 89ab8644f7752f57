package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"quickshop/internal/caps"
	"quickshop/internal/model"
	"quickshop/internal/notify"
	"quickshop/internal/storefront"
	"quickshop/internal/view"
)

func shellProduct() *model.Product {
	return &model.Product{
		ID:      632910392,
		Title:   "Rain Shell",
		Price:   4500,
		Options: []string{"Color", "Size"},
		Variants: []model.Variant{
			{ID: 101, Title: "Black / Small", Price: 4500, Available: true, Options: []string{"Black", "Small"}},
			{ID: 102, Title: "Black / Medium", Price: 4800, Available: true, Options: []string{"Black", "Medium"}},
			{ID: 103, Title: "Sand / Small", Price: 4500, Available: false, Options: []string{"Sand", "Small"}},
		},
	}
}

const bundleJSON = `{
	"id": 777,
	"title": "Merino Beanie",
	"price": 1500,
	"options": ["Title"],
	"variants": [
		{"id": 1, "title": "Default", "price": 1500, "available": false},
		{"id": 2, "title": "Default", "price": 1200, "available": true}
	]
}`

func testSubmitter(api API, docs map[string]string) *Submitter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSubmitter(api, storefront.NewPageSource(docs), logger)
}

func testCaps(rec *view.Recorder, events *[]notify.Event) caps.Capabilities {
	return caps.Capabilities{
		View:        rec,
		FormatMoney: model.FormatCents,
		PublishCartUpdated: func(ev notify.Event) {
			*events = append(*events, ev)
		},
	}
}

// countingMock wraps Mock and records every AddItem call.
type countingMock struct {
	Mock
	calls []int64
}

func (m *countingMock) AddItem(ctx context.Context, variantID int64, quantity int) (*Added, error) {
	m.calls = append(m.calls, variantID)
	return m.Mock.AddItem(ctx, variantID, quantity)
}

func opTypes(ops []view.Op) []string {
	types := make([]string, len(ops))
	for i, op := range ops {
		types[i] = op.Type
	}
	return types
}

func TestSubmitIncompleteSelection(t *testing.T) {
	api := &countingMock{}
	rec := view.NewRecorder()
	var events []notify.Event

	out := testSubmitter(api, nil).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black"},
		Capabilities: testCaps(rec, &events),
	})

	if len(api.calls) != 0 {
		t.Errorf("AddItem called %d times, want 0 before validation passes", len(api.calls))
	}
	if out.Primary != nil {
		t.Error("Outcome.Primary should be nil on incomplete selection")
	}
	if out.Message.Type != "error" || out.Message.Content != "Please select all options before adding to cart." {
		t.Errorf("Message = %+v, want incomplete selection error", out.Message)
	}

	ops := rec.Drain()
	if len(ops) != 1 || ops[0].Type != view.OpShowMessage {
		t.Errorf("ops = %v, want a single show_message", opTypes(ops))
	}
	if len(events) != 0 {
		t.Errorf("published %d events, want 0", len(events))
	}
}

func TestSubmitNoMatchingVariant(t *testing.T) {
	api := &countingMock{}
	rec := view.NewRecorder()
	var events []notify.Event

	out := testSubmitter(api, nil).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Sand", "Size": "Medium"},
		Capabilities: testCaps(rec, &events),
	})

	if len(api.calls) != 0 {
		t.Errorf("AddItem called %d times, want 0 when no variant matches", len(api.calls))
	}
	if out.Message.Content != "This combination is unavailable." {
		t.Errorf("Message.Content = %q, want unavailable combination text", out.Message.Content)
	}
}

func TestSubmitSoldOut(t *testing.T) {
	api := &countingMock{}
	rec := view.NewRecorder()
	var events []notify.Event

	out := testSubmitter(api, nil).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Sand", "Size": "Small"},
		Capabilities: testCaps(rec, &events),
	})

	if len(api.calls) != 0 {
		t.Errorf("AddItem called %d times, want 0 for a sold out variant", len(api.calls))
	}
	if out.Message.Content != "Sold out." {
		t.Errorf("Message.Content = %q, want %q", out.Message.Content, "Sold out.")
	}
	if out.Message.Code != CodeSoldOut {
		t.Errorf("Message.Code = %q, want %q", out.Message.Code, CodeSoldOut)
	}
}

func TestSubmitSuccess(t *testing.T) {
	api := &countingMock{}
	rec := view.NewRecorder()
	var events []notify.Event

	out := testSubmitter(api, nil).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black", "Size": "Small"},
		Capabilities: testCaps(rec, &events),
	})

	if len(api.calls) != 1 || api.calls[0] != 101 {
		t.Fatalf("AddItem calls = %v, want [101]", api.calls)
	}
	if out.Primary == nil || out.Primary.ID != 101 {
		t.Errorf("Outcome.Primary = %+v, want variant 101", out.Primary)
	}
	if out.Bundled != nil {
		t.Errorf("Outcome.Bundled = %+v, want nil without the promo selection", out.Bundled)
	}
	if out.Message.Type != "info" || out.Message.Content != "Added to cart!" {
		t.Errorf("Message = %+v, want added confirmation", out.Message)
	}

	want := []string{view.OpSetSubmitEnabled, view.OpShowMessage, view.OpSetSubmitEnabled}
	got := opTypes(rec.Drain())
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops = %v, want %v", got, want)
		}
	}

	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	if events[0].VariantID != 101 || events[0].Quantity != 1 || events[0].Bundled {
		t.Errorf("event = %+v, want primary add of variant 101", events[0])
	}
}

func TestSubmitDisablesThenReenables(t *testing.T) {
	api := &countingMock{}
	rec := view.NewRecorder()
	var events []notify.Event

	testSubmitter(api, nil).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black", "Size": "Small"},
		Capabilities: testCaps(rec, &events),
	})

	ops := rec.Drain()
	var toggles []bool
	for _, op := range ops {
		if op.Type == view.OpSetSubmitEnabled {
			toggles = append(toggles, *op.Enabled)
		}
	}
	if len(toggles) != 2 || toggles[0] || !toggles[1] {
		t.Errorf("submit toggles = %v, want [false true]", toggles)
	}
}

func TestSubmitBundle(t *testing.T) {
	api := &countingMock{}
	rec := view.NewRecorder()
	var events []notify.Event
	docs := map[string]string{storefront.BundleLocation: bundleJSON}

	out := testSubmitter(api, docs).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black", "Size": "Medium"},
		Capabilities: testCaps(rec, &events),
	})

	if len(api.calls) != 2 || api.calls[0] != 102 || api.calls[1] != 2 {
		t.Fatalf("AddItem calls = %v, want [102 2]", api.calls)
	}
	if out.Primary == nil || out.Primary.ID != 102 {
		t.Errorf("Outcome.Primary = %+v, want variant 102", out.Primary)
	}
	if out.Bundled == nil || out.Bundled.ID != 2 {
		t.Fatalf("Outcome.Bundled = %+v, want first available bundle variant 2", out.Bundled)
	}
	if out.BundleTitle != "Merino Beanie" {
		t.Errorf("BundleTitle = %q, want %q", out.BundleTitle, "Merino Beanie")
	}
	want := `Added to cart! We also added "Merino Beanie" to your order.`
	if out.Message.Content != want {
		t.Errorf("Message.Content = %q, want %q", out.Message.Content, want)
	}

	if len(events) != 2 {
		t.Fatalf("published %d events, want 2", len(events))
	}
	if events[0].Bundled || events[0].VariantID != 102 {
		t.Errorf("first event = %+v, want primary add", events[0])
	}
	if !events[1].Bundled || events[1].VariantID != 2 {
		t.Errorf("second event = %+v, want bundled add", events[1])
	}
}

func TestSubmitBundleFallsBackToFirstVariant(t *testing.T) {
	api := &countingMock{}
	rec := view.NewRecorder()
	var events []notify.Event
	docs := map[string]string{
		storefront.BundleLocation: `{"id":9,"title":"Sticker Pack","price":500,
			"variants":[{"id":91,"price":500,"available":false}]}`,
	}

	out := testSubmitter(api, docs).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black", "Size": "Medium"},
		Capabilities: testCaps(rec, &events),
	})

	if out.Bundled == nil || out.Bundled.ID != 91 {
		t.Errorf("Outcome.Bundled = %+v, want fallback to first variant 91", out.Bundled)
	}
}

func TestSubmitBundlePayloadMissing(t *testing.T) {
	api := &countingMock{}
	rec := view.NewRecorder()
	var events []notify.Event

	out := testSubmitter(api, nil).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black", "Size": "Medium"},
		Capabilities: testCaps(rec, &events),
	})

	if len(api.calls) != 1 {
		t.Errorf("AddItem calls = %v, want primary only when bundle payload is missing", api.calls)
	}
	if out.Bundled != nil {
		t.Errorf("Outcome.Bundled = %+v, want nil", out.Bundled)
	}
	if out.Message.Type != "info" || out.Message.Content != "Added to cart!" {
		t.Errorf("Message = %+v, want plain success despite bundle failure", out.Message)
	}
	if len(events) != 1 {
		t.Errorf("published %d events, want 1", len(events))
	}
}

func TestSubmitBundleMalformedPayload(t *testing.T) {
	api := &countingMock{}
	rec := view.NewRecorder()
	var events []notify.Event
	docs := map[string]string{storefront.BundleLocation: `{"title": nope`}

	out := testSubmitter(api, docs).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black", "Size": "Medium"},
		Capabilities: testCaps(rec, &events),
	})

	if len(api.calls) != 1 {
		t.Errorf("AddItem calls = %v, want primary only for malformed bundle", api.calls)
	}
	if out.Bundled != nil || out.Message.Content != "Added to cart!" {
		t.Errorf("outcome = %+v, want plain success", out)
	}
}

func TestSubmitBundleAddFails(t *testing.T) {
	api := &countingMock{}
	api.AddItemFunc = func(ctx context.Context, variantID int64, quantity int) (*Added, error) {
		if variantID == 2 {
			return nil, model.NewUpstreamError("cart", errors.New("boom"))
		}
		return &Added{}, nil
	}
	rec := view.NewRecorder()
	var events []notify.Event
	docs := map[string]string{storefront.BundleLocation: bundleJSON}

	out := testSubmitter(api, docs).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black", "Size": "Medium"},
		Capabilities: testCaps(rec, &events),
	})

	if len(api.calls) != 2 {
		t.Errorf("AddItem calls = %v, want primary and bundle attempt", api.calls)
	}
	if out.Bundled != nil {
		t.Errorf("Outcome.Bundled = %+v, want nil when bundle add fails", out.Bundled)
	}
	if out.Message.Type != "info" || out.Message.Content != "Added to cart!" {
		t.Errorf("Message = %+v, want plain success", out.Message)
	}
	if len(events) != 1 || events[0].VariantID != 102 {
		t.Errorf("events = %+v, want only the primary add", events)
	}
}

func TestSubmitPlatformRejection(t *testing.T) {
	api := &countingMock{}
	api.AddItemFunc = func(ctx context.Context, variantID int64, quantity int) (*Added, error) {
		return nil, model.NewCartRejectedError("All 1 Rain Shell - M are in your cart.")
	}
	rec := view.NewRecorder()
	var events []notify.Event
	docs := map[string]string{storefront.BundleLocation: bundleJSON}

	out := testSubmitter(api, docs).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black", "Size": "Medium"},
		Capabilities: testCaps(rec, &events),
	})

	if len(api.calls) != 1 {
		t.Errorf("AddItem calls = %v, want no bundle attempt after a rejected primary", api.calls)
	}
	if out.Primary != nil {
		t.Error("Outcome.Primary should be nil on rejection")
	}
	if out.Message.Type != "error" || out.Message.Content != "All 1 Rain Shell - M are in your cart." {
		t.Errorf("Message = %+v, want the platform description verbatim", out.Message)
	}
	if len(events) != 0 {
		t.Errorf("published %d events, want 0", len(events))
	}

	ops := rec.Drain()
	last := ops[len(ops)-1]
	if last.Type != view.OpSetSubmitEnabled || !*last.Enabled {
		t.Errorf("last op = %+v, want submit re-enabled", last)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	api := &countingMock{}
	api.AddItemFunc = func(ctx context.Context, variantID int64, quantity int) (*Added, error) {
		return nil, model.NewUpstreamError("cart", errors.New("connection refused"))
	}
	rec := view.NewRecorder()
	var events []notify.Event

	out := testSubmitter(api, nil).Submit(context.Background(), &Request{
		Product:      shellProduct(),
		Selection:    model.Selection{"Color": "Black", "Size": "Small"},
		Capabilities: testCaps(rec, &events),
	})

	if out.Message.Content != "Could not add to cart. Please try again." {
		t.Errorf("Message.Content = %q, want generic retry text", out.Message.Content)
	}
	if out.Message.Code != CodeCartAddFailed {
		t.Errorf("Message.Code = %q, want %q", out.Message.Code, CodeCartAddFailed)
	}

	ops := rec.Drain()
	last := ops[len(ops)-1]
	if last.Type != view.OpSetSubmitEnabled || !*last.Enabled {
		t.Errorf("last op = %+v, want submit re-enabled after failure", last)
	}
}

func TestWantsBundle(t *testing.T) {
	tests := []struct {
		name      string
		options   []string
		selection model.Selection
		want      bool
	}{
		{
			name:      "black medium triggers",
			options:   []string{"Color", "Size"},
			selection: model.Selection{"Color": "Black", "Size": "Medium"},
			want:      true,
		},
		{
			name:      "case insensitive values",
			options:   []string{"Color", "Size"},
			selection: model.Selection{"Color": "BLACK", "Size": "medium"},
			want:      true,
		},
		{
			name:      "british colour spelling",
			options:   []string{"Colour", "Size"},
			selection: model.Selection{"Colour": "black", "Size": "M"},
			want:      true,
		},
		{
			name:      "short size m",
			options:   []string{"Color", "Size"},
			selection: model.Selection{"Color": "Black", "Size": "M"},
			want:      true,
		},
		{
			name:      "black large does not trigger",
			options:   []string{"Color", "Size"},
			selection: model.Selection{"Color": "Black", "Size": "Large"},
			want:      false,
		},
		{
			name:      "sand medium does not trigger",
			options:   []string{"Color", "Size"},
			selection: model.Selection{"Color": "Sand", "Size": "Medium"},
			want:      false,
		},
		{
			name:      "no color option",
			options:   []string{"Material", "Size"},
			selection: model.Selection{"Material": "Black", "Size": "Medium"},
			want:      false,
		},
		{
			name:      "unselected options",
			options:   []string{"Color", "Size"},
			selection: model.Selection{},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &model.Product{Options: tt.options}
			if got := wantsBundle(p, tt.selection); got != tt.want {
				t.Errorf("wantsBundle(%v) = %v, want %v", tt.selection, got, tt.want)
			}
		})
	}
}
