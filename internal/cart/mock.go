package cart

import "context"

// Mock implements API for testing. Each method can be stubbed with a
// function field; unstubbed methods return an empty response.
type Mock struct {
	AddItemFunc func(ctx context.Context, variantID int64, quantity int) (*Added, error)
}

// AddItem calls AddItemFunc if set.
func (m *Mock) AddItem(ctx context.Context, variantID int64, quantity int) (*Added, error) {
	if m.AddItemFunc != nil {
		return m.AddItemFunc(ctx, variantID, quantity)
	}
	return &Added{}, nil
}

// Verify Mock implements API at compile time.
var _ API = (*Mock)(nil)
