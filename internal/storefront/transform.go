package storefront

import (
	"encoding/json"
	"fmt"

	"quickshop/internal/model"
)

// ParseProduct decodes a platform product document into the domain
// product. Parsing fails closed: a document that cannot be trusted to
// drive the popup is rejected rather than partially applied.
//
// Rejected as malformed: invalid JSON, missing title, zero variants,
// any variant without an id. Variants keep their listing order.
// Option-count mismatches between product and variants are NOT parse
// errors; the matcher treats short variants as non-matching.
func ParseProduct(data []byte) (*model.Product, error) {
	var payload ProductPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrPayloadMalformed, err)
	}
	if payload.Title == "" {
		return nil, fmt.Errorf("%w: missing title", model.ErrPayloadMalformed)
	}
	if len(payload.Variants) == 0 {
		return nil, fmt.Errorf("%w: no variants", model.ErrPayloadMalformed)
	}
	for i := range payload.Variants {
		if payload.Variants[i].ID == 0 {
			return nil, fmt.Errorf("%w: variant %d has no id", model.ErrPayloadMalformed, i)
		}
	}
	return payload.toProduct(), nil
}

// toProduct maps the wire document onto the domain product.
func (p *ProductPayload) toProduct() *model.Product {
	product := &model.Product{
		ID:            p.ID,
		Title:         p.Title,
		Price:         p.Price,
		Description:   p.Description,
		FeaturedImage: p.FeaturedImage,
		Images:        p.Images,
		Options:       p.Options,
		Variants:      make([]model.Variant, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		product.Variants = append(product.Variants, model.Variant{
			ID:        v.ID,
			Title:     v.Title,
			Price:     v.Price,
			Available: v.Available,
			Options:   v.Options,
		})
	}
	return product
}
