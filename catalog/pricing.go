package catalog

import "math"

// Pricing helpers. The backend may assert the charged price directly via
// effectivePrice; otherwise the sale price is derived from price and
// discountPrice. Authoritative discount-code arithmetic is always
// server-side; nothing here applies promo codes.

// HasSale reports whether the product is currently discounted
func HasSale(p *Product) bool {
	if p == nil {
		return false
	}
	if p.EffectivePrice != nil && *p.EffectivePrice < p.Price {
		return true
	}
	return p.DiscountPrice != nil && *p.DiscountPrice != p.Price
}

// CurrentPrice is the price actually charged: effectivePrice when the API
// provides it, else the lower of price and discountPrice.
func CurrentPrice(p *Product) float64 {
	if p == nil {
		return 0
	}
	if p.EffectivePrice != nil {
		return *p.EffectivePrice
	}
	discount := p.Price
	if p.DiscountPrice != nil {
		discount = *p.DiscountPrice
	}
	return math.Min(p.Price, discount)
}

// OriginalPrice is the strikethrough price: the list price when
// effectivePrice indicates a sale, else the higher of price and
// discountPrice.
func OriginalPrice(p *Product) float64 {
	if p == nil {
		return 0
	}
	if p.EffectivePrice != nil && *p.EffectivePrice < p.Price {
		return p.Price
	}
	discount := p.Price
	if p.DiscountPrice != nil {
		discount = *p.DiscountPrice
	}
	return math.Max(p.Price, discount)
}

// DiscountPercent is the rounded percentage off the original price.
// Returns 0 when the original price is 0, never dividing by zero.
func DiscountPercent(p *Product) int {
	original := OriginalPrice(p)
	if original == 0 {
		return 0
	}
	current := CurrentPrice(p)
	return int(math.Round((original - current) / original * 100))
}
