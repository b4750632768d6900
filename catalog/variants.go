package catalog

// Variant availability resolution.
//
// When variant data exists it is authoritative: a color×size combination
// that is absent from the variant list is unavailable. Without variant data
// the resolution is deliberately coarse (per-axis flags plus the flat
// product stock) and ignores cross-axis combinations; upstream data
// guarantees make that acceptable, so the behavior is preserved here.

// AvailableSizesForColor returns the sizes purchasable for the given color.
// A nil/empty color returns the full size list unfiltered. Without variant
// data the full size list is returned too; callers check per-size
// availability flags separately.
func AvailableSizesForColor(p *Product, color string) []string {
	if p == nil {
		return nil
	}
	if color == "" || p.Availability == nil || len(p.Availability.Variants) == 0 {
		return p.Sizes
	}

	var sizes []string
	seen := make(map[string]bool)
	for _, v := range p.Availability.Variants {
		if v.Color != color || v.OutOfStock || v.Stock <= 0 {
			continue
		}
		if !seen[v.Size] {
			seen[v.Size] = true
			sizes = append(sizes, v.Size)
		}
	}
	return sizes
}

// AvailableColorsForSize is the mirror of AvailableSizesForColor
func AvailableColorsForSize(p *Product, size string) []string {
	if p == nil {
		return nil
	}
	if size == "" || p.Availability == nil || len(p.Availability.Variants) == 0 {
		return p.Colors
	}

	var colors []string
	seen := make(map[string]bool)
	for _, v := range p.Availability.Variants {
		if v.Size != size || v.OutOfStock || v.Stock <= 0 {
			continue
		}
		if !seen[v.Color] {
			seen[v.Color] = true
			colors = append(colors, v.Color)
		}
	}
	return colors
}

// IsVariantAvailable reports whether the exact color×size combination can
// be purchased. False when either selector is empty or the product is nil.
// With variant data, absence from the list means unavailable.
func IsVariantAvailable(p *Product, color, size string) bool {
	if p == nil || color == "" || size == "" {
		return false
	}

	if p.Availability != nil && len(p.Availability.Variants) > 0 {
		for _, v := range p.Availability.Variants {
			if v.Color == color && v.Size == size {
				return !v.OutOfStock && v.Stock > 0
			}
		}
		return false
	}

	// Coarse fallback: per-axis flags plus the flat product stock
	if p.Availability != nil {
		for _, c := range p.Availability.Colors {
			if c.Color == color && c.OutOfStock {
				return false
			}
		}
		for _, s := range p.Availability.Sizes {
			if s.Size == size && s.OutOfStock {
				return false
			}
		}
	}
	return p.Stock > 0
}

// VariantStock returns the purchasable stock for the combination: the
// matched variant's stock (0 when flagged out of stock), else the product's
// flat stock floored at 0.
func VariantStock(p *Product, color, size string) int {
	if p == nil {
		return 0
	}

	if p.Availability != nil && len(p.Availability.Variants) > 0 {
		for _, v := range p.Availability.Variants {
			if v.Color == color && v.Size == size {
				if v.OutOfStock {
					return 0
				}
				return v.Stock
			}
		}
	}

	if p.Stock < 0 {
		return 0
	}
	return p.Stock
}

// AllColors returns the canonical color list for display: the product's
// color list unioned with any variant-only colors, preserving first-seen
// order. Zero-stock colors stay in this list so the UI can render them as
// selectable-but-disabled; only the availability helpers narrow by stock.
func AllColors(p *Product) []string {
	if p == nil {
		return nil
	}
	return unionWithVariantAxis(p.Colors, p, func(v Variant) string { return v.Color })
}

// AllSizes is the mirror of AllColors for the size axis
func AllSizes(p *Product) []string {
	if p == nil {
		return nil
	}
	return unionWithVariantAxis(p.Sizes, p, func(v Variant) string { return v.Size })
}

func unionWithVariantAxis(base []string, p *Product, axis func(Variant) string) []string {
	out := make([]string, 0, len(base))
	seen := make(map[string]bool)
	for _, v := range base {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if p.Availability != nil {
		for _, v := range p.Availability.Variants {
			value := axis(v)
			if value != "" && !seen[value] {
				seen[value] = true
				out = append(out, value)
			}
		}
	}
	return out
}
