// Package catalog implements product browsing: typed models over the
// backend's product and category endpoints, the variant availability
// resolver, and the pricing helpers.
//
// The backend has drifted between wire formats over time (`_id` vs `id`,
// list payloads nested under a key vs flat arrays). All of that is absorbed
// here by one adapter per resource so the cart/checkout core only ever sees
// the canonical types.
package catalog

import "encoding/json"

// Product is the canonical product model
type Product struct {
	ID             string
	Name           string
	Slug           string
	Description    string
	Price          float64
	DiscountPrice  *float64
	EffectivePrice *float64
	Stock          int
	Images         []string
	Colors         []string
	Sizes          []string
	Availability   *Availability
	CategoryID     string
}

// Availability carries per-axis and per-combination stock data. When
// Variants is present it is authoritative for stock per color×size
// combination; otherwise Colors/Sizes give coarse per-axis availability and
// the product's flat Stock applies uniformly.
type Availability struct {
	Colors   []ColorAvailability
	Sizes    []SizeAvailability
	Variants []Variant
}

// ColorAvailability flags a color axis entry
type ColorAvailability struct {
	Color      string
	OutOfStock bool
}

// SizeAvailability flags a size axis entry
type SizeAvailability struct {
	Size       string
	OutOfStock bool
}

// Variant is one color×size combination with its own stock
type Variant struct {
	Color      string
	Size       string
	Stock      int
	OutOfStock bool
}

// Category is the canonical category model
type Category struct {
	ID    string
	Name  string
	Slug  string
	Image string
}

// --- wire shapes ---

// productWire is the union of known product response shapes
type productWire struct {
	ID             string            `json:"id"`
	LegacyID       string            `json:"_id"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	DiscountPrice  *float64          `json:"discountPrice"`
	EffectivePrice *float64          `json:"effectivePrice"`
	Stock          int               `json:"stock"`
	Images         []string          `json:"images"`
	Colors         []string          `json:"colors"`
	Sizes          []string          `json:"sizes"`
	Availability   *availabilityWire `json:"availability"`
	CategoryID     string            `json:"categoryId"`
	LegacyCategory string            `json:"category"`
}

type availabilityWire struct {
	Colors []struct {
		Color      string `json:"color"`
		OutOfStock bool   `json:"outOfStock"`
	} `json:"colors"`
	Sizes []struct {
		Size       string `json:"size"`
		OutOfStock bool   `json:"outOfStock"`
	} `json:"sizes"`
	Variants []struct {
		Color      string `json:"color"`
		Size       string `json:"size"`
		Stock      int    `json:"stock"`
		OutOfStock bool   `json:"outOfStock"`
	} `json:"variants"`
}

type categoryWire struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Image    string `json:"image"`
}

// productListWire accepts both a flat array and a nested {products: []}
// wrapper for list payloads
type productListWire struct {
	items []productWire
}

func (w *productListWire) UnmarshalJSON(data []byte) error {
	var flat []productWire
	if err := json.Unmarshal(data, &flat); err == nil {
		w.items = flat
		return nil
	}
	var nested struct {
		Products []productWire `json:"products"`
		Items    []productWire `json:"items"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}
	if nested.Products != nil {
		w.items = nested.Products
	} else {
		w.items = nested.Items
	}
	return nil
}

type categoryListWire struct {
	items []categoryWire
}

func (w *categoryListWire) UnmarshalJSON(data []byte) error {
	var flat []categoryWire
	if err := json.Unmarshal(data, &flat); err == nil {
		w.items = flat
		return nil
	}
	var nested struct {
		Categories []categoryWire `json:"categories"`
		Items      []categoryWire `json:"items"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}
	if nested.Categories != nil {
		w.items = nested.Categories
	} else {
		w.items = nested.Items
	}
	return nil
}

// normalizeProduct converts a wire product to the canonical model
func normalizeProduct(w productWire) Product {
	p := Product{
		ID:             firstNonEmpty(w.ID, w.LegacyID),
		Name:           w.Name,
		Slug:           w.Slug,
		Description:    w.Description,
		Price:          w.Price,
		DiscountPrice:  w.DiscountPrice,
		EffectivePrice: w.EffectivePrice,
		Stock:          w.Stock,
		Images:         w.Images,
		Colors:         w.Colors,
		Sizes:          w.Sizes,
		CategoryID:     firstNonEmpty(w.CategoryID, w.LegacyCategory),
	}
	if w.Availability != nil {
		a := &Availability{}
		for _, c := range w.Availability.Colors {
			a.Colors = append(a.Colors, ColorAvailability{Color: c.Color, OutOfStock: c.OutOfStock})
		}
		for _, s := range w.Availability.Sizes {
			a.Sizes = append(a.Sizes, SizeAvailability{Size: s.Size, OutOfStock: s.OutOfStock})
		}
		for _, v := range w.Availability.Variants {
			a.Variants = append(a.Variants, Variant{Color: v.Color, Size: v.Size, Stock: v.Stock, OutOfStock: v.OutOfStock})
		}
		p.Availability = a
	}
	return p
}

func normalizeCategory(w categoryWire) Category {
	return Category{
		ID:    firstNonEmpty(w.ID, w.LegacyID),
		Name:  w.Name,
		Slug:  w.Slug,
		Image: w.Image,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
