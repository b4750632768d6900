// Package checkout implements the checkout flow: shipping/payment option
// loading, order draft composition and validation, submission with failure
// classification, and the pure order-confirmation derivations.
package checkout

import (
	"encoding/json"
	"time"
)

// City is a deliverable city with its delivery fee
type City struct {
	ID          string
	Name        string
	Governorate string
	DeliveryFee float64
}

// ShippingMethod is a selectable delivery option. Price is optional; when
// absent the selected city's delivery fee applies.
type ShippingMethod struct {
	ID    string
	Name  string
	Price *float64
}

// PaymentMethod is a selectable payment option
type PaymentMethod struct {
	ID   string
	Name string
}

// StructuredAddress is the multi-field postal address format used for
// shipping and billing, as opposed to a legacy flat string.
type StructuredAddress struct {
	Address     string `json:"address"`
	Apartment   string `json:"apartment,omitempty"`
	City        string `json:"city"`
	Governorate string `json:"governorate"`
	PostalCode  string `json:"postalCode,omitempty"`
	Country     string `json:"country,omitempty"`
}

// OrderItem is one purchased line in an order payload
type OrderItem struct {
	Product  string  `json:"product"`
	Variant  string  `json:"variant,omitempty"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderDraft is the order-submission payload built at submit time.
// BillingAddress is null when billing equals shipping; otherwise it is a
// fully-populated structured address (empty optional billing fields fall
// back to shipping values field-by-field, never partially null).
// DiscountCode is omitted entirely, not sent as an empty string, unless
// discount codes are supported and one was applied.
type OrderDraft struct {
	Items               []OrderItem        `json:"items"`
	Email               string             `json:"email"`
	FirstName           string             `json:"firstName"`
	LastName            string             `json:"lastName"`
	Phone               string             `json:"phone"`
	PaymentMethod       string             `json:"paymentMethod"`
	ShippingMethod      string             `json:"shippingMethod"`
	DeliveryFee         float64            `json:"deliveryFee"`
	ShippingAddress     StructuredAddress  `json:"shippingAddress"`
	BillingAddress      *StructuredAddress `json:"billingAddress"`
	DiscountCode        string             `json:"discountCode,omitempty"`
	SpecialInstructions string             `json:"specialInstructions,omitempty"`
}

// Order is the canonical persisted order record
type Order struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	GuestName       string // legacy single-field name
	Items           []OrderItem
	Subtotal        float64
	DeliveryFee     float64
	Total           float64
	PaymentMethod   string
	ShippingMethod  string
	ShippingAddress *StructuredAddress
	BillingAddress  *StructuredAddress
	LegacyAddress   string // legacy flat comma-separated address
	Status          string
	CreatedAt       time.Time
}

// --- wire shapes ---

type orderWire struct {
	ID              string             `json:"id"`
	LegacyID        string             `json:"_id"`
	Email           string             `json:"email"`
	FirstName       string             `json:"firstName"`
	LastName        string             `json:"lastName"`
	GuestName       string             `json:"guestName"`
	Items           []OrderItem        `json:"items"`
	Subtotal        float64            `json:"subtotal"`
	DeliveryFee     float64            `json:"deliveryFee"`
	Total           float64            `json:"total"`
	PaymentMethod   string             `json:"paymentMethod"`
	ShippingMethod  string             `json:"shippingMethod"`
	ShippingAddress *StructuredAddress `json:"shippingAddress"`
	BillingAddress  *StructuredAddress `json:"billingAddress"`
	LegacyAddress   string             `json:"address"`
	Status          string             `json:"status"`
	CreatedAt       time.Time          `json:"createdAt"`
}

func normalizeOrder(w orderWire) Order {
	return Order{
		ID:              firstNonEmpty(w.ID, w.LegacyID),
		Email:           w.Email,
		FirstName:       w.FirstName,
		LastName:        w.LastName,
		GuestName:       w.GuestName,
		Items:           w.Items,
		Subtotal:        w.Subtotal,
		DeliveryFee:     w.DeliveryFee,
		Total:           w.Total,
		PaymentMethod:   w.PaymentMethod,
		ShippingMethod:  w.ShippingMethod,
		ShippingAddress: w.ShippingAddress,
		BillingAddress:  w.BillingAddress,
		LegacyAddress:   w.LegacyAddress,
		Status:          w.Status,
		CreatedAt:       w.CreatedAt,
	}
}

type cityWire struct {
	ID          string  `json:"id"`
	LegacyID    string  `json:"_id"`
	Name        string  `json:"name"`
	Governorate string  `json:"governorate"`
	DeliveryFee float64 `json:"deliveryFee"`
}

type shippingMethodWire struct {
	ID       string   `json:"id"`
	LegacyID string   `json:"_id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
}

type paymentMethodWire struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Name     string `json:"name"`
}

type orderListWire struct {
	items []orderWire
}

func (w *orderListWire) UnmarshalJSON(data []byte) error {
	var flat []orderWire
	if err := json.Unmarshal(data, &flat); err == nil {
		w.items = flat
		return nil
	}
	var nested struct {
		Orders []orderWire `json:"orders"`
		Items  []orderWire `json:"items"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}
	if nested.Orders != nil {
		w.items = nested.Orders
	} else {
		w.items = nested.Items
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
