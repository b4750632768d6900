package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomerDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		order    *Order
		userName string
		want     string
	}{
		{
			name:  "order first name wins",
			order: &Order{FirstName: "Nour", GuestName: "Omar Aly"},
			want:  "Nour",
		},
		{
			name:  "legacy guest name first token",
			order: &Order{GuestName: "Omar Aly"},
			want:  "Omar",
		},
		{
			name:     "signed-in user name as last resort",
			order:    &Order{},
			userName: "Salma Fathy",
			want:     "Salma",
		},
		{
			name:     "nil order",
			order:    nil,
			userName: "Salma Fathy",
			want:     "Salma",
		},
		{
			name:  "nothing available",
			order: &Order{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CustomerDisplayName(tt.order, tt.userName))
		})
	}
}

func TestAddressLines(t *testing.T) {
	full := &StructuredAddress{
		Address:     "12 Tahrir St",
		Apartment:   "Apt 4B",
		City:        "Cairo",
		Governorate: "Cairo",
		PostalCode:  "11511",
	}
	assert.Equal(t, []string{"12 Tahrir St", "Apt 4B", "Cairo, Cairo", "11511"}, AddressLines(full))

	minimal := &StructuredAddress{Address: "12 Tahrir St", City: "Cairo"}
	assert.Equal(t, []string{"12 Tahrir St", "Cairo"}, AddressLines(minimal))

	assert.Nil(t, AddressLines(nil))
}

func TestLegacyAddressLines(t *testing.T) {
	assert.Equal(t,
		[]string{"12 Tahrir St", "Cairo", "Egypt"},
		LegacyAddressLines("12 Tahrir St, Cairo , Egypt"))

	// Empty segments between commas are dropped
	assert.Equal(t, []string{"Cairo"}, LegacyAddressLines(", Cairo,, "))
	assert.Empty(t, LegacyAddressLines(""))
}

func TestShippingAndBillingLines(t *testing.T) {
	shipping := &StructuredAddress{Address: "12 Tahrir St", City: "Cairo"}
	billing := &StructuredAddress{Address: "5 Nile St", City: "Giza"}

	t.Run("structured preferred over legacy", func(t *testing.T) {
		order := &Order{ShippingAddress: shipping, LegacyAddress: "ignored, flat"}
		assert.Equal(t, []string{"12 Tahrir St", "Cairo"}, ShippingLines(order))
	})

	t.Run("legacy fallback", func(t *testing.T) {
		order := &Order{LegacyAddress: "12 Tahrir St, Cairo"}
		assert.Equal(t, []string{"12 Tahrir St", "Cairo"}, ShippingLines(order))
	})

	t.Run("billing defaults to shipping", func(t *testing.T) {
		order := &Order{ShippingAddress: shipping}
		assert.Equal(t, ShippingLines(order), BillingLines(order))
	})

	t.Run("distinct billing address", func(t *testing.T) {
		order := &Order{ShippingAddress: shipping, BillingAddress: billing}
		assert.Equal(t, []string{"5 Nile St", "Giza"}, BillingLines(order))
	})

	assert.Nil(t, ShippingLines(nil))
	assert.Nil(t, BillingLines(nil))
}

func TestShippingMethodLabel(t *testing.T) {
	assert.Equal(t, "Express", ShippingMethodLabel(&Order{ShippingMethod: "express"}))
	assert.Equal(t, "Standard", ShippingMethodLabel(&Order{}))
	assert.Equal(t, "Standard", ShippingMethodLabel(nil))

	// First rune may be multi-byte
	assert.Equal(t, "Économique", ShippingMethodLabel(&Order{ShippingMethod: "économique"}))
}

func TestPaymentLabel(t *testing.T) {
	assert.Equal(t, "Cash on Delivery (COD)", PaymentLabel(&Order{PaymentMethod: "COD"}))
	assert.Equal(t, "card", PaymentLabel(&Order{PaymentMethod: "card"}))
	assert.Equal(t, "", PaymentLabel(nil))
}
