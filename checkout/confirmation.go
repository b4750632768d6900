package checkout

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pure derivations for the order confirmation view. No network calls
// happen here; the order record is whatever was fetched or persisted.

// CustomerDisplayName resolves the name to greet the shopper with:
// the order's firstName, else the first token of the legacy guestName,
// else the first token of the signed-in user's name, else empty.
func CustomerDisplayName(order *Order, userName string) string {
	if order != nil {
		if order.FirstName != "" {
			return order.FirstName
		}
		if token := firstToken(order.GuestName); token != "" {
			return token
		}
	}
	return firstToken(userName)
}

// AddressLines renders a structured address as ordered non-empty lines:
// street, apartment, "city, governorate", postal code.
func AddressLines(addr *StructuredAddress) []string {
	if addr == nil {
		return nil
	}

	var lines []string
	if addr.Address != "" {
		lines = append(lines, addr.Address)
	}
	if addr.Apartment != "" {
		lines = append(lines, addr.Apartment)
	}
	if locality := joinNonEmpty(", ", addr.City, addr.Governorate); locality != "" {
		lines = append(lines, locality)
	}
	if addr.PostalCode != "" {
		lines = append(lines, addr.PostalCode)
	}
	return lines
}

// LegacyAddressLines splits a legacy flat address on commas, trimming each
// segment and dropping empty ones
func LegacyAddressLines(address string) []string {
	var lines []string
	for _, segment := range strings.Split(address, ",") {
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// ShippingLines renders the order's shipping address, preferring the
// structured form over the legacy flat string
func ShippingLines(order *Order) []string {
	if order == nil {
		return nil
	}
	if order.ShippingAddress != nil {
		return AddressLines(order.ShippingAddress)
	}
	return LegacyAddressLines(order.LegacyAddress)
}

// BillingLines renders the billing address, defaulting to the shipping
// lines when no distinct billing address is present
func BillingLines(order *Order) []string {
	if order == nil {
		return nil
	}
	if order.BillingAddress != nil {
		return AddressLines(order.BillingAddress)
	}
	return ShippingLines(order)
}

// ShippingMethodLabel capitalizes the stored method id for display, or
// "Standard" when absent
func ShippingMethodLabel(order *Order) string {
	if order == nil || order.ShippingMethod == "" {
		return "Standard"
	}
	method := order.ShippingMethod
	r, size := utf8.DecodeRuneInString(method)
	return string(unicode.ToUpper(r)) + method[size:]
}

// PaymentLabel maps the stored payment method to its display label
func PaymentLabel(order *Order) string {
	if order == nil {
		return ""
	}
	if order.PaymentMethod == "COD" {
		return "Cash on Delivery (COD)"
	}
	return order.PaymentMethod
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
