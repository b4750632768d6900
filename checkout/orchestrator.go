package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cairocart/storefront-go/cart"
	"github.com/cairocart/storefront-go/core"
	"github.com/cairocart/storefront-go/transport"
)

// storageKeyLastOrder holds the last submitted order for guest retrieval
// after a page refresh. Session-scoped via TTL.
const storageKeyLastOrder = "order:last"

const lastOrderTTL = 24 * time.Hour

// Form is the user-entered checkout state the orchestrator validates and
// composes into an order draft
type Form struct {
	Email       string
	FirstName   string
	LastName    string
	Address     string
	Apartment   string
	Phone       string
	PostalCode  string
	Governorate string

	CityID           string
	ShippingMethodID string
	PaymentMethodID  string

	// BillingDiffers toggles a distinct billing address. When set, empty
	// optional billing fields fall back to the shipping values.
	BillingDiffers     bool
	BillingFirstName   string
	BillingLastName    string
	BillingAddress     string
	BillingApartment   string
	BillingCity        string
	BillingGovernorate string
	BillingPostalCode  string
}

// ConfirmationRef is the URL-addressable id+email pair for guest order
// lookup after storage loss
type ConfirmationRef struct {
	OrderID string `json:"orderId"`
	Email   string `json:"email"`
}

// SubmitResult reports the interpreted outcome of a submission attempt
type SubmitResult struct {
	Order        *Order
	Confirmation ConfirmationRef

	// FieldErrors maps form field names to localized inline messages;
	// set only when validation fails before any network call
	FieldErrors map[string]string

	// Message is the general form error for unclassified failures
	Message string

	// DiscountMessage routes discount rejections to the discount-specific
	// UI state instead of the general form error
	DiscountMessage string

	// UpdateCartNeeded signals a stock conflict: the cart was not cleared
	// and the shopper should adjust quantities
	UpdateCartNeeded bool

	// RateLimited signals a 429 after the transport-level retry gave up
	RateLimited bool
}

// Orchestrator composes cart, shipping, payment, address, and discount
// state into an order submission. Submission is single-outstanding: a
// synchronous guard makes concurrent Submit calls a no-op.
type Orchestrator struct {
	cart    *cart.Store
	service *Service
	memory  core.Memory
	logger  core.Logger

	submitting atomic.Bool

	cities          []City
	shippingMethods []ShippingMethod
	paymentMethods  []PaymentMethod

	// Discount codes apply only when the store-level flag reports support;
	// otherwise Apply is a no-op surfacing an informational message.
	discountSupported bool
	discountApplied   bool
	discountCode      string
}

// NewOrchestrator creates a checkout orchestrator
func NewOrchestrator(cartStore *cart.Store, service *Service, memory core.Memory, logger core.Logger) *Orchestrator {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Orchestrator{
		cart:    cartStore,
		service: service,
		memory:  memory,
		logger:  logger,
	}
}

// LoadOptions fetches cities, shipping methods, and payment methods.
// Submission cannot validate until this has succeeded.
func (o *Orchestrator) LoadOptions(ctx context.Context) error {
	cities, err := o.service.Cities(ctx)
	if err != nil {
		return err
	}
	shipping, err := o.service.ShippingMethods(ctx)
	if err != nil {
		return err
	}
	payment, err := o.service.PaymentMethods(ctx)
	if err != nil {
		return err
	}

	o.cities = cities
	o.shippingMethods = shipping
	o.paymentMethods = payment
	return nil
}

// Cities returns the loaded city list
func (o *Orchestrator) Cities() []City { return o.cities }

// ShippingMethods returns the loaded shipping methods
func (o *Orchestrator) ShippingMethods() []ShippingMethod { return o.shippingMethods }

// PaymentMethods returns the loaded payment methods
func (o *Orchestrator) PaymentMethods() []PaymentMethod { return o.paymentMethods }

// SetDiscountSupport records the store-level discount-code feature flag
// (from GET settings)
func (o *Orchestrator) SetDiscountSupport(supported bool) {
	o.discountSupported = supported
}

// ApplyDiscount marks a code as applied. No client-side discount
// arithmetic happens; the authoritative computation is server-side and the
// code is merely attached to the order body. When the store does not
// support discount codes this is a no-op with an informational message.
func (o *Orchestrator) ApplyDiscount(code string) cart.Result {
	code = strings.TrimSpace(code)
	if !o.discountSupported {
		return cart.Result{Success: false, Message: "Discount codes are not available for this store."}
	}
	if code == "" {
		return cart.Result{Success: false, Message: "Enter a discount code."}
	}
	o.discountApplied = true
	o.discountCode = code
	return cart.Result{Success: true}
}

// RemoveDiscount reverts the applied state
func (o *Orchestrator) RemoveDiscount() {
	o.discountApplied = false
	o.discountCode = ""
}

// DiscountApplied reports whether a code is currently attached
func (o *Orchestrator) DiscountApplied() bool { return o.discountApplied }

// DeliveryFee resolves the fee for the current selection: the selected
// shipping method's explicit price when present, else the selected city's
// fee, else the first city's fee.
func (o *Orchestrator) DeliveryFee(form Form) float64 {
	if m := o.findShippingMethod(form.ShippingMethodID); m != nil && m.Price != nil {
		return *m.Price
	}
	if c := o.findCity(form.CityID); c != nil {
		return c.DeliveryFee
	}
	if len(o.cities) > 0 {
		return o.cities[0].DeliveryFee
	}
	return 0
}

// Total is subtotal plus delivery fee. Discount codes never change this
// client-side figure.
func (o *Orchestrator) Total(form Form) float64 {
	return o.cart.Subtotal() + o.DeliveryFee(form)
}

// Validate runs all submission preconditions and returns field-level
// errors. An empty map means the form may be submitted.
func (o *Orchestrator) Validate(form Form) map[string]string {
	errs := make(map[string]string)

	if o.cart.Count() == 0 {
		errs["cart"] = "Your cart is empty."
	}
	if !validEmail(form.Email) {
		errs["email"] = "Enter a valid email address."
	}
	if strings.TrimSpace(form.FirstName) == "" {
		errs["firstName"] = "First name is required."
	}
	if strings.TrimSpace(form.LastName) == "" {
		errs["lastName"] = "Last name is required."
	}
	if strings.TrimSpace(form.Address) == "" {
		errs["address"] = "Address is required."
	}
	if strings.TrimSpace(form.Phone) == "" {
		errs["phone"] = "Phone number is required."
	}
	if o.findCity(form.CityID) == nil {
		errs["city"] = "Select a city."
	}
	if len(o.shippingMethods) == 0 || o.findShippingMethod(form.ShippingMethodID) == nil {
		errs["shippingMethod"] = "Select a shipping method."
	}
	if len(o.paymentMethods) == 0 || o.findPaymentMethod(form.PaymentMethodID) == nil {
		errs["paymentMethod"] = "Select a payment method."
	}

	if form.BillingDiffers {
		if strings.TrimSpace(form.BillingFirstName) == "" {
			errs["billingFirstName"] = "Billing first name is required."
		}
		if strings.TrimSpace(form.BillingLastName) == "" {
			errs["billingLastName"] = "Billing last name is required."
		}
		if strings.TrimSpace(form.BillingAddress) == "" {
			errs["billingAddress"] = "Billing address is required."
		}
		if strings.TrimSpace(form.BillingCity) == "" {
			errs["billingCity"] = "Billing city is required."
		}
	}

	return errs
}

// BuildDraft composes the order payload from the cart and form state.
// Callers normally go through Submit; exposed for inspection and tests.
func (o *Orchestrator) BuildDraft(form Form) OrderDraft {
	snap := o.cart.Snapshot()

	items := make([]OrderItem, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		items = append(items, OrderItem{
			Product:  l.ProductID,
			Variant:  l.Variant,
			Quantity: l.Quantity,
			Price:    l.Price,
		})
	}

	shipping := StructuredAddress{
		Address:     strings.TrimSpace(form.Address),
		Apartment:   strings.TrimSpace(form.Apartment),
		City:        o.cityName(form.CityID),
		Governorate: strings.TrimSpace(form.Governorate),
		PostalCode:  strings.TrimSpace(form.PostalCode),
	}

	draft := OrderDraft{
		Items:               items,
		Email:               strings.TrimSpace(form.Email),
		FirstName:           strings.TrimSpace(form.FirstName),
		LastName:            strings.TrimSpace(form.LastName),
		Phone:               strings.TrimSpace(form.Phone),
		PaymentMethod:       form.PaymentMethodID,
		ShippingMethod:      form.ShippingMethodID,
		DeliveryFee:         o.DeliveryFee(form),
		ShippingAddress:     shipping,
		BillingAddress:      buildBillingAddress(form, shipping),
		SpecialInstructions: snap.SpecialInstructions,
	}

	// Attach the code only when supported AND applied AND non-empty;
	// otherwise the field stays omitted, never an empty string
	if o.discountSupported && o.discountApplied && o.discountCode != "" {
		draft.DiscountCode = o.discountCode
	}

	return draft
}

// buildBillingAddress returns nil when billing equals shipping, otherwise
// a fully-populated address with field-by-field fallback to shipping
// values for any empty billing field
func buildBillingAddress(form Form, shipping StructuredAddress) *StructuredAddress {
	if !form.BillingDiffers {
		return nil
	}
	return &StructuredAddress{
		Address:     fallback(form.BillingAddress, shipping.Address),
		Apartment:   fallback(form.BillingApartment, shipping.Apartment),
		City:        fallback(form.BillingCity, shipping.City),
		Governorate: fallback(form.BillingGovernorate, shipping.Governorate),
		PostalCode:  fallback(form.BillingPostalCode, shipping.PostalCode),
		Country:     shipping.Country,
	}
}

// Submit validates, builds the draft, posts it, and interprets the
// outcome. On success the cart (including special instructions) is cleared
// and the order is persisted for guest retrieval.
func (o *Orchestrator) Submit(ctx context.Context, form Form) (*SubmitResult, error) {
	// Double-submit guard: set synchronously before the network call,
	// cleared only on response/error
	if !o.submitting.CompareAndSwap(false, true) {
		return nil, core.ErrSubmitInProgress
	}
	defer o.submitting.Store(false)

	if fieldErrs := o.Validate(form); len(fieldErrs) > 0 {
		err := error(core.ErrValidationFailed)
		if _, empty := fieldErrs["cart"]; empty {
			err = fmt.Errorf("%w: %w", core.ErrCartEmpty, core.ErrValidationFailed)
		}
		return &SubmitResult{FieldErrors: fieldErrs}, err
	}

	draft := o.BuildDraft(form)
	order, err := o.service.Submit(ctx, draft)
	if err != nil {
		result := o.classifyFailure(err)
		switch {
		case result.UpdateCartNeeded:
			err = fmt.Errorf("%w: %w", core.ErrStockConflict, err)
		case result.DiscountMessage != "":
			err = fmt.Errorf("%w: %w", core.ErrDiscountRejected, err)
		}
		return result, err
	}

	// Success: the cart and its note are gone, the order is kept for the
	// confirmation view and guest lookup
	o.cart.Clear(ctx)
	o.persistLastOrder(ctx, order)

	return &SubmitResult{
		Order: order,
		Confirmation: ConfirmationRef{
			OrderID: order.ID,
			Email:   firstNonEmpty(order.Email, draft.Email),
		},
	}, nil
}

// Submitting reports whether a submission is in flight
func (o *Orchestrator) Submitting() bool {
	return o.submitting.Load()
}

// classifyFailure maps a submission error onto the distinguished UI states:
// rate limiting, stock conflict, discount rejection, or a generic message.
func (o *Orchestrator) classifyFailure(err error) *SubmitResult {
	result := &SubmitResult{}

	var apiErr *transport.APIError
	if !errors.As(err, &apiErr) {
		result.Message = transport.FallbackErrorMessage
		return result
	}

	switch {
	case errors.Is(apiErr, core.ErrRateLimited):
		result.RateLimited = true
		result.Message = "Too many attempts. Please try again in a moment."

	case apiErr.Status == 400 && hasStockWording(apiErr.Message):
		// The cart was not cleared; surface the update-cart affordance
		// rather than a generic error
		result.UpdateCartNeeded = true
		result.Message = apiErr.Message

	case apiErr.Status == 400 && hasDiscountWording(apiErr.Message):
		o.RemoveDiscount()
		result.DiscountMessage = apiErr.Message

	default:
		result.Message = apiErr.Message
	}

	o.logger.Warn("Order submission failed", map[string]interface{}{
		"operation":    "order_submit",
		"status":       apiErr.Status,
		"rate_limited": result.RateLimited,
		"stock":        result.UpdateCartNeeded,
	})
	return result
}

// LastOrder returns the persisted last-order snapshot, if any (fallback
// for the confirmation page after refresh)
func (o *Orchestrator) LastOrder(ctx context.Context) (*Order, bool) {
	if o.memory == nil {
		return nil, false
	}
	raw, err := o.memory.Get(ctx, storageKeyLastOrder)
	if err != nil || raw == "" {
		return nil, false
	}
	var order Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, false
	}
	return &order, true
}

func (o *Orchestrator) persistLastOrder(ctx context.Context, order *Order) {
	if o.memory == nil {
		return
	}
	data, err := json.Marshal(order)
	if err == nil {
		err = o.memory.Set(ctx, storageKeyLastOrder, string(data), lastOrderTTL)
	}
	if err != nil {
		o.logger.Debug("Last-order persistence failed", map[string]interface{}{
			"operation": "order_persist",
			"error":     err.Error(),
		})
	}
}

func (o *Orchestrator) findCity(id string) *City {
	for i := range o.cities {
		if o.cities[i].ID == id {
			return &o.cities[i]
		}
	}
	return nil
}

func (o *Orchestrator) cityName(id string) string {
	if c := o.findCity(id); c != nil {
		return c.Name
	}
	return ""
}

func (o *Orchestrator) findShippingMethod(id string) *ShippingMethod {
	for i := range o.shippingMethods {
		if o.shippingMethods[i].ID == id {
			return &o.shippingMethods[i]
		}
	}
	return nil
}

func (o *Orchestrator) findPaymentMethod(id string) *PaymentMethod {
	for i := range o.paymentMethods {
		if o.paymentMethods[i].ID == id {
			return &o.paymentMethods[i]
		}
	}
	return nil
}

func hasStockWording(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "stock") || strings.Contains(m, "sold out")
}

func hasDiscountWording(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "discount") || strings.Contains(m, "coupon") ||
		strings.Contains(m, "promo")
}

func fallback(value, shipping string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return shipping
}

// validEmail is the same lightweight shape check the form UI uses; the
// backend remains the authority
func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at < 1 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
