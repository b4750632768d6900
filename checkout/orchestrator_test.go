package checkout

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairocart/storefront-go/cart"
	"github.com/cairocart/storefront-go/core"
	"github.com/cairocart/storefront-go/transport"
)

// checkoutFixture wires an orchestrator over an httptest backend with one
// city, one priced and one unpriced shipping method, and COD payment.
type checkoutFixture struct {
	orch   *Orchestrator
	cart   *cart.Store
	memory *core.MemoryStore

	// ordersHandler serves POST /orders; tests swap it to simulate failures
	ordersHandler http.HandlerFunc

	// lastDraft captures the submitted payload for inspection
	lastDraft []byte
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	f := &checkoutFixture{memory: core.NewMemoryStore()}
	f.ordersHandler = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{
			"id":"order-1","email":"shopper@example.com","firstName":"Nour",
			"total":260,"status":"pending","paymentMethod":"COD"
		}}`))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/cities", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[
			{"_id":"cairo","name":"Cairo","governorate":"Cairo","deliveryFee":60},
			{"_id":"giza","name":"Giza","governorate":"Giza","deliveryFee":80}
		]}`))
	})
	mux.HandleFunc("/shipping-methods", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[
			{"id":"standard","name":"Standard"},
			{"id":"express","name":"Express","price":120}
		]}`))
	})
	mux.HandleFunc("/payment-methods", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[{"id":"COD","name":"Cash on Delivery"}]}`))
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		f.lastDraft, _ = io.ReadAll(r.Body)
		f.ordersHandler(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	// Fast retry settings keep the 429 tests from sleeping
	client, err := transport.NewClient(server.URL, 5*time.Second,
		transport.WithRetryAfter(5*time.Millisecond, time.Millisecond))
	require.NoError(t, err)

	f.cart = cart.NewStore(f.memory, nil)
	f.orch = NewOrchestrator(f.cart, NewService(client, nil), f.memory, nil)
	require.NoError(t, f.orch.LoadOptions(context.Background()))
	return f
}

func validForm() Form {
	return Form{
		Email:            "shopper@example.com",
		FirstName:        "Nour",
		LastName:         "Hassan",
		Address:          "12 Tahrir St",
		Phone:            "+201000000000",
		CityID:           "cairo",
		ShippingMethodID: "standard",
		PaymentMethodID:  "COD",
	}
}

func (f *checkoutFixture) fillCart(t *testing.T) {
	t.Helper()
	res := f.cart.Add(context.Background(), cart.Line{
		ProductID: "p1", Variant: "Red / M", Quantity: 2, Price: 100,
	}, 0)
	require.True(t, res.Success)
}

func TestOrchestrator_LoadOptions(t *testing.T) {
	f := newCheckoutFixture(t)

	require.Len(t, f.orch.Cities(), 2)
	assert.Equal(t, "cairo", f.orch.Cities()[0].ID)
	require.Len(t, f.orch.ShippingMethods(), 2)
	require.Len(t, f.orch.PaymentMethods(), 1)
}

func TestOrchestrator_DeliveryFee(t *testing.T) {
	f := newCheckoutFixture(t)

	// Method price wins when present
	assert.Equal(t, 120.0, f.orch.DeliveryFee(Form{ShippingMethodID: "express", CityID: "giza"}))

	// Unpriced method falls back to the selected city
	assert.Equal(t, 80.0, f.orch.DeliveryFee(Form{ShippingMethodID: "standard", CityID: "giza"}))

	// No city selected falls back to the first city
	assert.Equal(t, 60.0, f.orch.DeliveryFee(Form{ShippingMethodID: "standard"}))
}

func TestOrchestrator_Total(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)

	form := validForm()
	assert.Equal(t, 260.0, f.orch.Total(form)) // 200 subtotal + 60 Cairo fee
}

func TestOrchestrator_Validate(t *testing.T) {
	f := newCheckoutFixture(t)

	// Empty cart and empty form: everything is flagged
	errs := f.orch.Validate(Form{})
	for _, field := range []string{"cart", "email", "firstName", "lastName", "address", "phone", "city", "shippingMethod", "paymentMethod"} {
		assert.Contains(t, errs, field)
	}

	f.fillCart(t)
	assert.Empty(t, f.orch.Validate(validForm()))
}

func TestOrchestrator_Validate_Email(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)

	for _, email := range []string{"", "plain", "@nope.com", "two@@at.com", "no-dot@domain", "trailing-dot@domain."} {
		form := validForm()
		form.Email = email
		assert.Contains(t, f.orch.Validate(form), "email", "email %q should be rejected", email)
	}

	form := validForm()
	form.Email = " shopper@example.com "
	assert.Empty(t, f.orch.Validate(form))
}

func TestOrchestrator_Validate_BillingFields(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)

	form := validForm()
	form.BillingDiffers = true

	errs := f.orch.Validate(form)
	for _, field := range []string{"billingFirstName", "billingLastName", "billingAddress", "billingCity"} {
		assert.Contains(t, errs, field)
	}

	form.BillingFirstName = "Omar"
	form.BillingLastName = "Aly"
	form.BillingAddress = "5 Nile St"
	form.BillingCity = "Giza"
	assert.Empty(t, f.orch.Validate(form))
}

func TestOrchestrator_BuildDraft_BillingFallback(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)

	form := validForm()
	form.Governorate = "Cairo"
	form.PostalCode = "11511"
	form.BillingDiffers = true
	form.BillingFirstName = "Omar"
	form.BillingLastName = "Aly"
	form.BillingAddress = "5 Nile St"
	form.BillingCity = "Giza"
	// Governorate and postal code left empty: they fall back field-by-field

	draft := f.orch.BuildDraft(form)
	require.NotNil(t, draft.BillingAddress)
	assert.Equal(t, "5 Nile St", draft.BillingAddress.Address)
	assert.Equal(t, "Giza", draft.BillingAddress.City)
	assert.Equal(t, "Cairo", draft.BillingAddress.Governorate)
	assert.Equal(t, "11511", draft.BillingAddress.PostalCode)
}

func TestOrchestrator_BuildDraft_BillingNullWhenSame(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)

	draft := f.orch.BuildDraft(validForm())
	assert.Nil(t, draft.BillingAddress)

	// And the JSON field is an explicit null, not omitted
	data, err := json.Marshal(draft)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"billingAddress":null`)
}

func TestOrchestrator_BuildDraft_DiscountCode(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)

	// Unsupported store: Apply is a no-op and the field stays omitted
	res := f.orch.ApplyDiscount("SAVE10")
	assert.False(t, res.Success)
	assert.Equal(t, "Discount codes are not available for this store.", res.Message)

	data, err := json.Marshal(f.orch.BuildDraft(validForm()))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "discountCode")

	// Supported and applied: the code rides along
	f.orch.SetDiscountSupport(true)
	require.True(t, f.orch.ApplyDiscount(" SAVE10 ").Success)

	draft := f.orch.BuildDraft(validForm())
	assert.Equal(t, "SAVE10", draft.DiscountCode)

	// Removed again: omitted again
	f.orch.RemoveDiscount()
	data, err = json.Marshal(f.orch.BuildDraft(validForm()))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "discountCode")
}

func TestOrchestrator_ApplyDiscount_EmptyCode(t *testing.T) {
	f := newCheckoutFixture(t)
	f.orch.SetDiscountSupport(true)

	res := f.orch.ApplyDiscount("   ")
	assert.False(t, res.Success)
	assert.Equal(t, "Enter a discount code.", res.Message)
	assert.False(t, f.orch.DiscountApplied())
}

func TestOrchestrator_Submit_Success(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)
	f.cart.SetSpecialInstructions(context.Background(), "Ring twice")

	result, err := f.orch.Submit(context.Background(), validForm())
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.Equal(t, "order-1", result.Order.ID)
	assert.Equal(t, "order-1", result.Confirmation.OrderID)
	assert.Equal(t, "shopper@example.com", result.Confirmation.Email)

	// The cart and its note are cleared on success
	assert.Equal(t, 0, f.cart.Count())
	assert.Empty(t, f.cart.SpecialInstructions())

	// The order is persisted for guest retrieval after refresh
	last, ok := f.orch.LastOrder(context.Background())
	require.True(t, ok)
	assert.Equal(t, "order-1", last.ID)

	// The submitted draft carried the cart line and the note
	var draft OrderDraft
	require.NoError(t, json.Unmarshal(f.lastDraft, &draft))
	require.Len(t, draft.Items, 1)
	assert.Equal(t, "p1", draft.Items[0].Product)
	assert.Equal(t, "Red / M", draft.Items[0].Variant)
	assert.Equal(t, "Ring twice", draft.SpecialInstructions)
	assert.Equal(t, 60.0, draft.DeliveryFee)
	assert.Equal(t, "Cairo", draft.ShippingAddress.City)
}

func TestOrchestrator_Submit_ValidationStopsBeforeNetwork(t *testing.T) {
	f := newCheckoutFixture(t)
	f.ordersHandler = func(w http.ResponseWriter, r *http.Request) {
		t.Error("no order should be posted when validation fails")
	}

	result, err := f.orch.Submit(context.Background(), Form{})
	require.ErrorIs(t, err, core.ErrValidationFailed)
	assert.ErrorIs(t, err, core.ErrCartEmpty)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.FieldErrors)
}

func TestOrchestrator_Submit_ValidFormEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.orch.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, core.ErrCartEmpty)
}

func TestOrchestrator_Submit_PopulatedCartIsNotEmptyError(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)

	form := validForm()
	form.Email = ""
	_, err := f.orch.Submit(context.Background(), form)
	require.ErrorIs(t, err, core.ErrValidationFailed)
	assert.NotErrorIs(t, err, core.ErrCartEmpty)
}

func TestOrchestrator_Submit_DoubleSubmitGuard(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)

	f.orch.submitting.Store(true)
	_, err := f.orch.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, core.ErrSubmitInProgress)
	assert.True(t, f.orch.Submitting())

	// Guard released: submission goes through
	f.orch.submitting.Store(false)
	_, err = f.orch.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.False(t, f.orch.Submitting())
}

func TestOrchestrator_Submit_StockConflict(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)
	f.ordersHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Product Linen Shirt is out of stock"}`))
	}

	result, err := f.orch.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStockConflict)
	assert.True(t, result.UpdateCartNeeded)
	assert.Equal(t, "Product Linen Shirt is out of stock", result.Message)

	// The cart survives a stock conflict so the shopper can adjust it
	assert.Equal(t, 2, f.cart.Count())
}

func TestOrchestrator_Submit_GenericBadRequestIsNotStock(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)
	f.ordersHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid shipping method"}`))
	}

	result, err := f.orch.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.False(t, result.UpdateCartNeeded)
	assert.False(t, result.RateLimited)
	assert.Equal(t, "Invalid shipping method", result.Message)
}

func TestOrchestrator_Submit_DiscountRejection(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)
	f.orch.SetDiscountSupport(true)
	require.True(t, f.orch.ApplyDiscount("EXPIRED").Success)

	f.ordersHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Discount code has expired"}`))
	}

	result, err := f.orch.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDiscountRejected)
	assert.Equal(t, "Discount code has expired", result.DiscountMessage)
	assert.Empty(t, result.Message)

	// The rejected code is detached so the next attempt goes without it
	assert.False(t, f.orch.DiscountApplied())
}

func TestOrchestrator_Submit_RateLimited(t *testing.T) {
	f := newCheckoutFixture(t)
	f.fillCart(t)
	f.ordersHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"Too many requests"}`))
	}

	result, err := f.orch.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.True(t, result.RateLimited)
	assert.Equal(t, "Too many attempts. Please try again in a moment.", result.Message)

	// Rate limiting does not clear the cart either
	assert.Equal(t, 2, f.cart.Count())
}

func TestOrchestrator_LastOrder_Empty(t *testing.T) {
	f := newCheckoutFixture(t)

	_, ok := f.orch.LastOrder(context.Background())
	assert.False(t, ok)
}
