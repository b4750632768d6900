package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairocart/storefront-go/transport"
)

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := transport.NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)
	return NewService(client, nil)
}

func TestService_Orders(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"orders":[
			{"_id":"o1","total":260,"status":"pending"},
			{"id":"o2","total":90,"status":"delivered"}
		]}}`))
	}))

	orders, err := svc.Orders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, "delivered", orders[1].Status)
}

func TestService_GuestOrder(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/guest/o1", r.URL.Path)
		assert.Equal(t, "shopper@example.com", r.URL.Query().Get("email"))
		w.Write([]byte(`{"success":true,"data":{"id":"o1","email":"shopper@example.com","total":260}}`))
	}))

	order, err := svc.GuestOrder(context.Background(), "o1", "shopper@example.com")
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
	assert.Equal(t, 260.0, order.Total)
}

func TestService_ShippingMethods_OptionalPrice(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[
			{"id":"standard","name":"Standard"},
			{"id":"express","name":"Express","price":120}
		]}`))
	}))

	methods, err := svc.ShippingMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Nil(t, methods[0].Price)
	require.NotNil(t, methods[1].Price)
	assert.Equal(t, 120.0, *methods[1].Price)
}
