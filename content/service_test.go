package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairocart/storefront-go/core"
	"github.com/cairocart/storefront-go/transport"
)

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := transport.NewClient(server.URL, 5*time.Second)
	require.NoError(t, err)
	return NewService(client, core.NewMemoryStore(), nil)
}

func TestService_Settings(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/settings", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{
			"storeName":"Cairo Cart","currency":"EGP","discountCodeSupported":true
		}}`))
	}))

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cairo Cart", settings.StoreName)
	assert.Equal(t, "EGP", settings.Currency)
	assert.True(t, settings.DiscountCodeSupported)
}

func TestService_Home(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/store/home", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{
			"featuredProducts":["p1","p2"],
			"categories":["c1"],
			"banners":[{"title":"Summer Sale","image":"sale.jpg","link":"/sale"}]
		}}`))
	}))

	home, err := svc.Home(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, home.FeaturedProductIDs)
	require.Len(t, home.Banners, 1)
	assert.Equal(t, "Summer Sale", home.Banners[0].Title)
}

func TestService_Page_CachesSlug(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/store/page/about-us", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"_id":"pg1","title":"About Us","body":"..."}}`))
	}))
	ctx := context.Background()

	page, err := svc.Page(ctx, "about-us")
	require.NoError(t, err)
	assert.Equal(t, "pg1", page.ID)
	assert.Equal(t, "About Us", page.Title)

	// The response omitted the slug; the requested one fills in
	assert.Equal(t, "about-us", page.Slug)

	id, ok := svc.PageID(ctx, "about-us")
	require.True(t, ok)
	assert.Equal(t, "pg1", id)

	_, ok = svc.PageID(ctx, "never-fetched")
	assert.False(t, ok)
}

func TestService_SubscribeNewsletter(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/newsletter/subscribe", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "shopper@example.com", body["email"])

		w.Write([]byte(`{"success":true}`))
	}))

	err := svc.SubscribeNewsletter(context.Background(), "shopper@example.com")
	require.NoError(t, err)
}

func TestService_Contact(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/store/contact", r.URL.Path)

		var input ContactInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "Where is my order?", input.Message)

		w.Write([]byte(`{"success":true}`))
	}))

	err := svc.Contact(context.Background(), ContactInput{
		Name: "Nour", Email: "n@example.com", Message: "Where is my order?",
	})
	require.NoError(t, err)
}

func TestService_Contact_Failure(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Message is required"}`))
	}))

	err := svc.Contact(context.Background(), ContactInput{})
	require.Error(t, err)

	var storeErr *core.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "content.Contact", storeErr.Op)
}
