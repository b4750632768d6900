package checkout

import (
	"context"
	"net/url"

	"github.com/cairocart/storefront-go/core"
	"github.com/cairocart/storefront-go/transport"
)

// Service exposes the checkout and order endpoints
type Service struct {
	client *transport.Client
	logger core.Logger
}

// NewService creates a checkout service over the shared transport client
func NewService(client *transport.Client, logger core.Logger) *Service {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Service{client: client, logger: logger}
}

// Cities fetches the deliverable cities (GET cities)
func (s *Service) Cities(ctx context.Context) ([]City, error) {
	var wire []cityWire
	if _, err := s.client.Get(ctx, "cities", nil, &wire); err != nil {
		return nil, core.NewStoreError("checkout.Cities", "checkout", err)
	}

	cities := make([]City, 0, len(wire))
	for _, w := range wire {
		cities = append(cities, City{
			ID:          firstNonEmpty(w.ID, w.LegacyID),
			Name:        w.Name,
			Governorate: w.Governorate,
			DeliveryFee: w.DeliveryFee,
		})
	}
	return cities, nil
}

// ShippingMethods fetches the delivery options (GET shipping-methods)
func (s *Service) ShippingMethods(ctx context.Context) ([]ShippingMethod, error) {
	var wire []shippingMethodWire
	if _, err := s.client.Get(ctx, "shipping-methods", nil, &wire); err != nil {
		return nil, core.NewStoreError("checkout.ShippingMethods", "checkout", err)
	}

	methods := make([]ShippingMethod, 0, len(wire))
	for _, w := range wire {
		methods = append(methods, ShippingMethod{
			ID:    firstNonEmpty(w.ID, w.LegacyID),
			Name:  w.Name,
			Price: w.Price,
		})
	}
	return methods, nil
}

// PaymentMethods fetches the payment options (GET payment-methods)
func (s *Service) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	var wire []paymentMethodWire
	if _, err := s.client.Get(ctx, "payment-methods", nil, &wire); err != nil {
		return nil, core.NewStoreError("checkout.PaymentMethods", "checkout", err)
	}

	methods := make([]PaymentMethod, 0, len(wire))
	for _, w := range wire {
		methods = append(methods, PaymentMethod{
			ID:   firstNonEmpty(w.ID, w.LegacyID),
			Name: w.Name,
		})
	}
	return methods, nil
}

// Submit posts the order draft (POST orders) and returns the created order
func (s *Service) Submit(ctx context.Context, draft OrderDraft) (*Order, error) {
	var wire orderWire
	if err := s.client.Post(ctx, "orders", draft, &wire); err != nil {
		return nil, err
	}

	order := normalizeOrder(wire)
	s.logger.Info("Order submitted", map[string]interface{}{
		"operation": "order_submit",
		"order_id":  order.ID,
		"total":     order.Total,
	})
	return &order, nil
}

// Orders fetches the authenticated user's order history (GET orders)
func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	var wire orderListWire
	if _, err := s.client.Get(ctx, "orders", nil, &wire); err != nil {
		return nil, core.NewStoreError("checkout.Orders", "checkout", err)
	}

	orders := make([]Order, 0, len(wire.items))
	for _, w := range wire.items {
		orders = append(orders, normalizeOrder(w))
	}
	return orders, nil
}

// Order fetches one order by id (GET orders/:id, authenticated)
func (s *Service) Order(ctx context.Context, id string) (*Order, error) {
	var wire orderWire
	if _, err := s.client.Get(ctx, "orders/"+url.PathEscape(id), nil, &wire); err != nil {
		return nil, &core.StoreError{Op: "checkout.Order", Kind: "checkout", ID: id, Err: err}
	}
	order := normalizeOrder(wire)
	return &order, nil
}

// GuestOrder fetches an order for an unauthenticated shopper by id+email
// (GET orders/guest/:id). The email pair is the URL-addressable fallback
// for guest lookup after storage loss.
func (s *Service) GuestOrder(ctx context.Context, id, email string) (*Order, error) {
	q := url.Values{}
	if email != "" {
		q.Set("email", email)
	}
	var wire orderWire
	if _, err := s.client.Get(ctx, "orders/guest/"+url.PathEscape(id), q, &wire); err != nil {
		return nil, &core.StoreError{Op: "checkout.GuestOrder", Kind: "checkout", ID: id, Err: err}
	}
	order := normalizeOrder(wire)
	return &order, nil
}
