package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/cairocart/storefront-go/core"
	"github.com/cairocart/storefront-go/transport"
)

// Service exposes the product and category endpoints
type Service struct {
	client *transport.Client
	logger core.Logger
}

// NewService creates a catalog service over the shared transport client
func NewService(client *transport.Client, logger core.Logger) *Service {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Service{client: client, logger: logger}
}

// ListOptions filters and paginates product listings
type ListOptions struct {
	Category string
	Search   string
	Sort     string
	Page     int
	PerPage  int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Category != "" {
		q.Set("category", o.Category)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		q.Set("perPage", strconv.Itoa(o.PerPage))
	}
	return q
}

// List fetches a page of products (GET products)
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Product, *transport.Pagination, error) {
	var wire productListWire
	pag, err := s.client.Get(ctx, "products", opts.query(), &wire)
	if err != nil {
		return nil, nil, core.NewStoreError("catalog.List", "catalog", err)
	}

	products := make([]Product, 0, len(wire.items))
	for _, w := range wire.items {
		products = append(products, normalizeProduct(w))
	}

	s.logger.Debug("Products listed", map[string]interface{}{
		"operation": "catalog_list",
		"count":     len(products),
	})
	return products, pag, nil
}

// Get fetches a single product (GET products/:id)
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, core.NewStoreError("catalog.Get", "catalog", core.ErrNotFound)
	}

	var wire productWire
	if _, err := s.client.Get(ctx, "products/"+url.PathEscape(id), nil, &wire); err != nil {
		return nil, &core.StoreError{Op: "catalog.Get", Kind: "catalog", ID: id, Err: err}
	}

	p := normalizeProduct(wire)
	if p.ID == "" {
		return nil, &core.StoreError{Op: "catalog.Get", Kind: "catalog", ID: id,
			Err: fmt.Errorf("product missing id: %w", core.ErrNotFound)}
	}
	return &p, nil
}

// Related fetches products related to the given one (GET products/:id/related)
func (s *Service) Related(ctx context.Context, id string) ([]Product, error) {
	var wire productListWire
	if _, err := s.client.Get(ctx, "products/"+url.PathEscape(id)+"/related", nil, &wire); err != nil {
		return nil, &core.StoreError{Op: "catalog.Related", Kind: "catalog", ID: id, Err: err}
	}

	products := make([]Product, 0, len(wire.items))
	for _, w := range wire.items {
		products = append(products, normalizeProduct(w))
	}
	return products, nil
}

// Categories fetches the category tree (GET categories)
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	var wire categoryListWire
	if _, err := s.client.Get(ctx, "categories", nil, &wire); err != nil {
		return nil, core.NewStoreError("catalog.Categories", "catalog", err)
	}

	categories := make([]Category, 0, len(wire.items))
	for _, w := range wire.items {
		categories = append(categories, normalizeCategory(w))
	}
	return categories, nil
}
