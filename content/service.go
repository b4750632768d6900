// Package content implements the store-content endpoints: the home page
// composition, CMS pages by slug (with a session-scoped slug→id cache),
// store settings, newsletter subscription, and the contact form.
package content

import (
	"context"
	"net/url"
	"time"

	"github.com/cairocart/storefront-go/core"
	"github.com/cairocart/storefront-go/transport"
)

const slugCacheTTL = 30 * time.Minute

// Settings is the store-level configuration (GET settings). The
// DiscountCodeSupported flag gates whether checkout attempts promo codes
// at all.
type Settings struct {
	StoreName             string `json:"storeName"`
	Currency              string `json:"currency"`
	DiscountCodeSupported bool   `json:"discountCodeSupported"`
}

// Home is the storefront home composition (GET store/home)
type Home struct {
	FeaturedProductIDs []string `json:"featuredProducts"`
	CategoryIDs        []string `json:"categories"`
	Banners            []Banner `json:"banners"`
}

// Banner is one promotional slot on the home page
type Banner struct {
	Title string `json:"title"`
	Image string `json:"image"`
	Link  string `json:"link"`
}

// Page is a CMS content page (GET store/page/:slug)
type Page struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type pageWire struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// Service exposes the store-content endpoints
type Service struct {
	client *transport.Client
	memory core.Memory
	logger core.Logger
}

// NewService creates a content service. Memory backs the slug→id cache
// and may be nil to disable caching.
func NewService(client *transport.Client, memory core.Memory, logger core.Logger) *Service {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Service{client: client, memory: memory, logger: logger}
}

// Settings fetches the store settings (GET settings)
func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if _, err := s.client.Get(ctx, "settings", nil, &settings); err != nil {
		return nil, core.NewStoreError("content.Settings", "content", err)
	}
	return &settings, nil
}

// Home fetches the home page composition (GET store/home)
func (s *Service) Home(ctx context.Context) (*Home, error) {
	var home Home
	if _, err := s.client.Get(ctx, "store/home", nil, &home); err != nil {
		return nil, core.NewStoreError("content.Home", "content", err)
	}
	return &home, nil
}

// Page fetches a CMS page by slug (GET store/page/:slug) and refreshes
// the session-scoped slug→id cache
func (s *Service) Page(ctx context.Context, slug string) (*Page, error) {
	var wire pageWire
	if _, err := s.client.Get(ctx, "store/page/"+url.PathEscape(slug), nil, &wire); err != nil {
		return nil, &core.StoreError{Op: "content.Page", Kind: "content", ID: slug, Err: err}
	}

	page := Page{
		ID:    wire.ID,
		Slug:  wire.Slug,
		Title: wire.Title,
		Body:  wire.Body,
	}
	if page.ID == "" {
		page.ID = wire.LegacyID
	}
	if page.Slug == "" {
		page.Slug = slug
	}

	s.cacheSlug(ctx, page.Slug, page.ID)
	return &page, nil
}

// PageID resolves a slug to its cached page id, if known
func (s *Service) PageID(ctx context.Context, slug string) (string, bool) {
	if s.memory == nil {
		return "", false
	}
	raw, err := s.memory.Get(ctx, slugCacheKey(slug))
	if err != nil || raw == "" {
		return "", false
	}
	return raw, true
}

// SubscribeNewsletter subscribes an email address
// (POST newsletter/subscribe)
func (s *Service) SubscribeNewsletter(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := s.client.Post(ctx, "newsletter/subscribe", body, nil); err != nil {
		return core.NewStoreError("content.SubscribeNewsletter", "content", err)
	}
	return nil
}

// ContactInput is the contact form payload
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// Contact submits the contact form (POST store/contact)
func (s *Service) Contact(ctx context.Context, input ContactInput) error {
	if err := s.client.Post(ctx, "store/contact", input, nil); err != nil {
		return core.NewStoreError("content.Contact", "content", err)
	}
	return nil
}

func (s *Service) cacheSlug(ctx context.Context, slug, id string) {
	if s.memory == nil || slug == "" || id == "" {
		return
	}
	if err := s.memory.Set(ctx, slugCacheKey(slug), id, slugCacheTTL); err != nil {
		s.logger.Debug("Slug cache write failed", map[string]interface{}{
			"operation": "slug_cache",
			"slug":      slug,
			"error":     err.Error(),
		})
	}
}

func slugCacheKey(slug string) string {
	return "page:slug:" + slug
}
