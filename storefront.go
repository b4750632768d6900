// Package storefront is the entry point of the storefront SDK: it wires
// configuration, logging, persistence, the resilient transport, and the
// domain services (catalog, cart, checkout, auth, content, chat) into one
// client.
//
// Example usage:
//
//	client, err := storefront.New(
//	    core.WithBaseURL("https://api.example.shop/v1"),
//	    core.WithLocale("ar"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	if err := client.Bootstrap(ctx); err != nil { ... }
//	products, _, err := client.Catalog.List(ctx, catalog.ListOptions{})
package storefront

import (
	"context"
	"fmt"

	"github.com/cairocart/storefront-go/ai"
	"github.com/cairocart/storefront-go/auth"
	"github.com/cairocart/storefront-go/cart"
	"github.com/cairocart/storefront-go/catalog"
	"github.com/cairocart/storefront-go/checkout"
	"github.com/cairocart/storefront-go/content"
	"github.com/cairocart/storefront-go/core"
	"github.com/cairocart/storefront-go/telemetry"
	"github.com/cairocart/storefront-go/transport"
)

// Client is the assembled storefront SDK
type Client struct {
	Config *core.Config
	Logger core.Logger
	Memory core.Memory

	Catalog  *catalog.Service
	Cart     *cart.Store
	Checkout *checkout.Orchestrator
	Orders   *checkout.Service
	Auth     *auth.Service
	Session  *auth.Session
	Content  *content.Service
	Chat     *ai.Chat

	transport *transport.Client
	telemetry *telemetry.Provider
	redis     *core.RedisStore
}

// New creates a fully wired client from functional options
func New(opts ...core.Option) (*Client, error) {
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a client from an existing configuration
func NewWithConfig(cfg *Config) (*Client, error) {
	logger := core.NewProductionLogger("storefront")
	logger.SetLevel(cfg.Logging.Level)

	c := &Client{
		Config: cfg,
		Logger: logger,
	}

	// Persistence: Redis when configured, in-memory otherwise
	if cfg.Redis.URL != "" {
		redis, err := core.NewRedisStore(core.RedisStoreOptions{
			RedisURL:  cfg.Redis.URL,
			DB:        cfg.Redis.DB,
			Namespace: cfg.Redis.Namespace,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize redis persistence: %w", err)
		}
		c.redis = redis
		c.Memory = redis
	} else {
		mem := core.NewMemoryStore()
		mem.SetLogger(logger)
		c.Memory = mem
	}

	c.Session = auth.NewSession(c.Memory, logger)

	transportOpts := []transport.ClientOption{
		transport.WithLogger(logger),
		transport.WithTokenProvider(c.Session),
		transport.WithLocale(cfg.Locale),
		transport.WithRetryAfter(cfg.API.RetryAfterDefault, cfg.API.RetryAfterMin),
	}

	if cfg.Telemetry.Enabled {
		provider, err := telemetry.New(cfg.Telemetry.ServiceName, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize telemetry: %w", err)
		}
		c.telemetry = provider
		transportOpts = append(transportOpts, transport.WithTelemetry(provider))
	}

	tc, err := transport.NewClient(cfg.API.BaseURL, cfg.API.Timeout, transportOpts...)
	if err != nil {
		return nil, err
	}
	c.transport = tc

	c.Catalog = catalog.NewService(tc, logger)
	c.Cart = cart.NewStore(c.Memory, logger)
	c.Orders = checkout.NewService(tc, logger)
	c.Checkout = checkout.NewOrchestrator(c.Cart, c.Orders, c.Memory, logger)
	c.Auth = auth.NewService(tc, c.Session, logger)
	c.Content = content.NewService(tc, c.Memory, logger)
	if cfg.AI.Enabled {
		c.Chat = ai.NewChat(tc, c.Memory, logger, ai.WithMaxHistory(cfg.AI.MaxHistory))
	}

	logger.Info("Storefront client ready", map[string]interface{}{
		"operation": "client_init",
		"base_url":  cfg.API.BaseURL,
		"redis":     cfg.Redis.URL != "",
		"telemetry": cfg.Telemetry.Enabled,
	})
	return c, nil
}

// Config is re-exported for callers assembling configuration by hand
type Config = core.Config

// storageKeyLocale persists the Accept-Language preference across reloads
const storageKeyLocale = "locale"

// Bootstrap restores persisted state (locale, session, cart) and pulls the
// store settings that gate checkout behavior. Safe to call more than once.
func (c *Client) Bootstrap(ctx context.Context) error {
	if c.Memory != nil {
		if locale, err := c.Memory.Get(ctx, storageKeyLocale); err == nil && locale != "" {
			c.Config.Locale = locale
			c.transport.SetLocale(locale)
		}
	}

	c.Session.Load(ctx)
	c.Cart.Load(ctx)

	settings, err := c.Content.Settings(ctx)
	if err != nil {
		return err
	}
	c.Checkout.SetDiscountSupport(settings.DiscountCodeSupported)

	// A durable session hint means a profile check is worth attempting;
	// a 401 here must not bounce the shopper to sign-in
	if c.Session.HasSessionHint(ctx) && !c.Session.SignedIn(ctx) {
		if _, err := c.Auth.Profile(ctx); err != nil {
			c.Logger.Debug("Session hint stale", map[string]interface{}{
				"operation": "bootstrap",
				"error":     err.Error(),
			})
		}
	}
	return nil
}

// SetLocale switches the Accept-Language preference at runtime and
// persists it across reloads
func (c *Client) SetLocale(ctx context.Context, locale string) {
	if locale == "" {
		return
	}
	c.Config.Locale = locale
	c.transport.SetLocale(locale)
	if c.Memory != nil {
		_ = c.Memory.Set(ctx, storageKeyLocale, locale, 0)
	}
}

// SetUnauthorizedHook registers the 401/403 redirect callback on the
// underlying transport
func (c *Client) SetUnauthorizedHook(hook func(path string)) {
	// Reserved for callers embedding the SDK into a BFF; the transport
	// option is fixed at construction, so expose it here too.
	transport.WithUnauthorizedHook(hook)(c.transport)
}

// Close releases held resources (telemetry pipeline, Redis connection)
func (c *Client) Close(ctx context.Context) error {
	var firstErr error
	if c.telemetry != nil {
		if err := c.telemetry.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
