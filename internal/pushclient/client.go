package pushclient

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Permission is the standard three-state notification permission model.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

var (
	ErrPermissionDenied = errors.New("notification permission denied")
	ErrNotSubscribed    = errors.New("device is not subscribed")
)

// DeviceSubscription is what the platform push stack hands back for this
// device: the endpoint plus the two encryption secrets.
type DeviceSubscription struct {
	Endpoint  string
	P256dhKey string
	AuthKey   string
}

// Capability abstracts the device push stack. Implementations bridge to
// the platform API, which can hang indefinitely on some devices, so every
// call made through it is bounded by a context deadline.
type Capability interface {
	Ready(ctx context.Context) error
	Permission(ctx context.Context) (Permission, error)
	RequestPermission(ctx context.Context) (Permission, error)
	Subscription(ctx context.Context) (*DeviceSubscription, error)
	Subscribe(ctx context.Context) (*DeviceSubscription, error)
	Unsubscribe(ctx context.Context) error
}

// Registry persists device subscriptions server-side.
type Registry interface {
	Upsert(ctx context.Context, sub DeviceSubscription, userAgent string) error
	Disable(ctx context.Context, endpoint string) error
}

const (
	defaultReadTimeout   = 10 * time.Second
	defaultPromptTimeout = 15 * time.Second
)

// Client drives the per-device subscribe/unsubscribe flow.
type Client struct {
	capability Capability
	registry   Registry
	userAgent  string
	log        *slog.Logger

	readTimeout   time.Duration
	promptTimeout time.Duration

	mu         sync.Mutex
	subscribed bool
}

type Option func(*Client)

func WithTimeouts(read, prompt time.Duration) Option {
	return func(c *Client) {
		c.readTimeout = read
		c.promptTimeout = prompt
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(capability Capability, registry Registry, userAgent string, opts ...Option) *Client {
	c := &Client{
		capability:    capability,
		registry:      registry,
		userAgent:     userAgent,
		log:           slog.Default(),
		readTimeout:   defaultReadTimeout,
		promptTimeout: defaultPromptTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Subscribe runs the full flow: readiness, permission (prompting only when
// still in the default state, failing fast when denied), device
// subscription, server upsert. The subscribed flag is then re-derived from
// a fresh capability check so it stays truthful across reloads and
// multiple open sessions.
func (c *Client) Subscribe(ctx context.Context) error {
	if err := c.withReadTimeout(ctx, c.capability.Ready); err != nil {
		return err
	}

	perm, err := c.permission(ctx)
	if err != nil {
		return err
	}
	if perm != PermissionGranted {
		if perm == PermissionDenied {
			return ErrPermissionDenied
		}
		pctx, cancel := context.WithTimeout(ctx, c.promptTimeout)
		perm, err = c.capability.RequestPermission(pctx)
		cancel()
		if err != nil {
			return err
		}
		if perm != PermissionGranted {
			return ErrPermissionDenied
		}
	}

	sub, err := c.subscription(ctx)
	if err != nil {
		return err
	}
	if sub == nil {
		sctx, cancel := context.WithTimeout(ctx, c.readTimeout)
		sub, err = c.capability.Subscribe(sctx)
		cancel()
		if err != nil {
			return err
		}
	}

	if err := c.registry.Upsert(ctx, *sub, c.userAgent); err != nil {
		return err
	}

	c.refresh(ctx)
	return nil
}

// Unsubscribe tears down the device subscription first and the server row
// second. When the server step fails after the device step succeeded, the
// local state still reports unsubscribed; the registry self-heals on the
// next failed delivery.
func (c *Client) Unsubscribe(ctx context.Context) error {
	sub, err := c.subscription(ctx)
	if err != nil {
		return err
	}
	if sub == nil {
		c.setSubscribed(false)
		return ErrNotSubscribed
	}

	uctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	err = c.capability.Unsubscribe(uctx)
	cancel()
	if err != nil {
		return err
	}
	c.setSubscribed(false)

	if err := c.registry.Disable(ctx, sub.Endpoint); err != nil {
		c.log.Warn("server-side unsubscribe failed, will self-heal on delivery", "error", err)
	}
	return nil
}

// Subscribed answers from a fresh capability check, never from memory.
func (c *Client) Subscribed(ctx context.Context) bool {
	c.refresh(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed
}

func (c *Client) refresh(ctx context.Context) {
	perm, err := c.permission(ctx)
	if err != nil || perm != PermissionGranted {
		c.setSubscribed(false)
		return
	}
	sub, err := c.subscription(ctx)
	c.setSubscribed(err == nil && sub != nil)
}

func (c *Client) permission(ctx context.Context) (Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()
	return c.capability.Permission(ctx)
}

func (c *Client) subscription(ctx context.Context) (*DeviceSubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()
	return c.capability.Subscription(ctx)
}

func (c *Client) withReadTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()
	return fn(ctx)
}

func (c *Client) setSubscribed(v bool) {
	c.mu.Lock()
	c.subscribed = v
	c.mu.Unlock()
}
