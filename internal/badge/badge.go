package badge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/domain"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartFetcher interface {
	GetCart(ctx context.Context, cred credentials.Credential) (*domain.Cart, error)
}

type Subscriber interface {
	Subscribe(fn func()) func()
}

// Counter is the header badge: the total quantity of the session's cart.
// It re-fetches on every cart-changed signal instead of trusting any payload.
type Counter struct {
	fetcher CartFetcher
	creds   credentials.Provider
	timeout time.Duration
	logger  *zap.Logger
	sfg     singleflight.Group // collapses concurrent refreshes

	mu      sync.Mutex
	count   int
	running bool
	dirty   bool
}

func New(fetcher CartFetcher, creds credentials.Provider, l *zap.Logger) *Counter {
	return &Counter{
		fetcher: fetcher,
		creds:   creds,
		timeout: 10 * time.Second,
		logger:  logger.OrNop(l),
	}
}

func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Refresh fetches the cart and stores its total quantity. A missing or rejected
// credential counts as an empty cart.
func (c *Counter) Refresh(ctx context.Context) (int, error) {
	v, err, _ := c.sfg.Do("badge", func() (interface{}, error) {
		cred, err := c.creds.Credential(ctx)
		var cart *domain.Cart
		if err == nil {
			cart, err = c.fetcher.GetCart(ctx, cred)
		}
		if errors.Is(err, credentials.ErrNoCredential) || errors.Is(err, backend.ErrUnauthenticated) {
			return 0, nil
		}
		if err != nil {
			return nil, err
		}
		return cart.TotalQuantity(), nil
	})
	if err != nil {
		c.logger.Warn("badge refresh failed", zap.Error(err))
		return c.Count(), err
	}

	n := v.(int)
	c.mu.Lock()
	c.count = n
	c.mu.Unlock()
	return n, nil
}

// Attach subscribes the counter to s. Signals arriving while a refresh runs are
// folded into one more refresh after it, so the last fetch always follows the
// last signal.
func (c *Counter) Attach(s Subscriber) func() {
	return s.Subscribe(c.signal)
}

func (c *Counter) signal() {
	c.mu.Lock()
	if c.running {
		c.dirty = true
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go c.drain()
}

func (c *Counter) drain() {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		_, _ = c.Refresh(ctx)
		cancel()

		c.mu.Lock()
		if !c.dirty {
			c.running = false
			c.mu.Unlock()
			return
		}
		c.dirty = false
		c.mu.Unlock()
	}
}
