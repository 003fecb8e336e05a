// Package currencysync keeps the cart's display currency aligned with
// the shopper's detected locale currency without the HTTP layer having
// to orchestrate it.
package currencysync

import (
	"context"
	"io"
	"log"
	"sync"
)

type cartStore interface {
	UpdateCurrency(ctx context.Context, currency string)
}

// Controller applies a detected currency to the cart exactly once per
// change. Repeated observations of the same value do not re-fire, and an
// empty value (detection still loading) is ignored.
type Controller struct {
	mu     sync.Mutex
	store  cartStore
	logger *log.Logger
	last   string
}

func New(store cartStore, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Controller{store: store, logger: logger}
}

// Sync feeds the latest detected currency in. It triggers a cart
// re-pricing only when the detected value actually changed.
func (c *Controller) Sync(ctx context.Context, detected string) {
	if detected == "" {
		return
	}

	c.mu.Lock()
	if detected == c.last {
		c.mu.Unlock()
		return
	}
	c.last = detected
	c.mu.Unlock()

	c.logger.Printf("currencysync: detected currency changed to %s", detected)
	c.store.UpdateCurrency(ctx, detected)
}
