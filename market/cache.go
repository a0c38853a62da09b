package market

import (
	"context"
	"sync"
	"time"
)

type cachedQuote struct {
	quote   Quote
	fetched time.Time
}

// QuoteCache is a Provider that remembers quotes for a short TTL so that a
// burst of summaries and trades does not hammer the upstream API. History
// and search calls pass straight through.
type QuoteCache struct {
	Provider

	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	quotes map[string]cachedQuote
}

// NewQuoteCache wraps p. A ttl <= 0 disables caching.
func NewQuoteCache(p Provider, ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		Provider: p,
		ttl:      ttl,
		now:      time.Now,
		quotes:   make(map[string]cachedQuote),
	}
}

// Quote returns a cached quote if it is younger than the TTL, otherwise asks
// the wrapped provider. Failures are never cached.
func (c *QuoteCache) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if c.ttl > 0 {
		if q, ok := c.get(symbol); ok {
			return q, nil
		}
	}

	q, err := c.Provider.Quote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	if c.ttl > 0 {
		c.set(symbol, q)
	}
	return q, nil
}

func (c *QuoteCache) get(symbol string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cq, ok := c.quotes[symbol]
	if !ok || c.now().Sub(cq.fetched) >= c.ttl {
		return Quote{}, false
	}
	return cq.quote, true
}

func (c *QuoteCache) set(symbol string, q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[symbol] = cachedQuote{quote: q, fetched: c.now()}
}

// Purge drops every cached quote.
func (c *QuoteCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes = make(map[string]cachedQuote)
}
