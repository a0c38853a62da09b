package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
	price float64
	err   error
}

func (p *countingProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	p.calls++
	if p.err != nil {
		return Quote{}, p.err
	}
	return Quote{Symbol: symbol, Price: p.price}, nil
}

func (p *countingProvider) History(ctx context.Context, symbol string, start time.Time, interval Interval) ([]Candle, error) {
	return []Candle{{Close: p.price}}, nil
}

func (p *countingProvider) Search(ctx context.Context, query string) ([]SearchResult, error) {
	return []SearchResult{{Symbol: query}}, nil
}

func TestQuoteCacheHit(t *testing.T) {
	p := &countingProvider{price: 10}
	c := NewQuoteCache(p, time.Minute)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	q, err := c.Quote(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)

	p.price = 11
	q, err = c.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10.0, q.Price)
	assert.Equal(t, 1, p.calls)

	now = now.Add(time.Minute)
	q, err = c.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 11.0, q.Price)
	assert.Equal(t, 2, p.calls)
}

func TestQuoteCacheDoesNotCacheErrors(t *testing.T) {
	p := &countingProvider{err: errors.New("boom")}
	c := NewQuoteCache(p, time.Minute)

	_, err := c.Quote(context.Background(), "MSFT")
	assert.Error(t, err)

	p.err = nil
	p.price = 5
	q, err := c.Quote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 5.0, q.Price)
	assert.Equal(t, 2, p.calls)
}

func TestQuoteCacheDisabled(t *testing.T) {
	p := &countingProvider{price: 1}
	c := NewQuoteCache(p, 0)

	for i := 0; i < 3; i++ {
		_, err := c.Quote(context.Background(), "IBM")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p.calls)
}

func TestQuoteCachePassThrough(t *testing.T) {
	p := &countingProvider{price: 3}
	c := NewQuoteCache(p, time.Minute)

	bars, err := c.History(context.Background(), "IBM", time.Time{}, Day1)
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	res, err := c.Search(context.Background(), "ibm")
	require.NoError(t, err)
	assert.Equal(t, "ibm", res[0].Symbol)
}
