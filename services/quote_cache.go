package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const DefaultQuoteTTL = 5 * time.Minute

// QuoteCache memoizes computed from-price maps for a short TTL so repeated
// search and map requests for the same window don't recompute the aggregate.
// Redis being down is never an error: the cache falls through to computing
// directly.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

func NewQuoteCache(client *redis.Client, ttl time.Duration, log *logrus.Entry) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &QuoteCache{client: client, ttl: ttl, log: log}
}

// MinPrices returns the cached quote map for the listing set and window, or
// computes and stores it.
func (c *QuoteCache) MinPrices(ctx context.Context, query *AvailabilityQuery, listingIDs []uint, checkin, checkout string) map[uint]PriceQuote {
	key := c.key(listingIDs, checkin, checkout)

	if c.client != nil {
		if raw, err := c.client.Get(ctx, key).Result(); err == nil {
			var cached map[uint]PriceQuote
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached
			}
		}
	}

	quotes, err := query.MinPrices(ctx, listingIDs, checkin, checkout)
	if err != nil {
		return map[uint]PriceQuote{}
	}

	if c.client != nil {
		if encoded, err := json.Marshal(quotes); err == nil {
			if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
				c.log.WithError(err).Debug("quote cache write failed")
			}
		}
	}

	return quotes
}

func (c *QuoteCache) key(listingIDs []uint, checkin, checkout string) string {
	var sb strings.Builder
	for _, id := range listingIDs {
		fmt.Fprintf(&sb, "%d,", id)
	}
	return fmt.Sprintf("quotes:v1:%s:%s:%s", checkin, checkout, sb.String())
}
