package fetcher

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"youngcheol/moneyhunter/helpers"
	"youngcheol/moneyhunter/pkg/errors"
	"youngcheol/moneyhunter/services/cache"
)

// Fetcher retrieves a rendered listing page for a source.
type Fetcher interface {
	Fetch(ctx context.Context, sourceName, pageURL string) (io.Reader, error)
}

// PageFetcher fetches listing pages over plain HTTP with per-host politeness
// limits. A memcache-backed block guard keeps a source quiet for BlockTime
// after the site answers with a rate-limiting status.
type PageFetcher struct {
	cacheSvc  cache.CacheService
	blockTime time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPageFetcher creates a new page fetcher
func NewPageFetcher(cacheSvc cache.CacheService, blockTime time.Duration) *PageFetcher {
	return &PageFetcher{
		cacheSvc:  cacheSvc,
		blockTime: blockTime,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Fetch retrieves the page at pageURL and returns its body as UTF-8
func (f *PageFetcher) Fetch(ctx context.Context, sourceName, pageURL string) (io.Reader, error) {
	blockKey := blockKeyFor(sourceName)

	// Check if the source is currently blocked
	if f.cacheSvc != nil {
		if _, err := f.cacheSvc.Get(blockKey); err == nil {
			return nil, errors.NewRateLimit(sourceName, f.blockTime)
		}
	}

	// One request per second per host keeps crawl ticks from hammering a site
	if err := f.limiterFor(pageURL).Wait(ctx); err != nil {
		return nil, errors.NewNetwork(sourceName, "cancelled while waiting for rate limiter", err)
	}

	body, err := helpers.FetchWithRandomHeaders(ctx, pageURL)
	if err != nil {
		if stderrors.Is(err, helpers.ErrRateLimited) {
			if f.cacheSvc != nil {
				f.cacheSvc.Set(blockKey, []byte(fmt.Sprintf("%d", int(f.blockTime.Seconds()))), f.blockTime)
			}
			return nil, errors.NewRateLimit(sourceName, f.blockTime)
		}
		return nil, errors.NewNetwork(sourceName, "failed to fetch listing page", err)
	}

	return body, nil
}

// limiterFor returns the rate limiter for the URL's host
func (f *PageFetcher) limiterFor(pageURL string) *rate.Limiter {
	host := pageURL
	if parsed, err := url.Parse(pageURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Second), 1)
		f.limiters[host] = limiter
	}
	return limiter
}

func blockKeyFor(sourceName string) string {
	return strings.ToLower(sourceName) + "_rate_limited"
}
