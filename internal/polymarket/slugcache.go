package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/garindean/edgescout/internal/models"
)

const defaultSlugTTL = 5 * time.Minute

// SlugCache memoizes listing-by-slug lookups with an explicit staleness
// check on read. Entries are a plain key -> (value, insertion time) map;
// nothing evicts in the background.
type SlugCache struct {
	mu      sync.Mutex
	entries map[string]slugEntry
	ttl     time.Duration
	now     func() time.Time
}

type slugEntry struct {
	candidate  models.ListingCandidate
	insertedAt time.Time
}

// NewSlugCache builds a cache with the given TTL (default 5m).
func NewSlugCache(ttl time.Duration) *SlugCache {
	if ttl <= 0 {
		ttl = defaultSlugTTL
	}
	return &SlugCache{
		entries: make(map[string]slugEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached candidate for a slug if it is still fresh.
func (sc *SlugCache) Get(slug string) (models.ListingCandidate, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	entry, ok := sc.entries[slug]
	if !ok {
		return models.ListingCandidate{}, false
	}
	if sc.now().Sub(entry.insertedAt) > sc.ttl {
		delete(sc.entries, slug)
		return models.ListingCandidate{}, false
	}
	return entry.candidate, true
}

// Set stores a candidate under its slug with the current insertion time.
func (sc *SlugCache) Set(slug string, cand models.ListingCandidate) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.entries[slug] = slugEntry{candidate: cand, insertedAt: sc.now()}
}

// LookupBySlug resolves a single listing by its venue slug, consulting the
// cache first. A miss hits the catalog endpoint filtered by slug.
func (c *Client) LookupBySlug(ctx context.Context, cache *SlugCache, slug string) (models.ListingCandidate, error) {
	if cache != nil {
		if cand, ok := cache.Get(slug); ok {
			return cand, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.catalogTimeout)
	defer cancel()

	u, _ := url.Parse(c.catalogURL)
	q := u.Query()
	q.Set("slug", slug)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.ListingCandidate{}, err
	}
	var raw []rawListing
	if err := c.do(req, &raw); err != nil {
		return models.ListingCandidate{}, err
	}
	for _, rl := range raw {
		if rl.Slug != slug {
			continue
		}
		cand, ok := normalizeListing(rl)
		if !ok {
			continue
		}
		if cache != nil {
			cache.Set(slug, cand)
		}
		return cand, nil
	}
	return models.ListingCandidate{}, fmt.Errorf("polymarket: no open listing for slug %q", slug)
}
