// Package enrich overwrites candidate prices with fresher quotes from the
// venue's low-latency endpoint, best effort.
package enrich

import (
	"context"
	"sync"

	"github.com/garindean/edgescout/internal/logging"
	"github.com/garindean/edgescout/internal/models"
)

// QuoteFetcher returns a live probability quote for one outcome token.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, tokenID string) (float64, error)
}

// Enricher fans out one quote request per candidate.
type Enricher struct {
	quotes QuoteFetcher
}

// New builds an enricher over the given quote source.
func New(quotes QuoteFetcher) *Enricher {
	return &Enricher{quotes: quotes}
}

// Enrich fetches a fresh quote for every candidate concurrently and
// overwrites the affirmative price where the quote is a valid probability.
// Any per-candidate failure — missing token, error, out-of-range value —
// means that one candidate keeps its original price; siblings are never
// affected. The join is all-settled, not fail-fast.
func (e *Enricher) Enrich(ctx context.Context, candidates []models.ListingCandidate) []models.ListingCandidate {
	if e == nil || e.quotes == nil || len(candidates) == 0 {
		return candidates
	}

	out := make([]models.ListingCandidate, len(candidates))
	copy(out, candidates)

	var wg sync.WaitGroup
	for i := range out {
		if out[i].YesTokenID == "" {
			continue
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			quote, err := e.quotes.FetchQuote(ctx, out[idx].YesTokenID)
			if err != nil {
				logging.Debugf("[enrich] quote for %s failed: %v", out[idx].MarketID, err)
				return
			}
			if quote < 0 || quote > 1 {
				logging.Debugf("[enrich] quote for %s out of range: %f", out[idx].MarketID, quote)
				return
			}
			// Each goroutine writes only its own slot.
			out[idx].YesPrice = quote
		}(i)
	}
	wg.Wait()
	return out
}
