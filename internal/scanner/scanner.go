// Package scanner runs the signal-discovery pipeline: market discovery,
// relevance filtering, price enrichment, AI fair-value estimation, edge
// computation, and signal materialization.
package scanner

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/garindean/edgescout/internal/cache"
	"github.com/garindean/edgescout/internal/enrich"
	"github.com/garindean/edgescout/internal/hashutil"
	"github.com/garindean/edgescout/internal/judge"
	"github.com/garindean/edgescout/internal/logging"
	"github.com/garindean/edgescout/internal/models"
	"github.com/garindean/edgescout/internal/queue"
	"github.com/garindean/edgescout/internal/relevance"
	"github.com/garindean/edgescout/internal/signals"
)

// Outcome classifies a completed scan. Hard failures are reported as
// errors, never as an Outcome.
type Outcome string

const (
	OutcomeSignalsFound  Outcome = "signals_found"
	OutcomeNoMarkets     Outcome = "no_markets_found"
	OutcomeNoMispricings Outcome = "no_mispricings"
)

// Message renders the user-visible summary for an outcome.
func (o Outcome) Message(count int) string {
	switch o {
	case OutcomeSignalsFound:
		return fmt.Sprintf("found %d signals", count)
	case OutcomeNoMarkets:
		return "no markets found"
	default:
		return "no significant mispricings detected"
	}
}

// ScanResult is the pipeline's answer for one scan invocation.
type ScanResult struct {
	Outcome            Outcome
	CreatedSignalCount int
	Signals            []models.Signal
}

// ListingSource discovers open venue listings, best effort.
type ListingSource interface {
	FetchOpenListings(ctx context.Context) []models.ListingCandidate
}

// Judge estimates fair probabilities for a candidate batch.
type Judge interface {
	Estimate(ctx context.Context, topicName string, candidates []models.ListingCandidate) ([]judge.Opinion, error)
}

// Store is the persistence collaborator. The pipeline treats it as a pure
// sink: it never reads back existing signals to deduplicate.
type Store interface {
	GetTopic(ctx context.Context, id string) (models.TopicProfile, error)
	CreateSignals(ctx context.Context, sigs []models.Signal) ([]models.Signal, error)
	InsertScan(ctx context.Context, topicID, outcome string, createdCount int, startedAt, finishedAt time.Time) error
}

// Config wires the scanner's collaborators. Opinions and Writer are
// optional; a nil value disables that feature.
type Config struct {
	Store      Store
	Listings   ListingSource
	Quotes     enrich.QuoteFetcher
	Judge      Judge
	Opinions   cache.OpinionCache
	Writer     *kafkago.Writer
	MinEdgeBps int
}

// Scanner coordinates one synchronous scan per invocation.
type Scanner struct {
	store      Store
	listings   ListingSource
	enricher   *enrich.Enricher
	judge      Judge
	opinions   cache.OpinionCache
	writer     *kafkago.Writer
	minEdgeBps int
}

// New validates the wiring and builds a scanner.
func New(cfg Config) (*Scanner, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("scanner: store is required")
	}
	if cfg.Listings == nil {
		return nil, fmt.Errorf("scanner: listing source is required")
	}
	if cfg.Judge == nil {
		return nil, fmt.Errorf("scanner: judge is required")
	}
	return &Scanner{
		store:      cfg.Store,
		listings:   cfg.Listings,
		enricher:   enrich.New(cfg.Quotes),
		judge:      cfg.Judge,
		opinions:   cfg.Opinions,
		writer:     cfg.Writer,
		minEdgeBps: cfg.MinEdgeBps,
	}, nil
}

// Scan runs the full pipeline for one topic. It returns an error only for
// hard failures (unknown topic, judge failure, persistence failure); empty
// results are legitimate outcomes, not errors.
func (s *Scanner) Scan(ctx context.Context, topicID string) (*ScanResult, error) {
	startedAt := time.Now().UTC()

	topic, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("scanner: load topic: %w", err)
	}

	listings := s.listings.FetchOpenListings(ctx)
	if len(listings) == 0 {
		return s.finish(ctx, topic.ID, startedAt, &ScanResult{Outcome: OutcomeNoMarkets})
	}
	logging.Infof("[scanner] topic=%s discovered %d open listings", topic.ID, len(listings))

	ranked := relevance.Filter(listings, topic.Keywords)
	if len(ranked) == 0 {
		return s.finish(ctx, topic.ID, startedAt, &ScanResult{Outcome: OutcomeNoMarkets})
	}

	batch := s.enricher.Enrich(ctx, relevance.TopForJudging(ranked))
	logging.Infof("[scanner] topic=%s judging %d candidates", topic.ID, len(batch))

	opinions, err := s.estimate(ctx, topic.Name, batch)
	if err != nil {
		return nil, err
	}

	sigs := signals.Materialize(topic, batch, opinions, signals.Config{MinEdgeBps: s.minEdgeBps})
	if len(sigs) == 0 {
		return s.finish(ctx, topic.ID, startedAt, &ScanResult{Outcome: OutcomeNoMispricings})
	}

	stored, err := s.store.CreateSignals(ctx, sigs)
	if err != nil {
		return nil, fmt.Errorf("scanner: persist signals: %w", err)
	}

	if err := queue.PublishSignals(ctx, s.writer, stored); err != nil {
		// The feed is a best-effort sink; the scan already committed.
		logging.Errorf("[scanner] publish signals: %v", err)
	}

	return s.finish(ctx, topic.ID, startedAt, &ScanResult{
		Outcome:            OutcomeSignalsFound,
		CreatedSignalCount: len(stored),
		Signals:            stored,
	})
}

// estimate consults the opinion cache before the judge and caches fresh
// opinions afterwards. A judge failure fails the whole scan; there is no
// partial degraded output.
func (s *Scanner) estimate(ctx context.Context, topicName string, batch []models.ListingCandidate) ([]judge.Opinion, error) {
	if s.opinions == nil {
		opinions, err := s.judge.Estimate(ctx, topicName, batch)
		if err != nil {
			return nil, fmt.Errorf("scanner: estimate: %w", err)
		}
		return opinions, nil
	}

	cached := make([]judge.Opinion, 0, len(batch))
	var pending []models.ListingCandidate
	for _, c := range batch {
		op, ok, err := s.opinions.Get(ctx, opinionKey(c))
		if err != nil {
			logging.Debugf("[scanner] opinion cache read: %v", err)
		}
		if ok {
			cached = append(cached, op)
			continue
		}
		pending = append(pending, c)
	}

	fresh, err := s.judge.Estimate(ctx, topicName, pending)
	if err != nil {
		return nil, fmt.Errorf("scanner: estimate: %w", err)
	}

	byID := make(map[string]models.ListingCandidate, len(pending))
	for _, c := range pending {
		byID[c.MarketID] = c
	}
	for _, op := range fresh {
		if c, ok := byID[op.MarketID]; ok {
			if err := s.opinions.Set(ctx, opinionKey(c), op); err != nil {
				logging.Debugf("[scanner] opinion cache write: %v", err)
			}
		}
	}
	return append(cached, fresh...), nil
}

// opinionKey buckets the quoted price so a stable market keeps hitting the
// same cache entry across scans.
func opinionKey(c models.ListingCandidate) string {
	return hashutil.HashStrings(c.MarketID, c.Question, hashutil.PriceBucket(c.YesPrice))
}

func (s *Scanner) finish(ctx context.Context, topicID string, startedAt time.Time, res *ScanResult) (*ScanResult, error) {
	if err := s.store.InsertScan(ctx, topicID, string(res.Outcome), res.CreatedSignalCount, startedAt, time.Now().UTC()); err != nil {
		logging.Errorf("[scanner] record scan: %v", err)
	}
	logging.Infof("[scanner] topic=%s %s", topicID, res.Outcome.Message(res.CreatedSignalCount))
	return res, nil
}
