// Package signals turns judge opinions into materialized trading signals.
package signals

import (
	"math"
	"time"

	"github.com/garindean/edgescout/internal/judge"
	"github.com/garindean/edgescout/internal/logging"
	"github.com/garindean/edgescout/internal/models"
)

// MinEdgeBps is the materiality threshold: edges below 300 bps (3%) are
// never surfaced, including negative ones.
const MinEdgeBps = 300

// Config controls materialization.
type Config struct {
	MinEdgeBps int
}

// EdgeBps converts a fair/market price pair into an integer edge in basis
// points. Rounding is to the nearest integer, ties away from zero
// (math.Round semantics).
func EdgeBps(fairPrice, sidePrice float64) int {
	return int(math.Round((fairPrice - sidePrice) * 10000))
}

// SidePrices adjusts the affirmative probability and price to the
// recommended side. After adjustment a positive edge always reads as
// "underpriced" no matter which side was recommended.
func SidePrices(side models.Side, yesProb, yesPrice float64) (fairPrice, sidePrice float64) {
	if side == models.SideNo {
		return 1 - yesProb, 1 - yesPrice
	}
	return yesProb, yesPrice
}

// Materialize applies the edge contract to every flagged opinion and emits
// signals for those clearing the materiality gate. Opinions whose candidate
// is missing from the batch are skipped.
func Materialize(topic models.TopicProfile, candidates []models.ListingCandidate, opinions []judge.Opinion, cfg Config) []models.Signal {
	minEdge := cfg.MinEdgeBps
	if minEdge <= 0 {
		minEdge = MinEdgeBps
	}

	byID := make(map[string]models.ListingCandidate, len(candidates))
	for _, c := range candidates {
		byID[c.MarketID] = c
	}

	now := time.Now().UTC()
	var out []models.Signal
	for _, op := range opinions {
		if !op.ShouldTrade {
			continue
		}
		cand, ok := byID[op.MarketID]
		if !ok {
			logging.Debugf("[signals] opinion for %s has no candidate, skipping", op.MarketID)
			continue
		}

		yesProb := op.Probability / 100
		fairPrice, sidePrice := SidePrices(op.Side, yesProb, cand.YesPrice)
		edge := EdgeBps(fairPrice, sidePrice)
		if edge < minEdge {
			logging.Debugf("[signals] %s edge %d bps below threshold, discarding", op.MarketID, edge)
			continue
		}

		out = append(out, models.Signal{
			TopicID:     topic.ID,
			MarketID:    cand.MarketID,
			Question:    cand.Question,
			Side:        op.Side,
			MarketPrice: sidePrice,
			AIFairPrice: fairPrice,
			EdgeBps:     edge,
			Rationale:   op.Rationale,
			Volume:      cand.Volume,
			Liquidity:   cand.Liquidity,
			EndDate:     cand.EndDate,
			Status:      models.StatusActive,
			CreatedAt:   now,
		})
	}
	return out
}
