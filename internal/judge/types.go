package judge

import (
	"context"

	"github.com/garindean/edgescout/internal/models"
)

// Completer is the single-shot LLM call the judge depends on. The concrete
// client is constructed once at startup and passed in explicitly.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Opinion is the judge's verdict on one candidate.
type Opinion struct {
	MarketID    string      `json:"marketId"`
	Probability float64     `json:"aiProbability"` // affirmative probability, 0-100
	Side        models.Side `json:"side"`
	Rationale   string      `json:"rationale"`
	ShouldTrade bool        `json:"shouldTrade"`
}

// Config controls the judge behavior.
type Config struct {
	Client       Completer
	SystemPrompt string
}
