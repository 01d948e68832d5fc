package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/garindean/edgescout/internal/logging"
	"github.com/garindean/edgescout/internal/models"
)

const systemPrompt = "You are a conservative prediction-market analyst. Estimate fair probabilities for binary markets. Only flag a market as worth trading when your estimate clearly diverges from the quoted price. Respond only with JSON."

// Service estimates fair probabilities for a candidate batch via LLM.
type Service struct {
	llm          Completer
	systemPrompt string
}

// NewService creates a judge.
func NewService(cfg Config) (*Service, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("judge: llm client is required")
	}
	system := cfg.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = systemPrompt
	}
	return &Service{
		llm:          cfg.Client,
		systemPrompt: system,
	}, nil
}

// Estimate submits the whole enriched batch in one structured request and
// returns the judge's opinions. An empty batch returns no opinions without
// calling the judge. Any call or parse failure fails the whole estimation —
// a half-judged batch is worse than an explicit error.
func (s *Service) Estimate(ctx context.Context, topicName string, candidates []models.ListingCandidate) ([]Opinion, error) {
	if s == nil {
		return nil, fmt.Errorf("judge: service is nil")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	inputJSON, err := json.MarshalIndent(buildPromptPayload(topicName, candidates), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("judge: marshal prompt input: %w", err)
	}

	userPrompt := strings.Join([]string{
		fmt.Sprintf("You are evaluating prediction markets related to the topic %q.", topicName),
		"For each market below, estimate the probability (0-100) that the affirmative (YES) outcome occurs.",
		"Compare your estimate against the quoted yes_price (a probability in [0,1]).",
		"Recommend side YES when the market underprices the affirmative outcome, NO when it overprices it.",
		"Set shouldTrade true only when you are confident the quoted price is meaningfully wrong. Be conservative; when unsure, set shouldTrade false.",
		"Return EXACTLY this JSON format:\n{\n  \"opinions\": [\n    {\"marketId\": \"...\", \"aiProbability\": 0-100, \"side\": \"YES\"|\"NO\", \"rationale\": \"short explanation\", \"shouldTrade\": true|false}\n  ]\n}\n\nInput JSON:\n" + string(inputJSON),
	}, "\n")

	raw, err := s.llm.Complete(ctx, s.systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("judge: llm call: %w", err)
	}

	opinions, err := parseOpinions(raw, candidates)
	if err != nil {
		return nil, fmt.Errorf("judge: parse response: %w", err)
	}
	return opinions, nil
}

type promptPayload struct {
	Topic          string             `json:"topic"`
	GeneratedAtUTC string             `json:"generated_at_utc"`
	Markets        []candidatePayload `json:"markets"`
}

type candidatePayload struct {
	MarketID    string  `json:"market_id"`
	Question    string  `json:"question"`
	Subtitle    string  `json:"subtitle,omitempty"`
	Description string  `json:"description,omitempty"`
	YesPrice    float64 `json:"yes_price"`
	Volume      float64 `json:"volume"`
	Liquidity   float64 `json:"liquidity"`
	EndDateUTC  string  `json:"end_date_utc,omitempty"`
}

func buildPromptPayload(topicName string, candidates []models.ListingCandidate) promptPayload {
	markets := make([]candidatePayload, 0, len(candidates))
	for _, c := range candidates {
		markets = append(markets, candidatePayload{
			MarketID:    c.MarketID,
			Question:    c.Question,
			Subtitle:    c.Subtitle,
			Description: truncateText(c.Description, 1200),
			YesPrice:    c.YesPrice,
			Volume:      c.Volume,
			Liquidity:   c.Liquidity,
			EndDateUTC:  formatTime(c.EndDate),
		})
	}
	return promptPayload{
		Topic:          topicName,
		GeneratedAtUTC: formatTime(time.Now().UTC()),
		Markets:        markets,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func truncateText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + " ... (truncated)"
}

// parseOpinions strictly validates the judge's JSON. Opinions referencing
// ids outside the input batch are dropped; structurally broken output is an
// error for the whole batch.
func parseOpinions(raw string, candidates []models.ListingCandidate) ([]Opinion, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty llm response")
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	var parsed struct {
		Opinions []rawOpinion `json:"opinions"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c.MarketID] = struct{}{}
	}

	opinions := make([]Opinion, 0, len(parsed.Opinions))
	seen := make(map[string]struct{}, len(parsed.Opinions))
	for _, ro := range parsed.Opinions {
		id := strings.TrimSpace(ro.MarketID)
		if _, ok := known[id]; !ok {
			logging.Debugf("[judge] dropping opinion for unknown market id %q", id)
			continue
		}
		if _, dup := seen[id]; dup {
			logging.Debugf("[judge] dropping duplicate opinion for market id %q", id)
			continue
		}
		if ro.Probability < 0 || ro.Probability > 100 {
			return nil, fmt.Errorf("probability %f out of range for market %s", ro.Probability, id)
		}
		side, err := parseSide(ro.Side)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", id, err)
		}
		seen[id] = struct{}{}
		opinions = append(opinions, Opinion{
			MarketID:    id,
			Probability: ro.Probability,
			Side:        side,
			Rationale:   strings.TrimSpace(ro.Rationale),
			ShouldTrade: ro.ShouldTrade,
		})
	}
	return opinions, nil
}

type rawOpinion struct {
	MarketID    string  `json:"marketId"`
	Probability float64 `json:"aiProbability"`
	Side        string  `json:"side"`
	Rationale   string  `json:"rationale"`
	ShouldTrade bool    `json:"shouldTrade"`
}

func parseSide(raw string) (models.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "YES":
		return models.SideYes, nil
	case "NO":
		return models.SideNo, nil
	default:
		return "", fmt.Errorf("unrecognized side %q", raw)
	}
}
