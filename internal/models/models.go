package models

import "time"

// TopicProfile is a user-defined topic the scanner hunts mispricings for.
// Owned by the surrounding application; the pipeline only reads it.
type TopicProfile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// ListingCandidate is one open venue listing under consideration for a scan.
// Built fresh per scan and never persisted by the pipeline.
type ListingCandidate struct {
	MarketID    string    `json:"market_id"`
	Question    string    `json:"question"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Description string    `json:"description,omitempty"`
	Outcomes    []string  `json:"outcomes"`
	YesPrice    float64   `json:"yes_price"`
	YesTokenID  string    `json:"yes_token_id,omitempty"`
	Volume      float64   `json:"volume"`
	HasVolume   bool      `json:"has_volume"`
	Liquidity   float64   `json:"liquidity"`
	EndDate     time.Time `json:"end_date,omitempty"`
}

// Side is the recommended side of a binary listing.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// SignalStatus tracks a signal through its lifecycle.
type SignalStatus string

const (
	StatusActive    SignalStatus = "active"
	StatusDismissed SignalStatus = "dismissed"
	StatusAdded     SignalStatus = "added"
)

// ValidTransition reports whether a signal may move from one status to another.
// Dismissed and added are terminal.
func ValidTransition(from, to SignalStatus) bool {
	if from != StatusActive {
		return false
	}
	return to == StatusDismissed || to == StatusAdded
}

// Signal is the pipeline's output unit: a judged mispricing worth surfacing.
// MarketPrice and AIFairPrice are already adjusted to the recommended side,
// so a positive edge always means "underpriced" regardless of side.
type Signal struct {
	ID          int64        `json:"id,omitempty"`
	TopicID     string       `json:"topic_id"`
	MarketID    string       `json:"market_id"`
	Question    string       `json:"question"`
	Side        Side         `json:"side"`
	MarketPrice float64      `json:"market_price"`
	AIFairPrice float64      `json:"ai_fair_price"`
	EdgeBps     int          `json:"edge_bps"`
	Rationale   string       `json:"rationale,omitempty"`
	Volume      float64      `json:"volume"`
	Liquidity   float64      `json:"liquidity"`
	EndDate     time.Time    `json:"end_date,omitempty"`
	Status      SignalStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
}
