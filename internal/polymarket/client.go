package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/garindean/edgescout/internal/logging"
	"github.com/garindean/edgescout/internal/models"
)

const (
	defaultCatalogURL = "https://gamma-api.polymarket.com/markets"
	defaultQuoteURL   = "https://clob.polymarket.com/midpoint"

	defaultCatalogTimeout = 15 * time.Second
	defaultQuoteTimeout   = 3 * time.Second
)

// Client fetches the venue catalog and per-token live quotes.
type Client struct {
	catalogURL     string
	quoteURL       string
	httpClient     *http.Client
	catalogTimeout time.Duration
	quoteTimeout   time.Duration
}

// Config controls optional overrides for the client.
type Config struct {
	CatalogURL     string
	QuoteURL       string
	CatalogTimeout time.Duration
	QuoteTimeout   time.Duration
}

// NewClient builds a venue client with sane defaults.
func NewClient(cfg Config) *Client {
	catalog := cfg.CatalogURL
	if catalog == "" {
		catalog = defaultCatalogURL
	}
	quote := cfg.QuoteURL
	if quote == "" {
		quote = defaultQuoteURL
	}
	catalogTimeout := cfg.CatalogTimeout
	if catalogTimeout <= 0 {
		catalogTimeout = defaultCatalogTimeout
	}
	quoteTimeout := cfg.QuoteTimeout
	if quoteTimeout <= 0 {
		quoteTimeout = defaultQuoteTimeout
	}
	return &Client{
		catalogURL:     catalog,
		quoteURL:       quote,
		httpClient:     &http.Client{},
		catalogTimeout: catalogTimeout,
		quoteTimeout:   quoteTimeout,
	}
}

func (c *Client) Name() string {
	return "polymarket"
}

// FetchOpenListings retrieves the full set of currently open listings.
// Any failure (unreachable upstream, non-2xx, deadline) degrades to an
// empty set; there are no retries on the scan path. Listings whose
// affirmative price cannot be parsed into a valid probability are
// dropped rather than defaulted.
func (c *Client) FetchOpenListings(ctx context.Context) []models.ListingCandidate {
	ctx, cancel := context.WithTimeout(ctx, c.catalogTimeout)
	defer cancel()

	u, _ := url.Parse(c.catalogURL)
	q := u.Query()
	q.Set("closed", "false")
	q.Set("active", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		logging.Errorf("[polymarket] build catalog request: %v", err)
		return nil
	}

	var raw []rawListing
	if err := c.do(req, &raw); err != nil {
		logging.Errorf("[polymarket] catalog fetch failed: %v", err)
		return nil
	}

	listings := make([]models.ListingCandidate, 0, len(raw))
	for _, rl := range raw {
		cand, ok := normalizeListing(rl)
		if !ok {
			continue
		}
		listings = append(listings, cand)
	}
	logging.Debugf("[polymarket] catalog returned %d listings (%d usable)", len(raw), len(listings))
	return listings
}

// FetchQuote returns a fresh probability quote for one outcome token.
// The caller decides what to do with out-of-range values.
func (c *Client) FetchQuote(ctx context.Context, tokenID string) (float64, error) {
	if strings.TrimSpace(tokenID) == "" {
		return 0, fmt.Errorf("polymarket: token id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, c.quoteTimeout)
	defer cancel()

	u, _ := url.Parse(c.quoteURL)
	q := u.Query()
	q.Set("token_id", tokenID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}

	var body struct {
		Mid string `json:"mid"`
	}
	if err := c.do(req, &body); err != nil {
		return 0, err
	}
	mid, err := strconv.ParseFloat(strings.TrimSpace(body.Mid), 64)
	if err != nil {
		return 0, fmt.Errorf("polymarket: parse quote %q: %w", body.Mid, err)
	}
	return mid, nil
}

func (c *Client) do(req *http.Request, dst any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("polymarket API %s: %s", resp.Status, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// normalizeListing converts one catalog row into a candidate. Closed rows
// and rows without a parsable affirmative price are excluded here, at the
// parse boundary.
func normalizeListing(rl rawListing) (models.ListingCandidate, bool) {
	if rl.Closed || !rl.Active {
		return models.ListingCandidate{}, false
	}

	outcomes := parseStringArray(rl.Outcomes)
	prices := parseStringArray(rl.OutcomePrices)
	yesIdx := affirmativeIndex(outcomes)
	if yesIdx >= len(prices) {
		return models.ListingCandidate{}, false
	}
	yesPrice, err := strconv.ParseFloat(strings.TrimSpace(prices[yesIdx]), 64)
	if err != nil || yesPrice < 0 || yesPrice > 1 {
		return models.ListingCandidate{}, false
	}

	tokenIDs := parseStringArray(rl.ClobTokenIds)
	yesToken := ""
	if yesIdx < len(tokenIDs) {
		yesToken = tokenIDs[yesIdx]
	}

	var endDate time.Time
	if rl.EndDate != "" {
		if ts, err := time.Parse(time.RFC3339, rl.EndDate); err == nil {
			endDate = ts
		}
	}

	return models.ListingCandidate{
		MarketID:    rl.ID,
		Question:    rl.Question,
		Subtitle:    rl.Subtitle,
		Description: rl.Description,
		Outcomes:    outcomes,
		YesPrice:    yesPrice,
		YesTokenID:  yesToken,
		Volume:      rl.VolumeNum,
		HasVolume:   rl.VolumeNum > 0,
		Liquidity:   rl.LiquidityNum,
		EndDate:     endDate,
	}, true
}

// affirmativeIndex locates the YES-equivalent outcome, falling back to the
// first outcome for venues that always list the affirmative side first.
func affirmativeIndex(outcomes []string) int {
	for i, o := range outcomes {
		if strings.EqualFold(strings.TrimSpace(o), "yes") {
			return i
		}
	}
	return 0
}

// parseStringArray decodes the venue's string-encoded JSON arrays
// (e.g. "[\"Yes\", \"No\"]").
func parseStringArray(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

type rawListing struct {
	ID            string  `json:"id"`
	Question      string  `json:"question"`
	Subtitle      string  `json:"groupItemTitle"`
	Description   string  `json:"description"`
	Outcomes      string  `json:"outcomes"`
	OutcomePrices string  `json:"outcomePrices"`
	ClobTokenIds  string  `json:"clobTokenIds"`
	VolumeNum     float64 `json:"volumeNum"`
	LiquidityNum  float64 `json:"liquidityNum"`
	EndDate       string  `json:"endDate"`
	Active        bool    `json:"active"`
	Closed        bool    `json:"closed"`
	Slug          string  `json:"slug"`
}
