package relevance

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garindean/edgescout/internal/models"
)

func candidate(id, question string, volume float64) models.ListingCandidate {
	return models.ListingCandidate{
		MarketID:  id,
		Question:  question,
		Volume:    volume,
		HasVolume: volume > 0,
	}
}

func ids(listings []models.ListingCandidate) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.MarketID)
	}
	return out
}

func TestFilter_ExactPhraseAlwaysIncluded(t *testing.T) {
	listings := []models.ListingCandidate{
		candidate("m1", "Will the election be postponed?", 100),
		candidate("m2", "Will it rain tomorrow?", 200),
		candidate("m3", "Will Bitcoin hit 100k?", 300),
	}
	got := Filter(listings, []string{"election"})
	require.NotEmpty(t, got)
	assert.Equal(t, "m1", got[0].MarketID)
}

func TestFilter_CaseInsensitive(t *testing.T) {
	listings := []models.ListingCandidate{
		candidate("m1", "Will the ELECTION be postponed?", 100),
		candidate("m2", "a", 1), candidate("m3", "b", 2), candidate("m4", "c", 3),
	}
	got := Filter(listings, []string{"Election"})
	assert.Contains(t, ids(got), "m1")
}

func TestFilter_MultiWordKeywordAllWordsRule(t *testing.T) {
	listings := []models.ListingCandidate{
		// Phrase does not appear verbatim but every long word does.
		candidate("m1", "Federal hike announced: will the reserve raise rates?", 500),
		candidate("m2", "Will it rain tomorrow?", 100),
		candidate("m3", "c", 1), candidate("m4", "d", 2), candidate("m5", "e", 3),
	}
	got := Filter(listings, []string{"federal reserve hike"})
	assert.Contains(t, ids(got), "m1")
}

func TestFilter_ShortWordOnlyKeywordMatchesNothing(t *testing.T) {
	// Every word of "us ai" is too short to check, so the all-words rule
	// must not degenerate into matching every listing.
	matched := make([]models.ListingCandidate, 0, 4)
	for i := 0; i < 4; i++ {
		matched = append(matched, candidate(fmt.Sprintf("e%d", i), "election result", float64(10+i)))
	}
	listings := append(matched, candidate("x1", "Will it snow in July?", 50))

	got := Filter(listings, []string{"election", "us ai"})
	assert.NotContains(t, ids(got), "x1")
}

func TestFilter_NoKeywordWordsExcludedFromPrimarySet(t *testing.T) {
	matched := make([]models.ListingCandidate, 0, 4)
	for i := 0; i < 4; i++ {
		matched = append(matched, candidate(fmt.Sprintf("e%d", i), "election result", float64(10+i)))
	}
	unrelated := candidate("x1", "Will it snow in July?", 9999)

	got := Filter(append(matched, unrelated), []string{"election"})
	// Enough matches, so the fallback never fires and the unrelated
	// listing stays out despite its huge volume.
	assert.NotContains(t, ids(got), "x1")
}

func TestFilter_SortedByVolumeDescAndCapped(t *testing.T) {
	var listings []models.ListingCandidate
	for i := 0; i < 15; i++ {
		listings = append(listings, candidate(fmt.Sprintf("m%d", i), "election", float64(i)))
	}
	got := Filter(listings, []string{"election"})
	require.Len(t, got, 10)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Volume, got[i].Volume)
	}
	assert.Equal(t, "m14", got[0].MarketID)
}

func TestFilter_NoVolumeExcludedFromRanking(t *testing.T) {
	listings := []models.ListingCandidate{
		candidate("m1", "election day", 0),
		candidate("m2", "election night", 50),
		candidate("m3", "a", 1), candidate("m4", "b", 2), candidate("m5", "c", 3),
	}
	got := Filter(listings, []string{"election"})
	assert.NotContains(t, ids(got), "m1")
	assert.Contains(t, ids(got), "m2")
}

func TestFilter_LowYieldFallbackMergesTopVolume(t *testing.T) {
	listings := []models.ListingCandidate{
		candidate("m1", "Will the election be postponed?", 10),
		candidate("u1", "Will it rain tomorrow?", 900),
		candidate("u2", "Will Bitcoin hit 100k?", 800),
		candidate("u3", "Super Bowl winner?", 700),
		candidate("u4", "Oscar best picture?", 600),
		candidate("u5", "Next James Bond?", 500),
		candidate("u6", "Mars landing by 2030?", 400),
	}
	got := Filter(listings, []string{"election"})

	// One keyword match plus the top five by volume, no duplicates.
	require.Len(t, got, 6)
	assert.Equal(t, "m1", got[0].MarketID)
	assert.ElementsMatch(t, []string{"m1", "u1", "u2", "u3", "u4", "u5"}, ids(got))
}

func TestFilter_FallbackDoesNotDuplicateIDs(t *testing.T) {
	listings := []models.ListingCandidate{
		candidate("m1", "Will the election be postponed?", 950),
		candidate("u1", "Will it rain tomorrow?", 900),
		candidate("u2", "Will Bitcoin hit 100k?", 800),
	}
	got := Filter(listings, []string{"election"})
	seen := map[string]int{}
	for _, l := range got {
		seen[l.MarketID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "id %s duplicated", id)
	}
}

func TestFilter_NoMatchesAtAllStillFallsBack(t *testing.T) {
	listings := []models.ListingCandidate{
		candidate("u1", "Will it rain tomorrow?", 900),
		candidate("u2", "Will Bitcoin hit 100k?", 800),
	}
	got := Filter(listings, []string{"obscure topic nobody lists"})
	assert.Len(t, got, 2)
}

func TestTopForJudging_CapsAtFive(t *testing.T) {
	var listings []models.ListingCandidate
	for i := 0; i < 8; i++ {
		listings = append(listings, candidate(fmt.Sprintf("m%d", i), "q", float64(i)))
	}
	assert.Len(t, TopForJudging(listings), 5)
	assert.Len(t, TopForJudging(listings[:3]), 3)
}
