package relevance

import (
	"sort"
	"strings"

	"github.com/garindean/edgescout/internal/models"
)

const (
	// maxCandidates caps how many candidates one scan will judge.
	maxCandidates = 5
	// maxRanked caps the primary keyword-ranked set.
	maxRanked = 10
	// fallbackFloor triggers the low-yield fallback when fewer matches exist.
	fallbackFloor = 3
	// fallbackTake is how many top-volume listings the fallback pulls in.
	fallbackTake = 5
	// minWordLen filters out stopword-sized tokens in multi-word keywords.
	minWordLen = 2
)

// Filter narrows the listing set to those textually relevant to the topic,
// ranked by volume and truncated. If the keyword match yields too few
// candidates, the top listings by volume are merged in regardless of
// relevance so obscure topics still produce something to judge.
func Filter(listings []models.ListingCandidate, keywords []string) []models.ListingCandidate {
	matched := make([]models.ListingCandidate, 0, len(listings))
	for _, l := range listings {
		if matchesAny(searchableText(l), keywords) {
			matched = append(matched, l)
		}
	}

	ranked := rankByVolume(matched)
	if len(ranked) > maxRanked {
		ranked = ranked[:maxRanked]
	}

	if len(matched) < fallbackFloor {
		ranked = mergeTopVolume(ranked, listings)
	}
	return ranked
}

// matchesAny applies the whole-phrase OR all-words rule: a candidate matches
// a keyword when its text contains the keyword verbatim, or — for multi-word
// keywords — contains every word of length > 2 individually.
func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
		words := strings.Fields(kw)
		if len(words) < 2 {
			continue
		}
		checked := 0
		all := true
		for _, w := range words {
			if len(w) <= minWordLen {
				continue
			}
			checked++
			if !strings.Contains(text, w) {
				all = false
				break
			}
		}
		// A keyword of only short words checks nothing; that is not a match.
		if all && checked > 0 {
			return true
		}
	}
	return false
}

func searchableText(l models.ListingCandidate) string {
	parts := []string{l.Question, l.Subtitle, l.Description}
	return strings.ToLower(strings.Join(parts, " "))
}

// rankByVolume sorts descending by volume; listings without a numeric
// volume are excluded from the ranking entirely.
func rankByVolume(listings []models.ListingCandidate) []models.ListingCandidate {
	ranked := make([]models.ListingCandidate, 0, len(listings))
	for _, l := range listings {
		if l.HasVolume {
			ranked = append(ranked, l)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Volume > ranked[j].Volume
	})
	return ranked
}

// mergeTopVolume appends the top listings by volume from the unfiltered
// set, skipping ids already present, up to the combined cap.
func mergeTopVolume(ranked, all []models.ListingCandidate) []models.ListingCandidate {
	seen := make(map[string]struct{}, len(ranked))
	for _, l := range ranked {
		seen[l.MarketID] = struct{}{}
	}

	byVolume := rankByVolume(all)
	added := 0
	for _, l := range byVolume {
		if added >= fallbackTake || len(ranked) >= maxRanked {
			break
		}
		if _, ok := seen[l.MarketID]; ok {
			continue
		}
		ranked = append(ranked, l)
		seen[l.MarketID] = struct{}{}
		added++
	}
	return ranked
}

// TopForJudging applies the final truncation before the enrichment fan-out.
func TopForJudging(ranked []models.ListingCandidate) []models.ListingCandidate {
	if len(ranked) > maxCandidates {
		return ranked[:maxCandidates]
	}
	return ranked
}
