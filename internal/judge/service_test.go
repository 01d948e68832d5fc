package judge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garindean/edgescout/internal/models"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newService(t *testing.T, c Completer) *Service {
	t.Helper()
	svc, err := NewService(Config{Client: c})
	require.NoError(t, err)
	return svc
}

func sampleBatch() []models.ListingCandidate {
	return []models.ListingCandidate{
		{MarketID: "m1", Question: "Will the election be postponed?", YesPrice: 0.10, Volume: 1500},
		{MarketID: "m2", Question: "Will turnout exceed 60%?", YesPrice: 0.55, Volume: 900},
	}
}

func TestEstimate_EmptyBatchSkipsJudge(t *testing.T) {
	fake := &fakeCompleter{response: `{"opinions": []}`}
	svc := newService(t, fake)

	opinions, err := svc.Estimate(context.Background(), "Elections", nil)
	require.NoError(t, err)
	assert.Empty(t, opinions)
	assert.Zero(t, fake.calls)
}

func TestEstimate_ParsesValidOpinions(t *testing.T) {
	fake := &fakeCompleter{response: `{
		"opinions": [
			{"marketId": "m1", "aiProbability": 40, "side": "YES", "rationale": "mispriced", "shouldTrade": true},
			{"marketId": "m2", "aiProbability": 55, "side": "no", "rationale": "fair", "shouldTrade": false}
		]
	}`}
	svc := newService(t, fake)

	opinions, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.NoError(t, err)
	require.Len(t, opinions, 2)

	assert.Equal(t, "m1", opinions[0].MarketID)
	assert.InDelta(t, 40, opinions[0].Probability, 1e-9)
	assert.Equal(t, models.SideYes, opinions[0].Side)
	assert.True(t, opinions[0].ShouldTrade)

	// Side casing is normalized.
	assert.Equal(t, models.SideNo, opinions[1].Side)
	assert.False(t, opinions[1].ShouldTrade)
}

func TestEstimate_PromptEmbedsCandidates(t *testing.T) {
	fake := &fakeCompleter{response: `{"opinions": []}`}
	svc := newService(t, fake)

	_, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.NoError(t, err)
	assert.Contains(t, fake.lastUser, "Will the election be postponed?")
	assert.Contains(t, fake.lastUser, "m2")
	assert.Contains(t, fake.lastUser, `"Elections"`)
}

func TestEstimate_UnknownIDDropped(t *testing.T) {
	fake := &fakeCompleter{response: `{
		"opinions": [
			{"marketId": "invented", "aiProbability": 90, "side": "YES", "shouldTrade": true},
			{"marketId": "m1", "aiProbability": 40, "side": "YES", "shouldTrade": true}
		]
	}`}
	svc := newService(t, fake)

	opinions, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.NoError(t, err)
	require.Len(t, opinions, 1)
	assert.Equal(t, "m1", opinions[0].MarketID)
}

func TestEstimate_DuplicateIDDropped(t *testing.T) {
	fake := &fakeCompleter{response: `{
		"opinions": [
			{"marketId": "m1", "aiProbability": 40, "side": "YES", "shouldTrade": true},
			{"marketId": "m1", "aiProbability": 60, "side": "NO", "shouldTrade": true}
		]
	}`}
	svc := newService(t, fake)

	opinions, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.NoError(t, err)
	require.Len(t, opinions, 1)
	assert.InDelta(t, 40, opinions[0].Probability, 1e-9)
}

func TestEstimate_PartialCoverageAllowed(t *testing.T) {
	fake := &fakeCompleter{response: `{
		"opinions": [{"marketId": "m2", "aiProbability": 70, "side": "YES", "shouldTrade": true}]
	}`}
	svc := newService(t, fake)

	opinions, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.NoError(t, err)
	require.Len(t, opinions, 1)
	assert.Equal(t, "m2", opinions[0].MarketID)
}

func TestEstimate_SurroundingProseTolerated(t *testing.T) {
	fake := &fakeCompleter{response: "Here is my analysis:\n```json\n" +
		`{"opinions": [{"marketId": "m1", "aiProbability": 40, "side": "YES", "shouldTrade": true}]}` +
		"\n```"}
	svc := newService(t, fake)

	opinions, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.NoError(t, err)
	assert.Len(t, opinions, 1)
}

func TestEstimate_CallFailureFailsWholeBatch(t *testing.T) {
	fake := &fakeCompleter{err: fmt.Errorf("auth denied")}
	svc := newService(t, fake)

	_, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm call")
}

func TestEstimate_MalformedJSONFailsWholeBatch(t *testing.T) {
	fake := &fakeCompleter{response: `{"opinions": [{"marketId": "m1",`}
	svc := newService(t, fake)

	_, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.Error(t, err)
}

func TestEstimate_OutOfRangeProbabilityFails(t *testing.T) {
	fake := &fakeCompleter{response: `{
		"opinions": [{"marketId": "m1", "aiProbability": 140, "side": "YES", "shouldTrade": true}]
	}`}
	svc := newService(t, fake)

	_, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.Error(t, err)
}

func TestEstimate_BadSideFails(t *testing.T) {
	fake := &fakeCompleter{response: `{
		"opinions": [{"marketId": "m1", "aiProbability": 40, "side": "MAYBE", "shouldTrade": true}]
	}`}
	svc := newService(t, fake)

	_, err := svc.Estimate(context.Background(), "Elections", sampleBatch())
	require.Error(t, err)
}
