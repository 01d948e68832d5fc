package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garindean/edgescout/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "edgescout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.CreateTables(context.Background()))
	return store
}

func sampleSignal() models.Signal {
	return models.Signal{
		TopicID:     "t1",
		MarketID:    "m1",
		Question:    "Will the election be postponed?",
		Side:        models.SideYes,
		MarketPrice: 0.10,
		AIFairPrice: 0.40,
		EdgeBps:     3000,
		Rationale:   "market underprices the affirmative outcome",
		Volume:      1500,
		Liquidity:   300,
		EndDate:     time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC),
		Status:      models.StatusActive,
	}
}

func TestTopicRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	topic := models.TopicProfile{
		ID:       "t1",
		Name:     "US Elections",
		Keywords: []string{"election", "ballot measure"},
	}
	require.NoError(t, store.UpsertTopic(ctx, topic))

	got, err := store.GetTopic(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, topic.Name, got.Name)
	assert.Equal(t, topic.Keywords, got.Keywords)

	// Upsert replaces keywords in place.
	topic.Keywords = []string{"election"}
	require.NoError(t, store.UpsertTopic(ctx, topic))
	got, err = store.GetTopic(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"election"}, got.Keywords)

	topics, err := store.ListTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}

func TestGetTopic_Missing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetTopic(context.Background(), "nope")
	assert.Error(t, err)
}

func TestCreateSignals_AssignsIDsAndDefaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sig := sampleSignal()
	sig.Status = ""
	sig.CreatedAt = time.Time{}

	stored, err := store.CreateSignals(ctx, []models.Signal{sig, sampleSignal()})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Positive(t, stored[0].ID)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
	assert.Equal(t, models.StatusActive, stored[0].Status)
	assert.False(t, stored[0].CreatedAt.IsZero())

	got, err := store.GetSignal(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "m1", got.MarketID)
	assert.Equal(t, models.SideYes, got.Side)
	assert.InDelta(t, 0.10, got.MarketPrice, 1e-9)
	assert.InDelta(t, 0.40, got.AIFairPrice, 1e-9)
	assert.Equal(t, 3000, got.EdgeBps)
	assert.Equal(t, 2026, got.EndDate.Year())
}

func TestCreateSignals_EmptyBatchNoop(t *testing.T) {
	store := openTestStore(t)
	stored, err := store.CreateSignals(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestUpdateSignalStatus_Lifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	stored, err := store.CreateSignals(ctx, []models.Signal{sampleSignal()})
	require.NoError(t, err)
	id := stored[0].ID

	require.NoError(t, store.UpdateSignalStatus(ctx, id, models.StatusDismissed))

	got, err := store.GetSignal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDismissed, got.Status)

	// Terminal states never transition again.
	err = store.UpdateSignalStatus(ctx, id, models.StatusAdded)
	require.ErrorIs(t, err, ErrInvalidTransition)
	err = store.UpdateSignalStatus(ctx, id, models.StatusActive)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAttachSignalToStrategy(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	stored, err := store.CreateSignals(ctx, []models.Signal{sampleSignal()})
	require.NoError(t, err)
	id := stored[0].ID

	require.NoError(t, store.AttachSignalToStrategy(ctx, id, "strat-1"))

	got, err := store.GetSignal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAdded, got.Status)

	// Already terminal; a second attach is rejected.
	err = store.AttachSignalToStrategy(ctx, id, "strat-2")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInsertScan(t *testing.T) {
	store := openTestStore(t)
	now := time.Now().UTC()
	err := store.InsertScan(context.Background(), "t1", "signals_found", 3, now.Add(-2*time.Second), now)
	require.NoError(t, err)
}

func TestClearTables_WipesHistoryKeepsTopics(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	topic := models.TopicProfile{ID: "t1", Name: "US Elections", Keywords: []string{"election"}}
	require.NoError(t, store.UpsertTopic(ctx, topic))
	stored, err := store.CreateSignals(ctx, []models.Signal{sampleSignal()})
	require.NoError(t, err)
	require.NoError(t, store.AttachSignalToStrategy(ctx, stored[0].ID, "strat-1"))
	require.NoError(t, store.InsertScan(ctx, "t1", "signals_found", 1, time.Now(), time.Now()))

	require.NoError(t, store.ClearTables(ctx))

	_, err = store.GetSignal(ctx, stored[0].ID)
	assert.Error(t, err)
	got, err := store.GetTopic(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "US Elections", got.Name)
}

func TestMigrate_IdempotentAndRepairsStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Re-running against an existing schema is safe.
	require.NoError(t, store.Migrate(ctx))

	// A row written without a status gets repaired to active.
	_, err := store.db.ExecContext(ctx, `
INSERT INTO signals (topic_id, market_id, question, side, market_price, ai_fair_price, edge_bps, status, created_at)
VALUES ('t1', 'm1', 'q', 'YES', 0.1, 0.4, 3000, '', ?)`,
		time.Now().UTC().Format(time.RFC3339Nano))
	require.NoError(t, err)

	require.NoError(t, store.Migrate(ctx))

	var status string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT status FROM signals WHERE market_id = 'm1'`).Scan(&status))
	assert.Equal(t, string(models.StatusActive), status)
}

func TestRescanAppendsDuplicateActiveSignals(t *testing.T) {
	// Re-scanning appends fresh rows even for the same listing+side; the
	// pipeline treats each scan as an independent snapshot.
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.CreateSignals(ctx, []models.Signal{sampleSignal()})
	require.NoError(t, err)
	second, err := store.CreateSignals(ctx, []models.Signal{sampleSignal()})
	require.NoError(t, err)

	assert.NotEqual(t, first[0].ID, second[0].ID)
}
