package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garindean/edgescout/internal/models"
)

// ErrInvalidTransition is returned when a status update would leave a
// terminal state or skip the lifecycle.
var ErrInvalidTransition = fmt.Errorf("sqlite: invalid signal status transition")

// UpsertTopic creates or replaces a topic profile.
func (s *Store) UpsertTopic(ctx context.Context, topic models.TopicProfile) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	keywords, err := json.Marshal(topic.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO topics (id, name, keywords_json, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, keywords_json = excluded.keywords_json
`, topic.ID, topic.Name, string(keywords), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// GetTopic loads one topic profile by id.
func (s *Store) GetTopic(ctx context.Context, id string) (models.TopicProfile, error) {
	var topic models.TopicProfile
	var keywordsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, keywords_json FROM topics WHERE id = ?`, id,
	).Scan(&topic.ID, &topic.Name, &keywordsJSON)
	if err != nil {
		return models.TopicProfile{}, fmt.Errorf("get topic %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &topic.Keywords); err != nil {
		return models.TopicProfile{}, fmt.Errorf("parse keywords for topic %s: %w", id, err)
	}
	return topic, nil
}

// ListTopics returns every topic profile.
func (s *Store) ListTopics(ctx context.Context) ([]models.TopicProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, keywords_json FROM topics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []models.TopicProfile
	for rows.Next() {
		var topic models.TopicProfile
		var keywordsJSON string
		if err := rows.Scan(&topic.ID, &topic.Name, &keywordsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &topic.Keywords); err != nil {
			return nil, fmt.Errorf("parse keywords for topic %s: %w", topic.ID, err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// CreateSignals inserts a batch in one transaction and returns the stored
// rows with their assigned ids. Signals are append-only: the pipeline never
// updates an existing row.
func (s *Store) CreateSignals(ctx context.Context, sigs []models.Signal) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialized")
	}
	if len(sigs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stored := make([]models.Signal, 0, len(sigs))
	for _, sig := range sigs {
		if sig.Status == "" {
			sig.Status = models.StatusActive
		}
		if sig.CreatedAt.IsZero() {
			sig.CreatedAt = time.Now().UTC()
		}
		var endDate any
		if !sig.EndDate.IsZero() {
			endDate = sig.EndDate.UTC().Format(time.RFC3339)
		}
		res, err := tx.ExecContext(ctx, `
INSERT INTO signals (
	topic_id, market_id, question, side,
	market_price, ai_fair_price, edge_bps, rationale,
	volume, liquidity, end_date, status, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			sig.TopicID, sig.MarketID, sig.Question, string(sig.Side),
			sig.MarketPrice, sig.AIFairPrice, sig.EdgeBps, sig.Rationale,
			sig.Volume, sig.Liquidity, endDate, string(sig.Status),
			sig.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return nil, fmt.Errorf("insert signal %s: %w", sig.MarketID, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		sig.ID = id
		stored = append(stored, sig)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// GetSignal loads one signal by id.
func (s *Store) GetSignal(ctx context.Context, id int64) (models.Signal, error) {
	var sig models.Signal
	var side, status, createdAt string
	var endDate sql.NullString
	err := s.db.QueryRowContext(ctx, `
SELECT id, topic_id, market_id, question, side,
	market_price, ai_fair_price, edge_bps, COALESCE(rationale, ''),
	COALESCE(volume, 0), COALESCE(liquidity, 0), end_date, status, created_at
FROM signals WHERE id = ?`, id,
	).Scan(&sig.ID, &sig.TopicID, &sig.MarketID, &sig.Question, &side,
		&sig.MarketPrice, &sig.AIFairPrice, &sig.EdgeBps, &sig.Rationale,
		&sig.Volume, &sig.Liquidity, &endDate, &status, &createdAt)
	if err != nil {
		return models.Signal{}, fmt.Errorf("get signal %d: %w", id, err)
	}
	sig.Side = models.Side(side)
	sig.Status = models.SignalStatus(status)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		sig.CreatedAt = ts
	}
	if endDate.Valid {
		if ts, err := time.Parse(time.RFC3339, endDate.String); err == nil {
			sig.EndDate = ts
		}
	}
	return sig, nil
}

// UpdateSignalStatus moves a signal through its lifecycle. Only
// active -> dismissed and active -> added are allowed; terminal states
// never transition again.
func (s *Store) UpdateSignalStatus(ctx context.Context, id int64, status models.SignalStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM signals WHERE id = ?`, id).Scan(&current); err != nil {
		return fmt.Errorf("get signal %d status: %w", id, err)
	}
	if !models.ValidTransition(models.SignalStatus(current), status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE signals SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("update signal %d: %w", id, err)
	}
	return tx.Commit()
}

// AttachSignalToStrategy marks a signal as added and links it to a
// strategy in one transaction.
func (s *Store) AttachSignalToStrategy(ctx context.Context, signalID int64, strategyID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM signals WHERE id = ?`, signalID).Scan(&current); err != nil {
		return fmt.Errorf("get signal %d status: %w", signalID, err)
	}
	if !models.ValidTransition(models.SignalStatus(current), models.StatusAdded) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, models.StatusAdded)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO strategies (id, name, created_at) VALUES (?, ?, ?)`,
		strategyID, strategyID, now,
	); err != nil {
		return fmt.Errorf("ensure strategy %s: %w", strategyID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO strategy_signals (strategy_id, signal_id, added_at) VALUES (?, ?, ?)`,
		strategyID, signalID, now,
	); err != nil {
		return fmt.Errorf("link signal %d: %w", signalID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE signals SET status = ? WHERE id = ?`, string(models.StatusAdded), signalID,
	); err != nil {
		return fmt.Errorf("update signal %d: %w", signalID, err)
	}
	return tx.Commit()
}

// InsertScan records one scan run for audit.
func (s *Store) InsertScan(ctx context.Context, topicID, outcome string, createdCount int, startedAt, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO scans (topic_id, outcome, created_count, started_at, finished_at)
VALUES (?, ?, ?, ?, ?)`,
		topicID, outcome, createdCount,
		startedAt.UTC().Format(time.RFC3339Nano),
		finishedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}
