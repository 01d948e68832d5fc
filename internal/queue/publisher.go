// Package queue publishes materialized signals for downstream consumers.
// Publishing happens after the scan pipeline commits; the scan itself stays
// synchronous and never depends on the broker being up.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/garindean/edgescout/internal/models"
)

// PublishSignals writes one message per emitted signal, keyed by
// topic+market so a partition sees a stable ordering per opportunity.
func PublishSignals(ctx context.Context, writer *kafka.Writer, sigs []models.Signal) error {
	if writer == nil || len(sigs) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(sigs))
	for _, sig := range sigs {
		payload, err := json.Marshal(sig)
		if err != nil {
			return fmt.Errorf("marshal signal %s: %w", sig.MarketID, err)
		}
		key := fmt.Sprintf("%s-%s-%s", sig.TopicID, sig.MarketID, sig.Side)
		msgs = append(msgs, kafka.Message{Key: []byte(key), Value: payload})
	}
	return writer.WriteMessages(ctx, msgs...)
}
