package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/garindean/edgescout/internal/kafka"
	"github.com/garindean/edgescout/internal/logging"
	"github.com/garindean/edgescout/internal/models"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_ = godotenv.Load()
	logging.InitFromEnv()

	brokers := kafka.Brokers()
	topic := kafka.TopicFromEnv("SIGNAL_KAFKA_TOPIC", kafka.DefaultSignalTopic)
	group := envString("SIGNAL_FEED_GROUP", "signal-feed")

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
		logging.Fatalf("[signal-feed] wait for broker: %v", err)
	}
	cancel()

	reader := kafka.NewReader(brokers, topic, group)
	defer reader.Close()

	logging.Infof("[signal-feed] consuming %s with group %s", topic, group)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Errorf("[signal-feed] read error: %v", err)
			continue
		}

		var sig models.Signal
		if err := json.Unmarshal(msg.Value, &sig); err != nil {
			logging.Errorf("[signal-feed] unmarshal error: %v", err)
			continue
		}
		fmt.Printf("[signal] topic=%s market=%s side=%s price=%.2f fair=%.2f edge=%d bps %q\n",
			sig.TopicID, sig.MarketID, sig.Side, sig.MarketPrice, sig.AIFairPrice, sig.EdgeBps, sig.Question)
	}
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
