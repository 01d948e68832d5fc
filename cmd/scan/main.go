package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/garindean/edgescout/internal/cache"
	"github.com/garindean/edgescout/internal/judge"
	"github.com/garindean/edgescout/internal/kafka"
	"github.com/garindean/edgescout/internal/llm"
	"github.com/garindean/edgescout/internal/logging"
	"github.com/garindean/edgescout/internal/polymarket"
	"github.com/garindean/edgescout/internal/scanner"
	sqlstore "github.com/garindean/edgescout/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_ = godotenv.Load()
	logging.InitFromEnv()

	if len(os.Args) < 2 {
		logging.Fatalf("usage: scan <topic-id>")
	}
	topicID := os.Args[1]

	store, err := sqlstore.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		logging.Fatalf("[scan] open sqlite: %v", err)
	}
	defer store.Close()

	llmClient, err := llm.New(llm.Config{
		APIKey:      os.Getenv("LLM_API_KEY"),
		BaseURL:     os.Getenv("LLM_BASE_URL"),
		Model:       os.Getenv("LLM_MODEL"),
		Temperature: float32(envFloat("LLM_TEMPERATURE", 0.2)),
	})
	if err != nil {
		logging.Fatalf("[scan] llm client: %v", err)
	}

	judgeSvc, err := judge.NewService(judge.Config{Client: llmClient})
	if err != nil {
		logging.Fatalf("[scan] judge: %v", err)
	}

	venue := polymarket.NewClient(polymarket.Config{
		CatalogURL:     os.Getenv("VENUE_CATALOG_URL"),
		QuoteURL:       os.Getenv("VENUE_QUOTE_URL"),
		CatalogTimeout: envDuration("VENUE_CATALOG_TIMEOUT", 15*time.Second),
		QuoteTimeout:   envDuration("VENUE_QUOTE_TIMEOUT", 3*time.Second),
	})

	var opinions cache.OpinionCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		opinions, err = cache.NewRedisOpinionCache(
			addr,
			os.Getenv("REDIS_PASSWORD"),
			envInt("REDIS_DB", 0),
			envDuration("OPINION_CACHE_TTL", 15*time.Minute),
			"judge_opinion",
		)
		if err != nil {
			logging.Fatalf("[scan] opinion cache: %v", err)
		}
		defer opinions.Close()
	}

	cfg := scanner.Config{
		Store:      store,
		Listings:   venue,
		Quotes:     venue,
		Judge:      judgeSvc,
		Opinions:   opinions,
		MinEdgeBps: envInt("MIN_EDGE_BPS", 0),
	}

	if topic := os.Getenv("SIGNAL_KAFKA_TOPIC"); topic != "" {
		brokers := kafka.Brokers()
		ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := kafka.EnsureTopic(ensureCtx, brokers, topic); err != nil {
			logging.Errorf("[scan] ensure topic warning: %v", err)
		}
		cancel()
		writer := kafka.NewWriter(brokers, topic)
		defer writer.Close()
		cfg.Writer = writer
	}

	sc, err := scanner.New(cfg)
	if err != nil {
		logging.Fatalf("[scan] build scanner: %v", err)
	}

	res, err := sc.Scan(ctx, topicID)
	if err != nil {
		logging.Fatalf("[scan] scan failed: %v", err)
	}

	fmt.Println(res.Outcome.Message(res.CreatedSignalCount))
	for _, sig := range res.Signals {
		fmt.Printf("[signal] id=%d market=%s side=%s price=%.2f fair=%.2f edge=%d bps\n",
			sig.ID, sig.MarketID, sig.Side, sig.MarketPrice, sig.AIFairPrice, sig.EdgeBps)
	}
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return def
}
