package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/garindean/edgescout/internal/logging"
	"github.com/garindean/edgescout/internal/models"
	sqlstore "github.com/garindean/edgescout/internal/storage/sqlite"
)

func main() {
	_ = godotenv.Load()
	logging.InitFromEnv()

	if len(os.Args) < 2 {
		usage()
	}

	store, err := sqlstore.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		logging.Fatalf("[topics] open sqlite: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	switch os.Args[1] {
	case "add":
		if len(os.Args) < 5 {
			usage()
		}
		topic := models.TopicProfile{
			ID:       os.Args[2],
			Name:     os.Args[3],
			Keywords: splitKeywords(os.Args[4]),
		}
		if len(topic.Keywords) == 0 {
			logging.Fatalf("[topics] at least one keyword is required")
		}
		if err := store.UpsertTopic(ctx, topic); err != nil {
			logging.Fatalf("[topics] upsert: %v", err)
		}
		fmt.Printf("saved topic %s (%d keywords)\n", topic.ID, len(topic.Keywords))
	case "list":
		topics, err := store.ListTopics(ctx)
		if err != nil {
			logging.Fatalf("[topics] list: %v", err)
		}
		for _, t := range topics {
			fmt.Printf("%s\t%s\t%s\n", t.ID, t.Name, strings.Join(t.Keywords, ", "))
		}
	default:
		usage()
	}
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: topics add <id> <name> <keyword,keyword,...> | topics list")
	os.Exit(2)
}
