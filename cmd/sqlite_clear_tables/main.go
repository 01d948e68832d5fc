package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/garindean/edgescout/internal/logging"
	sqlstore "github.com/garindean/edgescout/internal/storage/sqlite"
)

func main() {
	_ = godotenv.Load()
	logging.InitFromEnv()

	store, err := sqlstore.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		logging.Fatalf("[sqlite-clear] open: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.ClearTables(ctx); err != nil {
		logging.Fatalf("[sqlite-clear] clear tables: %v", err)
	}
	logging.Infof("[sqlite-clear] signal and scan history cleared at %s", store.Path())
}
