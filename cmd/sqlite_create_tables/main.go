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
		logging.Fatalf("[sqlite-create] open: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.CreateTables(ctx); err != nil {
		logging.Fatalf("[sqlite-create] create tables: %v", err)
	}
	logging.Infof("[sqlite-create] schema ready at %s", store.Path())
}
