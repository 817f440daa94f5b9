package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"era-vendors-api/internal/config"
	"era-vendors-api/internal/logging"
	"era-vendors-api/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(openStore).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore connects to DB_DSN. Without it vendorctl works on an empty in-memory store.
func openStore(ctx context.Context) (store.VendorStore, func() error, error) {
	cfg := config.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, nil, err
		}
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: "console", Output: "stderr"})
	stores, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return stores.Vendors, func() error {
		_ = logger.Sync()
		return stores.Close()
	}, nil
}
