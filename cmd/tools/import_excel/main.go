package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"era-vendors-api/internal/config"
	"era-vendors-api/internal/logging"
	"era-vendors-api/internal/models"
	"era-vendors-api/internal/store"
	"era-vendors-api/pkg/importer"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	var (
		filePath    = flag.String("file", "", "Path to the .xlsx workbook")
		mappingPath = flag.String("mapping", "configs/mapping/vendors.yaml", "YAML column mapping, empty for the built-in one")
		actor       = flag.String("actor", models.DefaultActor, "Name recorded in vendor history")
		dryRun      = flag.Bool("dry-run", false, "Report what would change without writing")
		maxErrors   = flag.Int("max-errors", 50, "Stop after this many row errors")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: import_excel --file=vendors.xlsx [--mapping=configs/mapping/vendors.yaml] [--actor=name] [--dry-run]")
		os.Exit(1)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DB_DSN is required, an in-memory import would be lost on exit")
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: "console", Output: "stderr"})
	defer logger.Sync()

	var mapping *importer.Mapping
	if *mappingPath != "" {
		m, err := importer.LoadMapping(*mappingPath)
		if err != nil {
			logger.Fatal("Failed to load mapping", zap.Error(err))
		}
		mapping = m
	}

	ctx := context.Background()
	stores, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer stores.Close()

	f, err := os.Open(*filePath)
	if err != nil {
		logger.Fatal("Failed to open workbook", zap.Error(err))
	}
	defer f.Close()

	sum, impErr := importer.ImportVendors(ctx, stores.Vendors, f, importer.ImportOptions{
		Mapping:   mapping,
		Actor:     *actor,
		DryRun:    *dryRun,
		MaxErrors: *maxErrors,
	})

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(sum); err != nil {
		logger.Error("Failed to write summary", zap.Error(err))
	}
	if impErr != nil {
		logger.Error("Import stopped", zap.Error(impErr))
		os.Exit(1)
	}
}
