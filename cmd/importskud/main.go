package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"gatelog.io/gatelog/config"
	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/skud"
)

// importskud loads a raw badge-reader export into the database without
// going through the HTTP upload, for backfills and cron-driven ingestion.
func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	filePath := flag.String("file", "", "path to the raw export (.txt)")
	flag.Parse()

	if *filePath == "" {
		log.Fatal("usage: importskud -file export.txt [-config config.yaml]")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := core.Open(cfg.Database, core.LogLevelWarn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("open export: %v", err)
	}
	defer f.Close()

	parser := skud.NewParser(skud.Config{
		ExcludeEmployees: cfg.Filtering.ExcludeEmployees,
		ExcludeDoors:     cfg.Filtering.ExcludeDoors,
	})

	stats, err := core.NewImporter(db, parser, nil).ImportFile(context.Background(), f)
	if err != nil {
		log.Fatalf("import: %v", err)
	}

	fmt.Printf("lines=%d parsed=%d inserted=%d duplicates=%d skipped=%d\n",
		stats.Lines, stats.Parsed, stats.Inserted, stats.Duplicates, stats.Skipped)
}
