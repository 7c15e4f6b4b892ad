// Command catalog-import loads offer and event JSON files into the SQLite
// catalog served with catalog.source=sqlite.
//
//	catalog-import -db ./data/catalog.db -offers ./data/offers.json -events ./data/events.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"benefit-recommendation-api/internal/catalog"
	"benefit-recommendation-api/internal/database"
	"benefit-recommendation-api/internal/logging"
	"benefit-recommendation-api/internal/models"
)

func main() {
	dbPath := flag.String("db", "./data/catalog.db", "Database file path")
	offersPath := flag.String("offers", "", "Offers JSON array file")
	eventsPath := flag.String("events", "", "Events JSON array file")
	deleteIDs := flag.String("delete", "", "Comma-separated record ids to remove before importing")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logging.Init(logging.Config{Level: *logLevel, Format: "console"})

	var removals []string
	for _, id := range strings.Split(*deleteIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			removals = append(removals, id)
		}
	}
	if *offersPath == "" && *eventsPath == "" && len(removals) == 0 {
		logging.Fatal().Msg("at least one of -offers, -events or -delete is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dbPath, catalog.FileSource{OffersPath: *offersPath, EventsPath: *eventsPath}, removals); err != nil {
		logging.Fatal().Err(err).Msg("catalog import failed")
	}
}

func run(ctx context.Context, dbPath string, src catalog.FileSource, removals []string) error {
	res, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read catalog files: %w", err)
	}

	db, err := database.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	for _, id := range removals {
		if err := db.DeleteRecord(ctx, id); err != nil {
			return err
		}
	}

	records := make([]models.BenefitRecord, 0, len(res.Offers)+len(res.Events))
	records = append(records, res.Offers...)
	records = append(records, res.Events...)

	n, err := db.UpsertRecords(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}

	counts, err := db.CountByKind(ctx)
	if err != nil {
		return fmt.Errorf("failed to count catalog records: %w", err)
	}

	logging.Info().
		Str("db", dbPath).
		Int("imported", n).
		Int("deleted", len(removals)).
		Int("skipped", res.Skipped).
		Int("offers_total", counts[models.KindOffer]).
		Int("events_total", counts[models.KindEvent]).
		Msg("catalog imported")
	return nil
}
