package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"imovel-importer/config"
	"imovel-importer/models"
	"imovel-importer/services"
	"imovel-importer/storage"
	"imovel-importer/utils"
)

const usage = `Usage: imovel-importer <command> [flags]

Commands:
  import    -user <id> -file <feed.xml> [-limit n]   import a vendor feed
  sanitize  -user <id>                               strip HTML from draft texts
  geocode   -user <id> [-admin]                      resolve draft addresses to coordinates
  migrate   -user <id> [-admin]                      rehost external photos on platform storage
  publish   -user <id> [-admin]                      publish all drafts
`

func main() {
	logger := utils.NewLogger()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	userID := flags.String("user", "", "user id owning the listings")
	filePath := flags.String("file", "", "path to the feed file (import)")
	limit := flags.Int("limit", 0, "plan limit on imported listings, 0 = use config")
	admin := flags.Bool("admin", false, "operate on all users")
	_ = flags.Parse(os.Args[2:])

	if *userID == "" && !*admin {
		logger.Error("A -user id is required (or -admin for the enrichment tools)")
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	store, err := storage.NewPostgresStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	onProgress := func(p models.EnrichmentProgress, status string) {
		logger.Info("[%d/%d] %s", p.Current, p.Total, status)
	}

	switch command {
	case "import":
		runImport(ctx, cfg, store, logger, *userID, *filePath, *limit)

	case "sanitize":
		res := services.NewSanitizer(store, logger).SanitizeDrafts(ctx, *userID)
		logger.Info("Sanitize finished: %d of %d drafts fixed", res.Fixed, res.Total)
		exitOnErrors(logger, res.Errors)

	case "geocode":
		geocoder := services.NewGeocoder(store, cfg.GeocoderBaseURL, cfg.GeocoderUserAgent,
			cfg.GeocoderCountry, time.Duration(cfg.GeocoderDelayMs)*time.Millisecond, logger)
		res := geocoder.GeocodeDrafts(ctx, *userID, onProgress, *admin)
		logger.Info("Geocode finished: %d located, %d failed of %d", res.Success, res.Failed, res.Total)
		exitOnErrors(logger, res.Errors)

	case "migrate":
		objects, err := storage.NewGCSStorage(ctx, cfg.StorageBucket, cfg.StoragePublicURL)
		if err != nil {
			logger.Error("Failed to connect to object storage: %v", err)
			os.Exit(1)
		}
		migrator := services.NewMigrator(store, objects, cfg.StoragePublicURL,
			time.Duration(cfg.UploadDelayMs)*time.Millisecond, logger)
		res := migrator.MigrateExternalImages(ctx, *userID, onProgress, *admin)
		logger.Info("Migration finished: %d records migrated", res.Success)
		exitOnErrors(logger, res.Errors)

	case "publish":
		res := services.NewPublisher(store, logger).PublishDrafts(ctx, *userID, *admin)
		logger.Info("Publish finished: %d of %d drafts published", res.Published, res.Total)
		exitOnErrors(logger, res.Errors)

	default:
		fmt.Print(usage)
		os.Exit(2)
	}
}

func runImport(ctx context.Context, cfg *config.Config, store storage.ListingStore,
	logger *utils.Logger, userID, filePath string, limit int) {

	if filePath == "" {
		logger.Error("The import command requires -file")
		os.Exit(2)
	}
	raw, err := os.ReadFile(filePath)
	if err != nil {
		logger.Error("Failed to read feed file: %v", err)
		os.Exit(1)
	}
	if limit == 0 {
		limit = cfg.ImportLimit
	}

	result := services.NewImporter(store, logger).ImportFeed(ctx, string(raw), userID, limit)
	logger.Info("Import finished: %d total, %d imported, %d duplicates, %d errors",
		result.Total, result.Imported, result.Duplicates, len(result.Errors))

	if len(result.Errors) > 0 {
		report, err := storage.NewReportWriter(cfg.ReportPath)
		if err != nil {
			logger.Error("Failed to create import report: %v", err)
		} else {
			if err := report.WriteResult(userID, result); err != nil {
				logger.Error("Failed to write import report: %v", err)
			} else {
				logger.Info("Import errors written to %s", cfg.ReportPath)
			}
			_ = report.Close()
		}
		exitOnErrors(logger, result.Errors)
	}
}

func exitOnErrors(logger *utils.Logger, errors []string) {
	for _, msg := range errors {
		logger.Error("%s", msg)
	}
	if len(errors) > 0 {
		os.Exit(1)
	}
}
