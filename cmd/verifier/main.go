package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/vigilguard/verifier/internal/logger"
	"github.com/vigilguard/verifier/pkg/config"
	"github.com/vigilguard/verifier/pkg/dataset"
	"github.com/vigilguard/verifier/pkg/harness"
	"github.com/vigilguard/verifier/pkg/runstore"
	"github.com/vigilguard/verifier/pkg/version"
)

func main() {
	datasetPath := flag.String("dataset", "", "path to a JSONL adversarial corpus")
	threshold := flag.Float64("threshold", 50, "minimum detection rate in percent")
	configPath := flag.String("config", "./config", "directory containing config.yaml")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo())
		return
	}

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	if err := config.Load(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.GetConfig()
	logg := logger.NewLogger(cfg.Logging.Level)

	if *datasetPath == "" {
		logg.Fatal("missing -dataset flag")
	}

	items, err := dataset.LoadJSONL(*datasetPath)
	if err != nil {
		logg.WithError(err).Fatal("failed to load dataset")
	}
	logg.WithField("items", len(items)).Info("dataset loaded")

	ctx := context.Background()

	checker := harness.NewHealthChecker(cfg.Health, logg)
	health := checker.Check(ctx)
	logg.WithField("pii_service_healthy", health.PIIServiceHealthy).
		WithField("prompt_guard_healthy", health.PromptGuardHealthy).
		Info("dependency health")

	dispatcher := harness.NewDispatcher(cfg.Ingress, logg)
	poller := harness.NewEventPoller(cfg.LogStore, logg)
	evaluator := harness.NewDatasetEvaluator(dispatcher, poller, cfg.Evaluator, logg)

	report := evaluator.Evaluate(ctx, items)
	fmt.Print(report.Summary())

	if cfg.Database.Enabled {
		store, err := runstore.NewStore(cfg.Database, logg)
		if err != nil {
			logg.WithError(err).Error("run store unavailable, skipping persistence")
		} else {
			defer store.Close()
			name := filepath.Base(*datasetPath)
			if _, err := store.SaveReport(ctx, name, report, *threshold); err != nil {
				logg.WithError(err).Error("failed to persist evaluation run")
			}
		}
	}

	if !report.MeetsThreshold(*threshold) {
		logg.WithField("rate", fmt.Sprintf("%.1f%%", report.DetectionRate())).
			WithField("threshold", fmt.Sprintf("%.1f%%", *threshold)).
			Error("detection rate below threshold")
		os.Exit(1)
	}
}
