// Command train fits the classifier artifacts offline. It reads the
// corpus the same way the server does (database first, JSON fallback)
// and writes the versioned artifact pair for the server to load on its
// next start or reload.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/nlp"
	"github.com/intentbot/backend/internal/storage/sqlite"
	"github.com/intentbot/backend/internal/training"
	"github.com/intentbot/backend/pkg/config"
	appLogger "github.com/intentbot/backend/pkg/logger"
)

func main() {
	importPath := flag.String("import", "", "JSON corpus file to import into the database before training")
	exportPath := flag.String("export", "", "write the effective corpus back out as a JSON file after training")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	if *importPath != "" {
		snapshot, err := corpus.LoadFile(*importPath)
		if err != nil {
			appLogger.Fatal("Failed to read corpus file", zap.String("path", *importPath), zap.Error(err))
		}
		if err := sqliteClient.ImportCorpus(snapshot.Intents()); err != nil {
			appLogger.Fatal("Failed to import corpus", zap.Error(err))
		}
		appLogger.Info("Corpus imported",
			zap.String("path", *importPath),
			zap.Int("intents", snapshot.Len()),
		)
	}

	snapshot, err := corpus.Load(sqliteClient, cfg.Corpus.FallbackPath)
	if err != nil {
		appLogger.Fatal("Failed to load corpus", zap.Error(err))
	}

	trainer := training.NewTrainer(nlp.NewNormalizer(), cfg.Model.MaxFeatures, cfg.Model.Dir)
	report, err := trainer.Train(snapshot)
	if err != nil {
		appLogger.Fatal("Training failed", zap.Error(err))
	}

	appLogger.Info("Artifacts written",
		zap.String("dir", cfg.Model.Dir),
		zap.String("version", report.Version),
	)

	if *exportPath != "" {
		if err := corpus.SaveFile(*exportPath, snapshot); err != nil {
			appLogger.Fatal("Failed to export corpus", zap.String("path", *exportPath), zap.Error(err))
		}
		appLogger.Info("Corpus exported", zap.String("path", *exportPath))
	}
}
