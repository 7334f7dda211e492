package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/intentbot/backend/internal/storage/models"
	"github.com/intentbot/backend/pkg/logger"
)

// Store is the corpus half of the sqlite client.
type Store interface {
	ListIntents() ([]models.Intent, error)
}

// Load reads the corpus from the store; when the store is empty or
// unreadable it falls back to the JSON training-data file, so a fresh
// database still serves the seed corpus.
func Load(store Store, fallbackPath string) (*Snapshot, error) {
	intents, err := store.ListIntents()
	if err != nil {
		logger.Warn("Corpus store unreadable, falling back to file",
			zap.Error(err),
			zap.String("path", fallbackPath),
		)
		return LoadFile(fallbackPath)
	}
	if len(intents) == 0 {
		logger.Info("Corpus store empty, loading training-data file",
			zap.String("path", fallbackPath),
		)
		return LoadFile(fallbackPath)
	}

	snapshot, err := NewSnapshot(intents)
	if err != nil {
		return nil, fmt.Errorf("invalid corpus: %w", err)
	}

	logger.Info("Corpus loaded",
		zap.Int("intents", snapshot.Len()),
		zap.Int("patterns", len(snapshot.Patterns())),
	)
	return snapshot, nil
}

// LoadFile reads a JSON training-data file into a snapshot.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var file models.CorpusFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file: %w", err)
	}

	snapshot, err := NewSnapshot(file.Intents)
	if err != nil {
		return nil, fmt.Errorf("invalid corpus file: %w", err)
	}

	logger.Info("Corpus file loaded", zap.String("path", path), zap.Int("intents", snapshot.Len()))
	return snapshot, nil
}

// SaveFile writes a snapshot back to the JSON training-data layout.
func SaveFile(path string, s *Snapshot) error {
	data, err := json.MarshalIndent(models.CorpusFile{Intents: s.Intents()}, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal corpus: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write corpus file: %w", err)
	}
	return nil
}
