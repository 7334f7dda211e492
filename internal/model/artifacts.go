package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	vectorizerFile = "vectorizer.json"
	classifierFile = "classifier.json"
)

// Artifacts is the trained vectorizer/classifier pair. Both halves must
// come from the same training run; Load enforces that.
type Artifacts struct {
	Vectorizer *Vectorizer
	Classifier *Classifier
}

// Save writes both artifacts atomically (temp file + rename) so a
// concurrent Load never observes a half-written pair.
func Save(dir string, a *Artifacts) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, vectorizerFile), a.Vectorizer); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, classifierFile), a.Classifier); err != nil {
		return err
	}
	return nil
}

// Load reads the pair from dir. It returns an error when either file is
// missing or corrupt, when the versions differ, or when the classifier
// feature count does not match the vectorizer dimensionality. Callers
// degrade to fallback-only mode on any of these.
func Load(dir string) (*Artifacts, error) {
	var vec Vectorizer
	if err := readJSON(filepath.Join(dir, vectorizerFile), &vec); err != nil {
		return nil, err
	}

	var cls Classifier
	if err := readJSON(filepath.Join(dir, classifierFile), &cls); err != nil {
		return nil, err
	}

	if vec.Version != cls.Version {
		return nil, fmt.Errorf("artifact version mismatch: vectorizer %q, classifier %q", vec.Version, cls.Version)
	}
	if vec.Dim() != cls.FeatureCount() {
		return nil, fmt.Errorf("artifact dimension mismatch: vectorizer %d, classifier %d", vec.Dim(), cls.FeatureCount())
	}

	return &Artifacts{Vectorizer: &vec, Classifier: &cls}, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
