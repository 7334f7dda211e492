package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentbot/backend/internal/corpus"
	"github.com/intentbot/backend/internal/model"
	"github.com/intentbot/backend/internal/nlp"
	"github.com/intentbot/backend/internal/storage/models"
)

func trainingCorpus(t *testing.T) *corpus.Snapshot {
	t.Helper()
	s, err := corpus.NewSnapshot([]models.Intent{
		{Tag: "greeting", Patterns: []string{"hello", "good morning", "hey friend"}, Responses: []string{"Hello!"}},
		{Tag: "goodbye", Patterns: []string{"goodbye", "see you later", "bye now"}, Responses: []string{"Bye!"}},
		{Tag: "thanks", Patterns: []string{"thank you", "thanks a lot"}, Responses: []string{"Anytime!"}},
	})
	require.NoError(t, err)
	return s
}

func TestTrainProducesLoadableArtifacts(t *testing.T) {
	dir := t.TempDir()
	norm := nlp.NewNormalizer()
	trainer := NewTrainer(norm, 5000, dir)

	report, err := trainer.Train(trainingCorpus(t))
	require.NoError(t, err)
	assert.NotEmpty(t, report.Version)
	assert.Equal(t, 3, report.Intents)
	assert.Equal(t, 8, report.Patterns)
	assert.Greater(t, report.Features, 0)

	artifacts, err := model.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, report.Version, artifacts.Vectorizer.Version)
	assert.Equal(t, report.Version, artifacts.Classifier.Version)

	// The trained model recalls its own training utterances.
	predictor := model.NewPredictor(norm, artifacts)
	tag, confidence := predictor.Predict("good morning")
	assert.Equal(t, "greeting", tag)
	assert.Greater(t, confidence, 0.0)
}

func TestTrainSkipsUnnormalizablePatterns(t *testing.T) {
	s, err := corpus.NewSnapshot([]models.Intent{
		{Tag: "greeting", Patterns: []string{"hello", "!!!"}, Responses: []string{"Hello!"}},
		{Tag: "goodbye", Patterns: []string{"goodbye"}, Responses: []string{"Bye!"}},
	})
	require.NoError(t, err)

	report, err := NewTrainer(nlp.NewNormalizer(), 5000, t.TempDir()).Train(s)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Patterns)
}

func TestTrainFailsOnEmptyTrainingSet(t *testing.T) {
	s, err := corpus.NewSnapshot([]models.Intent{
		{Tag: "noise", Patterns: []string{"!!!", "123"}, Responses: []string{"hm"}},
	})
	require.NoError(t, err)

	_, err = NewTrainer(nlp.NewNormalizer(), 5000, t.TempDir()).Train(s)
	assert.Error(t, err)
}

func TestTrainVersionsAreUnique(t *testing.T) {
	trainer := NewTrainer(nlp.NewNormalizer(), 5000, t.TempDir())

	first, err := trainer.Train(trainingCorpus(t))
	require.NoError(t, err)
	second, err := trainer.Train(trainingCorpus(t))
	require.NoError(t, err)

	assert.NotEqual(t, first.Version, second.Version)
}
