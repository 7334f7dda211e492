package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/intentbot/backend/pkg/logger"
)

// Index is an optional ANN index over the corpus pattern embeddings.
// Vectors are unit-length, so the IP metric scores cosine similarity.
type Index struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// Match is a top-scoring pattern with its owning intent.
type Match struct {
	PatternID string
	Tag       string
	Score     float32
}

func NewIndex(endpoint, collectionName string, vectorDim int) (*Index, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus pattern index initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Index{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (i *Index) Close() error {
	return i.client.Close()
}

// Rebuild replaces the collection with the given pattern set; it runs
// on every corpus reload so the index always mirrors the snapshot.
func (i *Index) Rebuild(ctx context.Context, patternIDs, tags []string, vectors [][]float32) error {
	if len(patternIDs) != len(tags) || len(patternIDs) != len(vectors) {
		return fmt.Errorf("pattern index input misaligned: %d ids, %d tags, %d vectors",
			len(patternIDs), len(tags), len(vectors))
	}

	has, err := i.client.HasCollection(ctx, i.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		if err := i.client.DropCollection(ctx, i.collectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}

	schema := &entity.Schema{
		CollectionName: i.collectionName,
		Description:    "Intent pattern embeddings",
		Fields: []*entity.Field{
			{
				Name:       "pattern_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", i.vectorDim),
				},
			},
			{
				Name:     "tag",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
		},
	}

	err = i.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = i.client.Insert(
		ctx,
		i.collectionName,
		"",
		entity.NewColumnVarChar("pattern_id", patternIDs),
		entity.NewColumnFloatVector("embedding", i.vectorDim, vectors),
		entity.NewColumnVarChar("tag", tags),
	)
	if err != nil {
		return fmt.Errorf("failed to insert patterns: %w", err)
	}

	err = i.client.Flush(ctx, i.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.IP, 128)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	err = i.client.CreateIndex(ctx, i.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = i.client.LoadCollection(ctx, i.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Pattern index rebuilt",
		zap.String("collection", i.collectionName),
		zap.Int("patterns", len(patternIDs)),
	)
	return nil
}

// Search returns the single best-matching pattern for the query vector.
func (i *Index) Search(ctx context.Context, queryEmbedding []float32) (*Match, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := i.client.Search(
		ctx,
		i.collectionName,
		[]string{},
		"",
		[]string{"pattern_id", "tag"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.IP,
		1,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	for _, sr := range searchResult {
		if sr.ResultCount == 0 {
			continue
		}

		patternIDCol := sr.Fields.GetColumn("pattern_id")
		tagCol := sr.Fields.GetColumn("tag")

		patternID, _ := patternIDCol.Get(0)
		tag, _ := tagCol.Get(0)

		return &Match{
			PatternID: patternID.(string),
			Tag:       tag.(string),
			Score:     sr.Scores[0],
		}, nil
	}

	return nil, nil
}
