package job

import (
	"context"

	"github.com/serenity-spa/spachat/internal/service"
)

// EmbeddingBackfillJob embeds knowledge rows that were inserted without a
// vector, e.g. seeded with --embed disabled or left NULL after a provider
// failure.
type EmbeddingBackfillJob struct {
	ingest    *service.IngestService
	batchSize int
}

func NewEmbeddingBackfillJob(ingest *service.IngestService, batchSize int) *EmbeddingBackfillJob {
	return &EmbeddingBackfillJob{ingest: ingest, batchSize: batchSize}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	_, err := j.ingest.Backfill(ctx, j.batchSize)
	return err
}
