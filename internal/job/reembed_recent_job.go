package job

import (
	"context"
	"time"

	"github.com/serenity-spa/spachat/internal/service"
)

// ReembedRecentJob re-embeds knowledge rows updated within the recent
// window so edits to the knowledge base converge without a manual run.
type ReembedRecentJob struct {
	ingest *service.IngestService
	window time.Duration
	limit  int
}

func NewReembedRecentJob(ingest *service.IngestService, window time.Duration, limit int) *ReembedRecentJob {
	return &ReembedRecentJob{ingest: ingest, window: window, limit: limit}
}

func (j *ReembedRecentJob) Name() string {
	return "reembed_recent"
}

func (j *ReembedRecentJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	_, err := j.ingest.ReembedSince(ctx, j.window, j.limit)
	return err
}
