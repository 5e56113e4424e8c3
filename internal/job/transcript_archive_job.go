package job

import (
	"context"
	"time"

	"github.com/serenity-spa/spachat/internal/service"
)

// TranscriptArchiveJob renders conversations active within the lookback
// window to markdown and writes them to the configured file store.
type TranscriptArchiveJob struct {
	archive  *service.ArchiveService
	lookback time.Duration
}

func NewTranscriptArchiveJob(archive *service.ArchiveService, lookback time.Duration) *TranscriptArchiveJob {
	return &TranscriptArchiveJob{archive: archive, lookback: lookback}
}

func (j *TranscriptArchiveJob) Name() string {
	return "transcript_archive"
}

func (j *TranscriptArchiveJob) Run(ctx context.Context) error {
	if j.archive == nil {
		return nil
	}
	lookback := j.lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	_, err := j.archive.ArchiveSince(ctx, time.Now().Add(-lookback))
	return err
}
