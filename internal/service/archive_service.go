package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/serenity-spa/spachat/internal/filestore"
	"github.com/serenity-spa/spachat/internal/model"
)

type ConversationLister interface {
	ListActiveSince(ctx context.Context, cutoff int64) ([]string, error)
}

type MessageLister interface {
	ListByConversation(ctx context.Context, conversationID string, offset, limit uint) ([]model.Message, error)
}

// ArchiveService exports conversation transcripts to a file store as
// markdown, one file per conversation per day.
type ArchiveService struct {
	conversations ConversationLister
	messages      MessageLister
	store         filestore.Store
}

func NewArchiveService(conversations ConversationLister, messages MessageLister, store filestore.Store) *ArchiveService {
	return &ArchiveService{conversations: conversations, messages: messages, store: store}
}

// ArchiveSince writes a transcript file for every conversation with activity
// at or after cutoff. One failed conversation does not stop the rest.
func (s *ArchiveService) ArchiveSince(ctx context.Context, cutoff time.Time) (int, error) {
	logger := logutil.GetLogger(ctx)
	ids, err := s.conversations.ListActiveSince(ctx, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	day := time.Now().UTC().Format("2006-01-02")
	archived := 0
	for _, id := range ids {
		msgs, err := s.messages.ListByConversation(ctx, id, 0, 1000)
		if err != nil {
			logger.Warn("failed to load transcript", zap.String("conversation_id", id), zap.Error(err))
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		transcript := RenderTranscript(id, msgs)
		key := fmt.Sprintf("transcripts/%s/%s.md", day, id)
		reader := newMemReader([]byte(transcript))
		if err := s.store.Save(ctx, key, reader, int64(len(transcript))); err != nil {
			logger.Warn("failed to archive transcript", zap.String("conversation_id", id), zap.Error(err))
			continue
		}
		archived++
	}
	logger.Info("transcript archive finished", zap.Int("conversations", len(ids)), zap.Int("archived", archived))
	return archived, nil
}

// RenderTranscript formats a conversation as markdown, one section per turn.
func RenderTranscript(conversationID string, msgs []model.Message) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Conversation %s\n", conversationID)
	for _, m := range msgs {
		ts := time.UnixMilli(m.Ctime).UTC().Format(time.RFC3339)
		fmt.Fprintf(&sb, "\n## %s (%s)\n\n%s\n", m.Role, ts, m.Content)
	}
	return sb.String()
}

type memReader struct {
	*bytes.Reader
}

func newMemReader(data []byte) *memReader {
	return &memReader{Reader: bytes.NewReader(data)}
}

func (m *memReader) Close() error {
	return nil
}
