package service

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/serenity-spa/spachat/internal/ai"
	"github.com/serenity-spa/spachat/internal/model"
)

const (
	// defaultChunkBudget is the target chunk size; chunks extend past it to
	// the next whitespace so words are never split.
	defaultChunkBudget = 800
	defaultSeedSlug    = "knowledge-base"
	insertBatchSize    = 100
)

type KnowledgeWriter interface {
	InsertBatch(ctx context.Context, chunks []model.KnowledgeChunk) error
	ListMissingEmbedding(ctx context.Context, limit int) ([]model.KnowledgeChunk, error)
	ListStale(ctx context.Context, cutoff int64, limit int) ([]model.KnowledgeChunk, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
	DeleteBySlugPrefix(ctx context.Context, prefix string) (int64, error)
}

// IngestService seeds the knowledge base from markdown documents and keeps
// embeddings filled in.
type IngestService struct {
	knowledge KnowledgeWriter
	embedder  ai.IEmbedder
}

func NewIngestService(knowledge KnowledgeWriter, embedder ai.IEmbedder) *IngestService {
	return &IngestService{knowledge: knowledge, embedder: embedder}
}

// Section is a heading-delimited span of a source document.
type Section struct {
	Slug string
	Text string
}

// SeedFile splits a markdown document into slugged chunks and bulk-inserts
// them. Re-seeding replaces: existing chunks under each section's slug are
// deleted first. When embedInline is set each chunk is embedded before
// insert; a failed embedding leaves the column null for the backfill job.
func (s *IngestService) SeedFile(ctx context.Context, path string, embedInline bool) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read document: %w", err)
	}
	sections := SplitSections(string(data))
	chunks := BuildChunks(sections, defaultChunkBudget)
	now := time.Now().Unix()
	logger := logutil.GetLogger(ctx)
	seen := make(map[string]struct{}, len(sections))
	for _, sec := range sections {
		if _, ok := seen[sec.Slug]; ok {
			continue
		}
		seen[sec.Slug] = struct{}{}
		removed, err := s.knowledge.DeleteBySlugPrefix(ctx, sec.Slug)
		if err != nil {
			return 0, fmt.Errorf("replace slug %s: %w", sec.Slug, err)
		}
		if removed > 0 {
			logger.Info("replaced existing chunks", zap.String("slug", sec.Slug), zap.Int64("removed", removed))
		}
	}
	for i := range chunks {
		chunks[i].UpdatedAt = now
		if !embedInline {
			continue
		}
		embedding, err := s.embedder.Embed(ctx, chunks[i].Chunk, "RETRIEVAL_DOCUMENT")
		if err != nil {
			logger.Warn("inline embedding failed, leaving null", zap.String("slug", chunks[i].Slug), zap.Error(err))
			continue
		}
		chunks[i].Embedding = embedding
	}
	for i := 0; i < len(chunks); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := s.knowledge.InsertBatch(ctx, chunks[i:end]); err != nil {
			return i, fmt.Errorf("insert batch: %w", err)
		}
		logger.Info("inserted knowledge chunks", zap.Int("done", end), zap.Int("total", len(chunks)))
	}
	return len(chunks), nil
}

// Backfill embeds rows with a null embedding in fixed-size batches until none
// remain. Returns the number of rows embedded.
func (s *IngestService) Backfill(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 64
	}
	total := 0
	for {
		rows, err := s.knowledge.ListMissingEmbedding(ctx, batchSize)
		if err != nil {
			return total, err
		}
		if len(rows) == 0 {
			return total, nil
		}
		n, err := s.embedRows(ctx, rows)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			// nothing embeddable in this batch, stop rather than spin
			return total, nil
		}
	}
}

// ReembedSince re-embeds rows updated within the trailing window, plus any
// row still missing its embedding.
func (s *IngestService) ReembedSince(ctx context.Context, window time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = 2000
	}
	cutoff := time.Now().Add(-window).Unix()
	rows, err := s.knowledge.ListStale(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return s.embedRows(ctx, rows)
}

func (s *IngestService) embedRows(ctx context.Context, rows []model.KnowledgeChunk) (int, error) {
	logger := logutil.GetLogger(ctx)
	done := 0
	for _, row := range rows {
		if strings.TrimSpace(row.Chunk) == "" {
			continue
		}
		embedding, err := s.embedder.Embed(ctx, row.Chunk, "RETRIEVAL_DOCUMENT")
		if err != nil {
			return done, fmt.Errorf("embed chunk %d: %w", row.ID, err)
		}
		if len(embedding) == 0 {
			logger.Warn("empty embedding returned, skipping row", zap.Int64("id", row.ID))
			continue
		}
		if err := s.knowledge.UpdateEmbedding(ctx, row.ID, embedding); err != nil {
			return done, fmt.Errorf("update embedding %d: %w", row.ID, err)
		}
		done++
	}
	return done, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a heading into a hyphenated slug.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SplitSections carves a markdown document at level-2+ headings. Each
// section keeps its heading line and takes its slug from it; text before the
// first heading falls under the default slug.
func SplitSections(markdown string) []Section {
	source := []byte(markdown)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var cuts []struct {
		offset int
		slug   string
	}
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Level < 2 || heading.Lines().Len() == 0 {
			continue
		}
		offset := lineStart(source, heading.Lines().At(0).Start)
		cuts = append(cuts, struct {
			offset int
			slug   string
		}{offset, Slugify(string(heading.Text(source)))})
	}

	var sections []Section
	appendSection := func(slug, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		sections = append(sections, Section{Slug: slug, Text: body})
	}
	if len(cuts) == 0 {
		appendSection(defaultSeedSlug, markdown)
		return sections
	}
	appendSection(defaultSeedSlug, markdown[:cuts[0].offset])
	for i, cut := range cuts {
		end := len(markdown)
		if i+1 < len(cuts) {
			end = cuts[i+1].offset
		}
		appendSection(cut.slug, markdown[cut.offset:end])
	}
	return sections
}

// lineStart walks back from a source offset to the beginning of its line,
// covering the heading markers that precede the heading text segment.
func lineStart(source []byte, offset int) int {
	for offset > 0 && source[offset-1] != '\n' {
		offset--
	}
	return offset
}

// ChunkText splits text into pieces of roughly the given budget, extending
// each cut to the next whitespace so no word is broken.
func ChunkText(text string, budget int) []string {
	if budget <= 0 {
		budget = defaultChunkBudget
	}
	var chunks []string
	runes := []rune(text)
	for pos := 0; pos < len(runes); {
		end := pos + budget
		if end >= len(runes) {
			end = len(runes)
		} else {
			for end < len(runes) && !isSpace(runes[end]) {
				end++
			}
		}
		piece := strings.TrimSpace(string(runes[pos:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
		pos = end
	}
	return chunks
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// BuildChunks flattens sections into knowledge chunks. The first chunk of a
// section takes the bare slug; subsequent chunks get a -NN suffix so slugs
// stay unique within the heading.
func BuildChunks(sections []Section, budget int) []model.KnowledgeChunk {
	var out []model.KnowledgeChunk
	for _, sec := range sections {
		parts := ChunkText(sec.Text, budget)
		for i, part := range parts {
			slug := sec.Slug
			if i > 0 {
				slug = fmt.Sprintf("%s-%02d", sec.Slug, i+1)
			}
			out = append(out, model.KnowledgeChunk{Slug: slug, Chunk: part})
		}
	}
	return out
}
