package service

import (
	"context"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/serenity-spa/spachat/internal/ai"
	"github.com/serenity-spa/spachat/internal/model"
)

type KnowledgeSearcher interface {
	Search(ctx context.Context, queryEmbedding []float32, topK int, threshold float64) ([]model.KnowledgeMatch, error)
}

// KnowledgeRetriever embeds a query and searches the knowledge base. Every
// failure on this path degrades to "no matches": a broken embedder or store
// must never fail a chat request.
type KnowledgeRetriever struct {
	embedder ai.IEmbedder
	searcher KnowledgeSearcher
}

func NewKnowledgeRetriever(embedder ai.IEmbedder, searcher KnowledgeSearcher) *KnowledgeRetriever {
	return &KnowledgeRetriever{embedder: embedder, searcher: searcher}
}

func (r *KnowledgeRetriever) Retrieve(ctx context.Context, query string, topK int, threshold float64) []model.KnowledgeMatch {
	logger := logutil.GetLogger(ctx)
	if query == "" || r.embedder == nil || r.searcher == nil {
		return nil
	}
	embedding, err := r.embedder.Embed(ctx, query, "RETRIEVAL_QUERY")
	if err != nil {
		logger.Warn("query embedding failed", zap.Error(err))
		return nil
	}
	if len(embedding) == 0 {
		return nil
	}
	matches, err := r.searcher.Search(ctx, embedding, topK, threshold)
	if err != nil {
		logger.Warn("knowledge search failed", zap.Error(err))
		return nil
	}
	return normalizeMatches(matches, topK, threshold)
}

// normalizeMatches re-applies the retrieval contract regardless of what the
// backing store returned: threshold filter, descending similarity, topK cap.
func normalizeMatches(matches []model.KnowledgeMatch, topK int, threshold float64) []model.KnowledgeMatch {
	filtered := make([]model.KnowledgeMatch, 0, len(matches))
	for _, m := range matches {
		if m.Similarity >= threshold {
			filtered = append(filtered, m)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Similarity > filtered[j].Similarity
	})
	if topK > 0 && len(filtered) > topK {
		filtered = filtered[:topK]
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}
