package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/serenity-spa/spachat/internal/model"
	"github.com/serenity-spa/spachat/internal/pkg/dbutil"
)

type KnowledgeRepo struct {
	db *sqlx.DB
}

func NewKnowledgeRepo(db *sqlx.DB) *KnowledgeRepo {
	return &KnowledgeRepo{db: db}
}

// Search runs a cosine similarity lookup against the knowledge table.
// Rows without an embedding are unsearchable and skipped. Results come back
// ordered by descending similarity, already filtered by threshold and
// truncated to topK.
func (r *KnowledgeRepo) Search(ctx context.Context, queryEmbedding []float32, topK int, threshold float64) ([]model.KnowledgeMatch, error) {
	const query = `
		SELECT slug, chunk, 1 - (embedding <=> $1) AS similarity
		FROM knowledge
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(queryEmbedding), threshold, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var matches []model.KnowledgeMatch
	for rows.Next() {
		var m model.KnowledgeMatch
		if err := rows.Scan(&m.Title, &m.Chunk, &m.Similarity); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *KnowledgeRepo) InsertBatch(ctx context.Context, chunks []model.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(chunks))
	for _, c := range chunks {
		var emb interface{}
		if len(c.Embedding) > 0 {
			emb = pgvector.NewVector(c.Embedding)
		}
		data = append(data, map[string]interface{}{
			"slug":       c.Slug,
			"chunk":      c.Chunk,
			"embedding":  emb,
			"updated_at": c.UpdatedAt,
		})
	}
	sqlStr, args, err := builder.BuildInsert("knowledge", data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListMissingEmbedding returns rows whose embedding is still null, oldest
// first, for batch backfill.
func (r *KnowledgeRepo) ListMissingEmbedding(ctx context.Context, limit int) ([]model.KnowledgeChunk, error) {
	const query = `
		SELECT id, slug, chunk, updated_at
		FROM knowledge
		WHERE embedding IS NULL
		ORDER BY id
		LIMIT $1
	`
	return r.scanChunks(ctx, query, limit)
}

// ListStale returns rows updated at or after cutoff plus any row still
// missing its embedding, most recently updated first.
func (r *KnowledgeRepo) ListStale(ctx context.Context, cutoff int64, limit int) ([]model.KnowledgeChunk, error) {
	const query = `
		SELECT id, slug, chunk, updated_at
		FROM knowledge
		WHERE embedding IS NULL OR updated_at >= $1
		ORDER BY updated_at DESC
		LIMIT $2
	`
	return r.scanChunks(ctx, query, cutoff, limit)
}

func (r *KnowledgeRepo) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	const query = `UPDATE knowledge SET embedding = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, pgvector.NewVector(embedding), id)
	return err
}

func (r *KnowledgeRepo) DeleteBySlugPrefix(ctx context.Context, prefix string) (int64, error) {
	const query = `DELETE FROM knowledge WHERE slug = $1 OR slug LIKE $2`
	res, err := r.db.ExecContext(ctx, query, prefix, prefix+"-%")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *KnowledgeRepo) scanChunks(ctx context.Context, query string, args ...interface{}) ([]model.KnowledgeChunk, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.KnowledgeChunk
	for rows.Next() {
		var c model.KnowledgeChunk
		if err := rows.Scan(&c.ID, &c.Slug, &c.Chunk, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
