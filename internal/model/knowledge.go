package model

// KnowledgeChunk is one retrievable excerpt of the knowledge base. Embedding
// stays nil until a backfill or inline embed succeeds; rows with a nil
// embedding are not searchable.
type KnowledgeChunk struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Chunk     string    `json:"chunk"`
	Embedding []float32 `json:"embedding,omitempty"`
	UpdatedAt int64     `json:"updated_at"`
}

// KnowledgeMatch is a retrieval hit: the chunk plus its similarity score in
// [0,1], higher = more relevant.
type KnowledgeMatch struct {
	Title      string  `json:"title"`
	Chunk      string  `json:"chunk"`
	Similarity float64 `json:"similarity"`
}
