package domain

import "time"

// Document status values reported by the retrieval service. The lifecycle is
// driven entirely by the service; this system only polls it.
const (
	DocumentStatusPending        = "pending"
	DocumentStatusPartitioning   = "partitioning"
	DocumentStatusPartitioned    = "partitioned"
	DocumentStatusRefined        = "refined"
	DocumentStatusChunked        = "chunked"
	DocumentStatusIndexed        = "indexed"
	DocumentStatusSummaryIndexed = "summary_indexed"
	DocumentStatusReady          = "ready"
	DocumentStatusFailed         = "failed"
)

// Document is a document owned by the external retrieval service. It is
// never stored locally.
type Document struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	ChunkCount int            `json:"chunk_count,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
}

// Queryable reports whether the document can already answer retrievals.
func (d *Document) Queryable() bool {
	switch d.Status {
	case DocumentStatusIndexed, DocumentStatusSummaryIndexed, DocumentStatusReady:
		return true
	}
	return false
}

// RetrievedChunk is a relevance-scored span of a document returned by a
// retrieval query. Chunks are transient: produced per request, never
// persisted. Ordering by score is the retrieval service's responsibility.
type RetrievedChunk struct {
	Text         string  `json:"text"`
	Score        float64 `json:"score,omitempty"`
	DocumentID   string  `json:"document_id,omitempty"`
	DocumentName string  `json:"document_name,omitempty"`
}
