package ingest

import (
	"context"
	"log"

	"osservatorio/internal/vector"
)

// DefaultBatchSize is how many payments are embedded and upserted per
// round trip.
const DefaultBatchSize = 100

// DocumentEmbedder embeds a batch of chunk texts.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the write side of the vector store.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dimension uint64) error
	Upsert(ctx context.Context, points []vector.Point) error
	Count(ctx context.Context) (uint64, error)
}

// Stats summarizes one indexing run.
type Stats struct {
	Payments       int
	Chunks         int
	FailedPayments int
	IndexedPoints  uint64
}

type Indexer struct {
	embedder     DocumentEmbedder
	index        VectorIndex
	dimension    uint64
	batchSize    int
	chunkSize    int
	chunkOverlap int
}

func NewIndexer(embedder DocumentEmbedder, index VectorIndex, dimension uint64, batchSize, chunkSize, chunkOverlap int) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSizeWords
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlapWords
	}
	return &Indexer{
		embedder:     embedder,
		index:        index,
		dimension:    dimension,
		batchSize:    batchSize,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Run chunks, embeds and upserts every payment in batches. A failed
// embedding batch is logged and skipped; it fails the payments it
// carried, not the whole run.
func (ix *Indexer) Run(ctx context.Context, payments []Payment) (Stats, error) {
	stats := Stats{Payments: len(payments)}

	if err := ix.index.EnsureCollection(ctx, ix.dimension); err != nil {
		return stats, err
	}
	if len(payments) == 0 {
		log.Printf("ingest: no payments to index")
		return stats, nil
	}

	for start := 0; start < len(payments); start += ix.batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := start + ix.batchSize
		if end > len(payments) {
			end = len(payments)
		}
		batch := payments[start:end]

		var points []vector.Point
		for i, payment := range batch {
			points = append(points, ChunkPayment(payment, start+i, ix.chunkSize, ix.chunkOverlap)...)
		}
		if len(points) == 0 {
			continue
		}

		texts := make([]string, len(points))
		for i, p := range points {
			texts[i] = p.Document
		}
		embeddings, err := ix.embedder.EmbedDocuments(ctx, texts)
		if err != nil || len(embeddings) != len(points) {
			log.Printf("ingest: embedding failed for payments %d-%d: %v", start, end-1, err)
			stats.FailedPayments += len(batch)
			continue
		}
		for i := range points {
			points[i].Vector = embeddings[i]
		}

		if err := ix.index.Upsert(ctx, points); err != nil {
			log.Printf("ingest: upsert failed for payments %d-%d: %v", start, end-1, err)
			stats.FailedPayments += len(batch)
			continue
		}
		stats.Chunks += len(points)
		log.Printf("ingest: indexed payments %d-%d (%d chunks)", start, end-1, len(points))
	}

	if count, err := ix.index.Count(ctx); err == nil {
		stats.IndexedPoints = count
	}
	return stats, nil
}
