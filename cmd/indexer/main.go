package main

import (
	"context"
	"log"

	"osservatorio/internal/config"
	"osservatorio/internal/ingest"
	"osservatorio/internal/llm"
	"osservatorio/internal/vector"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireGeminiKey(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	src, err := ingest.OpenSource(ctx, cfg.Ingest)
	if err != nil {
		log.Fatalf("Failed to open payments source: %v", err)
	}
	defer src.Close()

	payments, err := ingest.ReadPayments(src)
	if err != nil {
		log.Fatalf("Failed to read payments: %v", err)
	}
	log.Printf("Read %d payments", len(payments))

	gemini, err := llm.NewGeminiClient(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel, cfg.GenerativeModel)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}

	index, err := vector.Connect(cfg.QdrantAddr, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to connect to Qdrant: %v", err)
	}
	defer index.Close()

	indexer := ingest.NewIndexer(gemini, index, cfg.EmbeddingDim,
		cfg.Ingest.BatchSize, cfg.Ingest.ChunkSizeWords, cfg.Ingest.ChunkOverlapWords)

	stats, err := indexer.Run(ctx, payments)
	if err != nil {
		log.Fatalf("Indexing failed: %v", err)
	}
	log.Printf("Indexing complete: %d payments, %d chunks written, %d payments failed, collection now holds %d points",
		stats.Payments, stats.Chunks, stats.FailedPayments, stats.IndexedPoints)
}
