package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"osservatorio/internal/cache"
	"osservatorio/internal/config"
	"osservatorio/internal/intent"
	"osservatorio/internal/llm"
	"osservatorio/internal/pipeline"
	"osservatorio/internal/prompt"
	"osservatorio/internal/resolver"
	"osservatorio/internal/server"
	"osservatorio/internal/store"
	"osservatorio/internal/vector"
)

func main() {
	srv, cleanup, err := buildServer(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func buildServer(ctx context.Context) (*server.Server, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireGeminiKey(); err != nil {
		return nil, nil, err
	}

	db, err := store.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	names, err := db.LoadNameIndex(ctx)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	nameIndex := resolver.NewIndex(names)
	log.Printf("Loaded %d beneficiary names into the resolver", nameIndex.Len())

	gemini, err := llm.NewGeminiClient(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel, cfg.GenerativeModel)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	index, err := vector.Connect(cfg.QdrantAddr, cfg.QdrantCollection)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	responseCache, err := cache.New(cfg.CacheSize)
	if err != nil {
		db.Close()
		index.Close()
		return nil, nil, err
	}

	qa := pipeline.New(pipeline.Deps{
		Classifier: intent.New(nameIndex),
		Aggregator: db,
		Embedder:   gemini,
		Searcher:   index,
		Enricher:   db,
		Generator:  gemini,
		Cache:      responseCache,
		Prompts:    prompt.NewBuilder(cfg.DashboardLink),
		Results:    cfg.RAGResults,
	})

	mux := server.NewMux(server.NewAskHandler(qa, responseCache), cfg.AllowedOrigins)
	srv := server.New(cfg.Port, mux)

	cleanup := func() {
		if err := index.Close(); err != nil {
			log.Printf("vector index close: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Printf("store close: %v", err)
		}
	}
	return srv, cleanup, nil
}
