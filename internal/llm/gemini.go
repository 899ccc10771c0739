// Package llm wraps the official genai client for the two model calls
// the pipeline makes: query/document embeddings and grounded answer
// generation. Outcome classification lives here so the pipeline only
// sees typed statuses, never SDK error shapes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	genai "google.golang.org/genai"
)

var ErrEmptyEmbedding = errors.New("llm: empty embedding from model")

// Embedding task modes. The query mode is used at answer time, the
// document mode only at index-build time; the two must never be
// swapped or the vector space stops lining up.
const (
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli             *genai.Client
	embeddingModel  string
	generativeModel string
}

func NewGeminiClient(ctx context.Context, apiKey, embeddingModel, generativeModel string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		cli:             cli,
		embeddingModel:  embeddingModel,
		generativeModel: generativeModel,
	}, nil
}

// EmbedQuery embeds a single user question in query mode.
func (g *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.cli.Models.EmbedContent(ctx, g.embeddingModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		&genai.EmbedContentConfig{TaskType: taskRetrievalQuery},
	)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Embeddings[0].Values, nil
}

// EmbedDocuments embeds a batch of chunk texts in document mode. Used
// only by the index builder; rate-limit hits are retried with backoff
// here because a batch job can afford to wait, the query path cannot.
func (g *GeminiClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}

	delay := 5 * time.Second
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := g.cli.Models.EmbedContent(ctx, g.embeddingModel, contents,
			&genai.EmbedContentConfig{TaskType: taskRetrievalDocument})
		if err == nil {
			if len(resp.Embeddings) != len(texts) {
				return nil, fmt.Errorf("embed documents: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
			}
			out := make([][]float32, len(resp.Embeddings))
			for i, e := range resp.Embeddings {
				out[i] = e.Values
			}
			return out, nil
		}
		lastErr = err
		log.Printf("embed documents attempt %d/3 failed: %v (waiting %s)", attempt, err, delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = delay * 3 / 2
	}
	return nil, fmt.Errorf("embed documents: %w", lastErr)
}
