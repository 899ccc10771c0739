// Package cache holds answered questions so repeated identical
// questions skip the whole pipeline. Bounded LRU, safe for concurrent
// use; a lost update between racing identical questions is acceptable
// because payloads are idempotent for a given question at a given
// index state.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"osservatorio/internal/domain"
	"osservatorio/internal/normalize"
)

const DefaultSize = 128

type ResponseCache struct {
	entries *lru.Cache[string, *domain.ResponsePayload]
}

func New(size int) (*ResponseCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, *domain.ResponsePayload](size)
	if err != nil {
		return nil, err
	}
	return &ResponseCache{entries: entries}, nil
}

// Get looks up the payload cached for a question, keyed by its
// normalized text.
func (c *ResponseCache) Get(question string) (*domain.ResponsePayload, bool) {
	return c.entries.Get(normalize.CacheKey(question))
}

// Put stores a payload under the question's normalized text. Only
// fully successful, error-free payloads are written; everything else
// is silently refused so one question's failure can never poison a
// later identical question.
func (c *ResponseCache) Put(question string, payload *domain.ResponsePayload) bool {
	if !payload.Cacheable() {
		return false
	}
	c.entries.Add(normalize.CacheKey(question), payload)
	return true
}

func (c *ResponseCache) Len() int { return c.entries.Len() }
