package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Chunks are keyed by document URL and ordinal, so repeated upserts replace
// rather than duplicate.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]map[int]domain.DocumentContentChunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[string]map[int]domain.DocumentContentChunk),
	}
}

// GetChunks returns the chunks for a document URL in ordinal order.
func (s *ChunkStore) GetChunks(_ context.Context, documentURL string) ([]domain.DocumentContentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byOrdinal, ok := s.chunks[documentURL]
	if !ok {
		return nil, nil
	}
	result := make([]domain.DocumentContentChunk, 0, len(byOrdinal))
	for _, c := range byOrdinal {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Ordinal < result[j].Ordinal })
	return result, nil
}

// UpsertChunks stores chunks, replacing any with the same URL and ordinal.
func (s *ChunkStore) UpsertChunks(_ context.Context, chunks []domain.DocumentContentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		byOrdinal, ok := s.chunks[c.DocumentURL]
		if !ok {
			byOrdinal = make(map[int]domain.DocumentContentChunk)
			s.chunks[c.DocumentURL] = byOrdinal
		}
		byOrdinal[c.Ordinal] = c
	}
	return nil
}

// Count returns the total number of stored chunks.
func (s *ChunkStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, byOrdinal := range s.chunks {
		n += len(byOrdinal)
	}
	return n
}
