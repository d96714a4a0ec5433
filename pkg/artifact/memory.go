package artifact

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

// MemoryStore is a mutex-guarded Store for a single session. Saving a name
// that already exists replaces it; readers always see a whole artifact.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*genai.Part
	saves int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*genai.Part)}
}

func (s *MemoryStore) Save(_ context.Context, name string, part *genai.Part) error {
	cp := clonePart(part)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[name] = cp
	s.saves++
	return nil
}

func (s *MemoryStore) Load(_ context.Context, name string) (*genai.Part, error) {
	s.mu.RLock()
	part, ok := s.items[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return clonePart(part), nil
}

// Saves returns how many times Save has been called.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// clonePart copies the part and its inline data so callers cannot alias the
// stored bytes.
func clonePart(part *genai.Part) *genai.Part {
	if part == nil {
		return nil
	}
	cp := *part
	if part.InlineData != nil {
		blob := *part.InlineData
		blob.Data = append([]byte(nil), part.InlineData.Data...)
		cp.InlineData = &blob
	}
	return &cp
}

var _ Store = (*MemoryStore)(nil)
