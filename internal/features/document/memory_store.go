package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-paystack-sync/internal/mapping"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store used in tests and dry-run setups.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Document
	seq  int64
	// order keeps insertion order stable for Find.
	order map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]map[string]Document),
		order: make(map[string]int64),
	}
}

func (s *MemoryStore) Find(ctx context.Context, collection string, filter map[string]any, limit int64) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, doc := range s.data[collection] {
		if matches(doc, filter) {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.order[out[i].ID()] < s.order[out[j].ID()]
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, collection string, data Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := data.Clone()
	id := uuid.NewString()
	now := time.Now().UTC()
	doc[FieldID] = id
	doc[FieldCreatedAt] = now
	doc[FieldUpdatedAt] = now

	if s.data[collection] == nil {
		s.data[collection] = make(map[string]Document)
	}
	s.data[collection][id] = doc
	s.seq++
	s.order[id] = s.seq
	return doc.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, data Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range data {
		if k != FieldID {
			doc[k] = v
		}
	}
	doc[FieldUpdatedAt] = time.Now().UTC()
	return doc.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.data[collection], id)
	delete(s.order, id)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	docs, err := s.Find(ctx, collection, filter, 0)
	return int64(len(docs)), err
}

func matches(doc Document, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := mapping.Lookup(doc, k)
		if !ok || !mapping.Equal(got, want) {
			return false
		}
	}
	return true
}
