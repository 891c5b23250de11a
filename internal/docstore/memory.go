package docstore

import (
	"bytes"
	"context"
	"sync"
)

// MemoryStore is an in-memory Store. It is thread-safe and suitable for
// single-instance deployments and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][][]byte),
	}
}

// FindOne returns the first matching document.
func (s *MemoryStore) FindOne(ctx context.Context, collection string, filter Filter) ([]byte, error) {
	if err := validate(collection, filter); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			return clone(doc), nil
		}
	}
	return nil, ErrNotFound
}

// Find returns every matching document.
func (s *MemoryStore) Find(ctx context.Context, collection string, filter Filter) ([][]byte, error) {
	if err := validate(collection, filter); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out [][]byte
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			out = append(out, clone(doc))
		}
	}
	return out, nil
}

// FindOneAndUpdate replaces the first matching document under the write lock.
func (s *MemoryStore) FindOneAndUpdate(ctx context.Context, collection string, filter Filter, update UpdateFunc, opts ...UpdateOption) ([]byte, error) {
	if err := validate(collection, filter); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	for i, doc := range docs {
		if !matches(doc, filter) {
			continue
		}
		next, err := update(clone(doc))
		if err != nil {
			return nil, err
		}
		if err := validDocument(next); err != nil {
			return nil, err
		}
		docs[i] = clone(next)
		return clone(next), nil
	}

	if !o.Upsert {
		return nil, ErrNotFound
	}

	next, err := update(nil)
	if err != nil {
		return nil, err
	}
	if err := validDocument(next); err != nil {
		return nil, err
	}
	s.collections[collection] = append(docs, clone(next))
	return clone(next), nil
}

// Insert appends a document to the collection.
func (s *MemoryStore) Insert(ctx context.Context, collection string, doc []byte) error {
	if err := validate(collection, nil); err != nil {
		return err
	}
	if err := validDocument(doc); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[collection] = append(s.collections[collection], clone(doc))
	return nil
}

// UpdateMany rewrites every matching document.
func (s *MemoryStore) UpdateMany(ctx context.Context, collection string, filter Filter, update UpdateFunc) (int, error) {
	if err := validate(collection, filter); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	changed := 0
	for i, doc := range docs {
		if !matches(doc, filter) {
			continue
		}
		next, err := update(clone(doc))
		if err != nil {
			return changed, err
		}
		if bytes.Equal(next, doc) {
			continue
		}
		if err := validDocument(next); err != nil {
			return changed, err
		}
		docs[i] = clone(next)
		changed++
	}
	return changed, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
