package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound marks a lookup for a document that does not exist.
var ErrNotFound = errors.New("document not found")

// MemoryStore implements ports.DocumentStore in memory. It encodes
// records the same way the Mongo store does so both stores accept the
// same bson-tagged types. Used for tests and offline runs.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, collection string, record any) (string, error) {
	doc, err := toDocument(record)
	if err != nil {
		return "", err
	}

	id, _ := doc["_id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["_id"] = id
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string][]byte)
	}
	s.collections[collection][id] = raw
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, collection string, id string, out any) error {
	s.mu.Lock()
	raw, ok := s.collections[collection][id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("document %q not found in %q: %w", id, collection, ErrNotFound)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Count reports how many documents a collection holds.
func (s *MemoryStore) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}
