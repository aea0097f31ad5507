package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]codec.Document
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]codec.Document),
	}
}

// Save keeps a private copy of the document.
func (s *Store) Save(ctx context.Context, owner string, doc codec.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[owner] = copyDocument(doc)
	return nil
}

// Load returns a copy so callers can't mutate the stored document.
func (s *Store) Load(ctx context.Context, owner string) (codec.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[owner]
	if !ok {
		return codec.Document{}, domain.ErrSnapshotNotFound
	}
	return copyDocument(doc), nil
}

// Delete removes the document.
func (s *Store) Delete(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, owner)
	return nil
}

// List returns the owners with a stored snapshot, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make([]string, 0, len(s.data))
	for id := range s.data {
		owners = append(owners, id)
	}
	sort.Strings(owners)
	return owners, nil
}

func copyDocument(doc codec.Document) codec.Document {
	out := codec.Document{Version: doc.Version}
	if doc.Nodes != nil {
		out.Nodes = append([]codec.NodeDoc(nil), doc.Nodes...)
	}
	if doc.Connections != nil {
		out.Connections = append([]codec.ConnectionDoc(nil), doc.Connections...)
	}
	return out
}
