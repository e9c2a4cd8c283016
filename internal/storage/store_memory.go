package storage

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	id "sealgate/pkg/domain"
	"sealgate/pkg/platform/sentinel"
)

// InMemoryStore keeps document bytes in memory for tests and development.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
}

type memoryDoc struct {
	data      []byte
	createdAt time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string]memoryDoc)}
}

func memKey(owner id.SpaceID, relPath string) string {
	return owner.String() + "/" + relPath
}

func (s *InMemoryStore) Save(_ context.Context, owner id.SpaceID, name string, data []byte, folderHint string) (string, error) {
	relPath := path.Join(folderHint, name)
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.docs[memKey(owner, relPath)] = memoryDoc{data: cp, createdAt: time.Now()}
	s.mu.Unlock()
	return relPath, nil
}

func (s *InMemoryStore) Read(_ context.Context, owner id.SpaceID, relPath string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[memKey(owner, relPath)]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", relPath, sentinel.ErrNotFound)
	}
	return doc.data, nil
}

func (s *InMemoryStore) Delete(_ context.Context, owner id.SpaceID, relPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey(owner, relPath)
	if _, ok := s.docs[key]; !ok {
		return fmt.Errorf("document %s: %w", relPath, sentinel.ErrNotFound)
	}
	delete(s.docs, key)
	return nil
}

func (s *InMemoryStore) FindMetadata(_ context.Context, owner id.SpaceID, relPath string) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[memKey(owner, relPath)]
	if !ok {
		return Metadata{}, fmt.Errorf("document %s: %w", relPath, sentinel.ErrNotFound)
	}
	return Metadata{
		ID:        documentIdentity(owner, relPath),
		Path:      relPath,
		Size:      int64(len(doc.data)),
		CreatedAt: doc.createdAt,
	}, nil
}

// Count reports the number of stored documents. Test helper.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// InMemoryResolver maps documents to owning spaces for tests.
type InMemoryResolver struct {
	mu     sync.RWMutex
	owners map[uuid.UUID]id.SpaceID
}

func NewInMemoryResolver() *InMemoryResolver {
	return &InMemoryResolver{owners: make(map[uuid.UUID]id.SpaceID)}
}

func (r *InMemoryResolver) SetOwner(doc id.DocumentID, owner id.SpaceID) {
	r.mu.Lock()
	r.owners[uuid.UUID(doc)] = owner
	r.mu.Unlock()
}

func (r *InMemoryResolver) OwnerOf(_ context.Context, doc id.DocumentID) (id.SpaceID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[uuid.UUID(doc)]
	if !ok {
		return id.SpaceID{}, fmt.Errorf("document %s: %w", doc, sentinel.ErrNotFound)
	}
	return owner, nil
}
