package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	id "sealgate/pkg/domain"
	"sealgate/pkg/platform/sentinel"
)

// Filesystem stores document bytes under root/<space>/<relPath>. Document
// identity is derived from owner and path, so metadata lookups are stable
// across process restarts without a side table.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{root: root}
}

func (f *Filesystem) Save(_ context.Context, owner id.SpaceID, name string, data []byte, folderHint string) (string, error) {
	relPath := filepath.Join(folderHint, name)
	full := f.fullPath(owner, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create document folder: %w", err)
	}
	if err := os.WriteFile(full, data, 0o640); err != nil {
		return "", fmt.Errorf("write document %s: %w", relPath, err)
	}
	return relPath, nil
}

func (f *Filesystem) Read(_ context.Context, owner id.SpaceID, relPath string) ([]byte, error) {
	data, err := os.ReadFile(f.fullPath(owner, relPath))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("document %s: %w", relPath, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", relPath, err)
	}
	return data, nil
}

func (f *Filesystem) Delete(_ context.Context, owner id.SpaceID, relPath string) error {
	err := os.Remove(f.fullPath(owner, relPath))
	if os.IsNotExist(err) {
		return fmt.Errorf("document %s: %w", relPath, sentinel.ErrNotFound)
	}
	return err
}

func (f *Filesystem) FindMetadata(_ context.Context, owner id.SpaceID, relPath string) (Metadata, error) {
	info, err := os.Stat(f.fullPath(owner, relPath))
	if os.IsNotExist(err) {
		return Metadata{}, fmt.Errorf("document %s: %w", relPath, sentinel.ErrNotFound)
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("stat document %s: %w", relPath, err)
	}
	return Metadata{
		ID:        documentIdentity(owner, relPath),
		Path:      relPath,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

func (f *Filesystem) fullPath(owner id.SpaceID, relPath string) string {
	return filepath.Join(f.root, owner.String(), filepath.Clean(relPath))
}

// documentIdentity derives a stable UUIDv5 from owner and path.
func documentIdentity(owner id.SpaceID, relPath string) id.DocumentID {
	name := "sealgate://" + owner.String() + "/" + relPath
	return id.DocumentID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)))
}
