// Package storage is the document store boundary. The sealing pipeline and
// the access service depend only on these contracts; bytes live on a
// filesystem tree, document ownership in Postgres.
package storage

import (
	"context"
	"time"

	id "sealgate/pkg/domain"
)

// Metadata describes one persisted document.
type Metadata struct {
	ID        id.DocumentID
	Path      string // relative to the owner's space
	Size      int64
	CreatedAt time.Time
}

// Store saves and retrieves document bytes by owner space and relative path.
//
// Error contract: Read, Delete and FindMetadata return sentinel.ErrNotFound
// (wrapped) when the document does not exist; infrastructure failures are
// returned wrapped with context.
type Store interface {
	Save(ctx context.Context, owner id.SpaceID, name string, data []byte, folderHint string) (string, error)
	Read(ctx context.Context, owner id.SpaceID, relPath string) ([]byte, error)
	Delete(ctx context.Context, owner id.SpaceID, relPath string) error
	FindMetadata(ctx context.Context, owner id.SpaceID, relPath string) (Metadata, error)
}

// SpaceResolver answers which space a document belongs to, identifying the
// uploading party. Returns sentinel.ErrNotFound for unknown documents.
type SpaceResolver interface {
	OwnerOf(ctx context.Context, doc id.DocumentID) (id.SpaceID, error)
}
