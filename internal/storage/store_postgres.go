package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "sealgate/pkg/domain"
	"sealgate/pkg/platform/sentinel"
)

// PostgresStore wraps a byte store and mirrors every saved document into
// the documents table, so ownership resolution and metadata lookups work
// across instances that do not share the filesystem view. Read delegates
// straight to the inner store.
type PostgresStore struct {
	inner Store
	pool  *pgxpool.Pool
}

func NewPostgresStore(inner Store, pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{inner: inner, pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, owner id.SpaceID, name string, data []byte, folderHint string) (string, error) {
	relPath, err := s.inner.Save(ctx, owner, name, data, folderHint)
	if err != nil {
		return "", err
	}
	docID := documentIdentity(owner, relPath)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (id, space_id, path, size, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET size = EXCLUDED.size, created_at = EXCLUDED.created_at`,
		docID.String(), owner.String(), relPath, len(data), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("record document %s: %w", relPath, err)
	}
	return relPath, nil
}

func (s *PostgresStore) Read(ctx context.Context, owner id.SpaceID, relPath string) ([]byte, error) {
	return s.inner.Read(ctx, owner, relPath)
}

func (s *PostgresStore) Delete(ctx context.Context, owner id.SpaceID, relPath string) error {
	if err := s.inner.Delete(ctx, owner, relPath); err != nil {
		return err
	}
	docID := documentIdentity(owner, relPath)
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, docID.String()); err != nil {
		return fmt.Errorf("delete document record %s: %w", relPath, err)
	}
	return nil
}

func (s *PostgresStore) FindMetadata(ctx context.Context, owner id.SpaceID, relPath string) (Metadata, error) {
	docID := documentIdentity(owner, relPath)
	var (
		size      int64
		createdAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT size, created_at FROM documents WHERE id = $1`, docID.String(),
	).Scan(&size, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Metadata{}, fmt.Errorf("document %s: %w", relPath, sentinel.ErrNotFound)
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("document metadata %s: %w", relPath, err)
	}
	return Metadata{ID: docID, Path: relPath, Size: size, CreatedAt: createdAt}, nil
}

// EnsureSchema creates the documents table when it does not exist yet.
// Deployments that manage migrations externally can skip this.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			space_id UUID NOT NULL,
			path TEXT NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}
