package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "sealgate/pkg/domain"
	"sealgate/pkg/platform/sentinel"
)

// PostgresResolver resolves document ownership from the documents table
// maintained by the upload side of the platform.
type PostgresResolver struct {
	pool *pgxpool.Pool
}

func NewPostgresResolver(pool *pgxpool.Pool) *PostgresResolver {
	return &PostgresResolver{pool: pool}
}

func (r *PostgresResolver) OwnerOf(ctx context.Context, doc id.DocumentID) (id.SpaceID, error) {
	var raw string
	err := r.pool.QueryRow(ctx,
		`SELECT space_id::text FROM documents WHERE id = $1`, doc.String(),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return id.SpaceID{}, fmt.Errorf("document %s: %w", doc, sentinel.ErrNotFound)
	}
	if err != nil {
		return id.SpaceID{}, fmt.Errorf("resolve document owner: %w", err)
	}
	owner, err := uuid.Parse(raw)
	if err != nil {
		return id.SpaceID{}, fmt.Errorf("malformed space id %q: %w", raw, err)
	}
	return id.SpaceID(owner), nil
}
