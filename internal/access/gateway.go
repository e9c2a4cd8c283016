package access

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"sealgate/internal/events"
	"sealgate/internal/storage"
	"sealgate/pkg/platform/sentinel"
)

// Gateway provisions grants from encrypted access requests published by
// trusted peer services. Integrity or expiry violations abort processing
// with a security error; they are never downgraded.
type Gateway struct {
	sealer   *Sealer
	cache    *Cache
	resolver storage.SpaceResolver
	docs     storage.Store
	log      *slog.Logger
}

func NewGateway(sealer *Sealer, cache *Cache, resolver storage.SpaceResolver, docs storage.Store, log *slog.Logger) *Gateway {
	return &Gateway{sealer: sealer, cache: cache, resolver: resolver, docs: docs, log: log}
}

// HandleAccessRequested is the bus handler for the secure access request
// routing key.
func (g *Gateway) HandleAccessRequested(ctx context.Context, body []byte) error {
	var evt events.SecureDocumentAccessRequested
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("decode access request event: %w", err)
	}
	return g.Provision(ctx, evt.Envelope)
}

// Provision validates one encrypted envelope and registers the grant it
// carries.
func (g *Gateway) Provision(ctx context.Context, env events.SecureEnvelope) error {
	if !time.Now().Before(env.ExpiresAt) {
		return fmt.Errorf("access request past expiry: %w", sentinel.ErrExpired)
	}

	payload, err := g.sealer.Open(env.Payload)
	if err != nil {
		return err
	}
	if payload.IntegrityHash() != env.Integrity {
		return fmt.Errorf("access payload integrity hash mismatch: %w", sentinel.ErrIntegrity)
	}
	if !time.Now().Before(payload.ExpiresAt) {
		return fmt.Errorf("access payload past expiry: %w", sentinel.ErrExpired)
	}

	owner, err := g.resolver.OwnerOf(ctx, payload.DocumentID)
	if err != nil {
		return fmt.Errorf("resolve document space: %w", err)
	}
	meta, err := g.docs.FindMetadata(ctx, owner, payload.Path)
	if err != nil {
		return fmt.Errorf("sealed document metadata: %w", err)
	}

	return g.cache.PrepareAccess(ctx, Grant{
		DocumentID:  payload.DocumentID,
		SignerID:    payload.SignerID,
		SignerEmail: payload.SignerEmail,
		AccessToken: payload.AccessToken,
		SessionID:   payload.SessionID,
		Fingerprint: payload.Fingerprint,
		Owner:       owner,
		Document:    meta,
		CreatedAt:   payload.IssuedAt,
		ExpiresAt:   payload.ExpiresAt,
	})
}
