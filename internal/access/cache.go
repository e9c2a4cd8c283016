package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sealgate/internal/storage"
	"sealgate/pkg/platform/sentinel"
)

var (
	grantsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealgate_access_grants_issued_total",
		Help: "Access grants registered in the cache",
	})
	grantsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sealgate_access_grants_resolved_total",
		Help: "Grant resolution attempts by outcome",
	}, []string{"outcome"})
)

// Cache is the grant service. It owns key derivation and expiry policy and
// delegates persistence to an injectable GrantStore.
type Cache struct {
	store GrantStore
	docs  storage.Store
	log   *slog.Logger
}

func NewCache(store GrantStore, docs storage.Store, log *slog.Logger) *Cache {
	return &Cache{store: store, docs: docs, log: log}
}

// PrepareAccess registers a grant under its composite key. Every insert
// also lazily sweeps expired entries, amortizing cleanup without a
// dedicated background task.
func (c *Cache) PrepareAccess(ctx context.Context, grant Grant) error {
	ttl := time.Until(grant.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("grant for signer %s already expired: %w", grant.SignerID, sentinel.ErrExpired)
	}
	key := CacheKey(grant.AccessToken, grant.SessionID, grant.Fingerprint)
	if err := c.store.Put(ctx, key, grant, ttl); err != nil {
		return fmt.Errorf("store access grant: %w", err)
	}
	grantsIssuedTotal.Inc()
	if err := c.store.Sweep(ctx, time.Now()); err != nil {
		c.log.Warn("grant sweep failed", "error", err)
	}
	return nil
}

// Validate reports whether a live grant exists for the exact composite of
// token, session, and fingerprint.
func (c *Cache) Validate(ctx context.Context, token, session, fingerprint string) bool {
	want := CacheKey(token, session, fingerprint)
	now := time.Now()
	valid := false
	err := c.store.Scan(ctx, func(key string, g Grant) bool {
		if key == want && !g.Expired(now) {
			valid = true
			return false
		}
		return true
	})
	if err != nil {
		c.log.Warn("grant validation scan failed", "error", err)
		return false
	}
	return valid
}

// Resolve exchanges a token and session for the sealed document bytes. The
// fingerprint is not required here; it only protects the original encrypted
// request. Unknown or expired pairs produce an authorization error, and
// expired matches are evicted on the way out. Missing physical bytes after
// a successful match are a not-found error, distinct from authorization.
func (c *Cache) Resolve(ctx context.Context, token, session string) ([]byte, Grant, error) {
	var (
		found    Grant
		foundKey string
		ok       bool
	)
	err := c.store.Scan(ctx, func(key string, g Grant) bool {
		if g.AccessToken == token && g.SessionID == session {
			found, foundKey, ok = g, key, true
			return false
		}
		return true
	})
	if err != nil {
		return nil, Grant{}, fmt.Errorf("scan access grants: %w", err)
	}
	if !ok {
		grantsResolvedTotal.WithLabelValues("unauthorized").Inc()
		return nil, Grant{}, fmt.Errorf("no grant for token/session: %w", sentinel.ErrUnauthorized)
	}
	if found.Expired(time.Now()) {
		if derr := c.store.Delete(ctx, foundKey); derr != nil {
			c.log.Warn("evicting expired grant failed", "error", derr)
		}
		grantsResolvedTotal.WithLabelValues("expired").Inc()
		return nil, Grant{}, fmt.Errorf("access grant expired: %w", sentinel.ErrUnauthorized)
	}

	data, err := c.docs.Read(ctx, found.Owner, found.Document.Path)
	if err != nil {
		grantsResolvedTotal.WithLabelValues("missing").Inc()
		return nil, Grant{}, fmt.Errorf("sealed document bytes: %w", err)
	}
	grantsResolvedTotal.WithLabelValues("ok").Inc()
	return data, found, nil
}
