package access

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealgate/internal/storage"
	id "sealgate/pkg/domain"
	"sealgate/pkg/platform/sentinel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeGrant(t *testing.T, docs storage.Store, ttl time.Duration) Grant {
	t.Helper()
	ctx := context.Background()
	owner := id.NewSpaceID()

	relPath, err := docs.Save(ctx, owner, "sealed.pdf", []byte("%PDF sealed bytes"), "sealed")
	require.NoError(t, err)
	meta, err := docs.FindMetadata(ctx, owner, relPath)
	require.NoError(t, err)

	token, err := NewAccessToken()
	require.NoError(t, err)
	session, err := NewSessionID()
	require.NoError(t, err)

	now := time.Now()
	docID := id.NewDocumentID()
	signerID := id.NewSignerID()
	return Grant{
		DocumentID:  docID,
		SignerID:    signerID,
		SignerEmail: "signer@example.com",
		AccessToken: token,
		SessionID:   session,
		Fingerprint: Fingerprint(docID, signerID, session, now),
		Owner:       owner,
		Document:    meta,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	k1 := CacheKey("tok", "sess", "fp")
	k2 := CacheKey("tok", "sess", "fp")
	assert.Equal(t, k1, k2)

	assert.NotEqual(t, k1, CacheKey("tok2", "sess", "fp"))
	assert.NotEqual(t, k1, CacheKey("tok", "sess2", "fp"))
	assert.NotEqual(t, k1, CacheKey("tok", "sess", "fp2"))
	// Field boundaries matter: shifting a character between fields must
	// not collide.
	assert.NotEqual(t, CacheKey("ab", "c", "d"), CacheKey("a", "bc", "d"))
}

func TestCache_ResolveHappyPath(t *testing.T) {
	docs := storage.NewInMemoryStore()
	cache := NewCache(NewInMemoryGrantStore(), docs, testLogger())
	ctx := context.Background()

	grant := makeGrant(t, docs, time.Hour)
	require.NoError(t, cache.PrepareAccess(ctx, grant))

	data, got, err := cache.Resolve(ctx, grant.AccessToken, grant.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF sealed bytes"), data)
	assert.Equal(t, grant.SignerID, got.SignerID)

	// Reuse within the window is permitted.
	data2, _, err := cache.Resolve(ctx, grant.AccessToken, grant.SessionID)
	require.NoError(t, err)
	assert.Equal(t, data, data2)
}

func TestCache_ResolveUnknownPairIsUnauthorized(t *testing.T) {
	docs := storage.NewInMemoryStore()
	cache := NewCache(NewInMemoryGrantStore(), docs, testLogger())

	_, _, err := cache.Resolve(context.Background(), "nope", "nope")
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)
}

func TestCache_ResolveExpiredEvicts(t *testing.T) {
	docs := storage.NewInMemoryStore()
	store := NewInMemoryGrantStore()
	cache := NewCache(store, docs, testLogger())
	ctx := context.Background()

	grant := makeGrant(t, docs, 30*time.Millisecond)
	require.NoError(t, cache.PrepareAccess(ctx, grant))
	time.Sleep(50 * time.Millisecond)

	_, _, err := cache.Resolve(ctx, grant.AccessToken, grant.SessionID)
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)
	assert.Equal(t, 0, store.Len(), "expired grant must be evicted on resolve")
}

func TestCache_ResolveMissingBytesIsNotFound(t *testing.T) {
	docs := storage.NewInMemoryStore()
	cache := NewCache(NewInMemoryGrantStore(), docs, testLogger())
	ctx := context.Background()

	grant := makeGrant(t, docs, time.Hour)
	require.NoError(t, cache.PrepareAccess(ctx, grant))
	require.NoError(t, docs.Delete(ctx, grant.Owner, grant.Document.Path))

	_, _, err := cache.Resolve(ctx, grant.AccessToken, grant.SessionID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NotErrorIs(t, err, sentinel.ErrUnauthorized)
}

func TestCache_PrepareAccessRejectsExpiredGrant(t *testing.T) {
	docs := storage.NewInMemoryStore()
	cache := NewCache(NewInMemoryGrantStore(), docs, testLogger())

	grant := makeGrant(t, docs, -time.Minute)
	err := cache.PrepareAccess(context.Background(), grant)
	assert.ErrorIs(t, err, sentinel.ErrExpired)
}

func TestCache_PrepareAccessSweepsExpiredEntries(t *testing.T) {
	docs := storage.NewInMemoryStore()
	store := NewInMemoryGrantStore()
	cache := NewCache(store, docs, testLogger())
	ctx := context.Background()

	stale := makeGrant(t, docs, 20*time.Millisecond)
	require.NoError(t, cache.PrepareAccess(ctx, stale))
	time.Sleep(40 * time.Millisecond)

	fresh := makeGrant(t, docs, time.Hour)
	require.NoError(t, cache.PrepareAccess(ctx, fresh))
	assert.Equal(t, 1, store.Len(), "insert must lazily sweep expired grants")
}

func TestCache_Validate(t *testing.T) {
	docs := storage.NewInMemoryStore()
	cache := NewCache(NewInMemoryGrantStore(), docs, testLogger())
	ctx := context.Background()

	grant := makeGrant(t, docs, time.Hour)
	require.NoError(t, cache.PrepareAccess(ctx, grant))

	assert.True(t, cache.Validate(ctx, grant.AccessToken, grant.SessionID, grant.Fingerprint))
	assert.False(t, cache.Validate(ctx, grant.AccessToken, grant.SessionID, "other-fingerprint"))
	assert.False(t, cache.Validate(ctx, "other-token", grant.SessionID, grant.Fingerprint))
}
