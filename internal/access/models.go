// Package access issues, validates, and expires the short-lived grants that
// let signers fetch their sealed documents without storage credentials.
package access

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"sealgate/internal/storage"
	id "sealgate/pkg/domain"
)

// Grant is one signer's permission to fetch one sealed document within a
// window. The composite cache key binds token, session, and fingerprint;
// a grant is valid iff the current time is before ExpiresAt. Grants stay
// usable for the whole window; there is no single-use consumption.
type Grant struct {
	DocumentID  id.DocumentID    `json:"documentId"`
	SignerID    id.SignerID      `json:"signerId"`
	SignerEmail string           `json:"signerEmail"`
	AccessToken string           `json:"accessToken"`
	SessionID   string           `json:"sessionId"`
	Fingerprint string           `json:"fingerprint"`
	Owner       id.SpaceID       `json:"owner"`
	Document    storage.Metadata `json:"document"`
	CreatedAt   time.Time        `json:"createdAt"`
	ExpiresAt   time.Time        `json:"expiresAt"`
}

// Expired reports whether the grant is past its window at now.
func (g Grant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// CacheKey derives the collision-resistant composite lookup key. The same
// (token, session, fingerprint) triple always yields the same key.
func CacheKey(token, session, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(token))
	h.Write([]byte{0})
	h.Write([]byte(session))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}
