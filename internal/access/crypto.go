package access

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	id "sealgate/pkg/domain"
	"sealgate/pkg/platform/sentinel"
)

// Payload is the plaintext carried inside encrypted access envelopes.
type Payload struct {
	DocumentID  id.DocumentID `json:"documentId"`
	SignerID    id.SignerID   `json:"signerId"`
	SignerEmail string        `json:"signerEmail"`
	AccessToken string        `json:"accessToken"`
	SessionID   string        `json:"sessionId"`
	Fingerprint string        `json:"fingerprint"`
	Path        string        `json:"path"` // sealed copy, relative to the owning space
	IssuedAt    time.Time     `json:"issuedAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

// IntegrityHash is an unkeyed SHA-256 over the concatenated plaintext
// fields, hex encoded. It detects corruption of the decrypted payload; it
// is not a MAC and offers no forgery resistance beyond the AEAD layer.
func (p Payload) IntegrityHash() string {
	h := sha256.New()
	h.Write([]byte(p.DocumentID.String()))
	h.Write([]byte(p.SignerID.String()))
	h.Write([]byte(p.AccessToken))
	h.Write([]byte(p.SessionID))
	h.Write([]byte(p.Fingerprint))
	h.Write([]byte(p.ExpiresAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(h.Sum(nil))
}

// NewAccessToken returns an opaque random token (256 bits, URL-safe).
func NewAccessToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewSessionID returns a random hex session identifier.
func NewSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Fingerprint binds a document, signer, and session together at a point in
// time so a token cannot be replayed in another context.
func Fingerprint(doc id.DocumentID, signer id.SignerID, session string, at time.Time) string {
	h := sha256.New()
	h.Write([]byte(doc.String()))
	h.Write([]byte(signer.String()))
	h.Write([]byte(session))
	h.Write([]byte(strconv.FormatInt(at.UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// Sealer encrypts and decrypts access payloads with XChaCha20-Poly1305.
type Sealer struct {
	key []byte
}

// NewSealer takes the hex-encoded 32-byte payload key from configuration.
func NewSealer(hexKey string) (*Sealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode payload key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("payload key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts the payload and returns it base64 encoded, nonce prepended.
func (s *Sealer) Seal(p Payload) (string, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal access payload: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts an envelope payload. Any decoding or authentication failure
// resolves to the integrity sentinel; callers treat it as a security error.
func (s *Sealer) Open(encoded string) (Payload, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", sentinel.ErrIntegrity)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return Payload{}, err
	}
	if len(sealed) < aead.NonceSize() {
		return Payload{}, fmt.Errorf("payload too short: %w", sentinel.ErrIntegrity)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("decrypt payload: %w", sentinel.ErrIntegrity)
	}
	var p Payload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return Payload{}, fmt.Errorf("unmarshal payload: %w", sentinel.ErrIntegrity)
	}
	return p, nil
}
