package access

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sealgate/pkg/domain"
	"sealgate/pkg/platform/sentinel"
)

const testKeyHex = "8a2c1f0e4b6d9c3a5e7f1029384b5d6c7e8f90a1b2c3d4e5f60718293a4b5c6d"

func testPayload() Payload {
	now := time.Now().UTC().Truncate(time.Second)
	doc := id.NewDocumentID()
	signer := id.NewSignerID()
	return Payload{
		DocumentID:  doc,
		SignerID:    signer,
		SignerEmail: "signer@example.com",
		AccessToken: "token-abc",
		SessionID:   "deadbeef",
		Fingerprint: Fingerprint(doc, signer, "deadbeef", now),
		Path:        "sealed/contract_sealed.pdf",
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

func TestSealer_RoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKeyHex)
	require.NoError(t, err)

	p := testPayload()
	sealed, err := sealer.Seal(p)
	require.NoError(t, err)

	got, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, p.AccessToken, got.AccessToken)
	assert.Equal(t, p.Fingerprint, got.Fingerprint)
	assert.Equal(t, p.IntegrityHash(), got.IntegrityHash())
}

func TestSealer_RejectsTamperedCiphertext(t *testing.T) {
	sealer, err := NewSealer(testKeyHex)
	require.NoError(t, err)

	sealed, err := sealer.Seal(testPayload())
	require.NoError(t, err)

	// Flip one character of the encoded blob.
	b := []byte(sealed)
	if b[10] == 'A' {
		b[10] = 'B'
	} else {
		b[10] = 'A'
	}
	_, err = sealer.Open(string(b))
	assert.ErrorIs(t, err, sentinel.ErrIntegrity)
}

func TestSealer_RejectsWrongKey(t *testing.T) {
	sealer, err := NewSealer(testKeyHex)
	require.NoError(t, err)
	other, err := NewSealer("0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	sealed, err := sealer.Seal(testPayload())
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, sentinel.ErrIntegrity)
}

func TestNewSealer_ValidatesKey(t *testing.T) {
	_, err := NewSealer("not-hex")
	assert.Error(t, err)
	_, err = NewSealer("abcd")
	assert.Error(t, err)
}

func TestIntegrityHash_SensitiveToEveryField(t *testing.T) {
	p := testPayload()
	base := p.IntegrityHash()

	mutations := []func(Payload) Payload{
		func(p Payload) Payload { p.AccessToken = "token-xyz"; return p },
		func(p Payload) Payload { p.SessionID = "cafebabe"; return p },
		func(p Payload) Payload { p.Fingerprint = "ff" + p.Fingerprint[2:]; return p },
		func(p Payload) Payload { p.ExpiresAt = p.ExpiresAt.Add(time.Minute); return p },
		func(p Payload) Payload { p.DocumentID = id.NewDocumentID(); return p },
		func(p Payload) Payload { p.SignerID = id.NewSignerID(); return p },
	}
	for _, mutate := range mutations {
		assert.NotEqual(t, base, mutate(p).IntegrityHash())
	}
}

func TestTokenAndSessionGeneration(t *testing.T) {
	tok1, err := NewAccessToken()
	require.NoError(t, err)
	tok2, err := NewAccessToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok1, tok2)

	sess, err := NewSessionID()
	require.NoError(t, err)
	_, err = hex.DecodeString(sess)
	assert.NoError(t, err, "session id must be hex")
	assert.Len(t, sess, 32)
}

func TestFingerprint_BindsContext(t *testing.T) {
	doc := id.NewDocumentID()
	signer := id.NewSignerID()
	at := time.Now()

	fp := Fingerprint(doc, signer, "sess", at)
	assert.Equal(t, fp, Fingerprint(doc, signer, "sess", at))
	assert.NotEqual(t, fp, Fingerprint(id.NewDocumentID(), signer, "sess", at))
	assert.NotEqual(t, fp, Fingerprint(doc, id.NewSignerID(), "sess", at))
	assert.NotEqual(t, fp, Fingerprint(doc, signer, "other", at))
	assert.NotEqual(t, fp, Fingerprint(doc, signer, "sess", at.Add(time.Nanosecond)))
}
