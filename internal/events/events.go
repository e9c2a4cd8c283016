package events

import (
	"time"

	id "sealgate/pkg/domain"
)

// Routing keys double as the logical event names on the wire. The bus binds
// one durable queue per key, named "<key>.Queue".
const (
	KeyDocumentReadyToSeal   = "DocumentReadyToSeal"
	KeyDocumentSealed        = "DocumentSealed"
	KeyDocumentDownloadReady = "DocumentDownloadReady"
	KeySecureAccessRequested = "SecureDocumentAccessRequested"
)

// SignatureStamp describes one signer's placed signature image in document
// space coordinates. Width/Height are in PDF points.
type SignatureStamp struct {
	SignerID    id.SignerID `json:"signerId"`
	SignerEmail string      `json:"signerEmail"`
	Page        int         `json:"page"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	ImageBase64 string      `json:"imageBase64"`
	Thumbprint  string      `json:"thumbprint"`
	SignedAt    time.Time   `json:"signedAt"`
	ClientIP    string      `json:"clientIp"`
	UserAgent   string      `json:"userAgent"`
	ConsentedAt time.Time   `json:"consentedAt"`
}

// DocumentReadyToSeal announces that every signer on a signature request has
// signed. The stamp list is ordered; all stamps must be applied before the
// seal step runs.
type DocumentReadyToSeal struct {
	SignatureRequestID id.SignatureRequestID `json:"signatureRequestId"`
	DocumentID         id.DocumentID         `json:"documentId"`
	DocumentPath       string                `json:"documentPath"` // relative to the uploader's space
	Stamps             []SignatureStamp      `json:"stamps"`
}

// DocumentSealed announces the sealed artifact to downstream consumers
// (mail, audit). Path is relative to the uploader's space.
type DocumentSealed struct {
	SignatureRequestID id.SignatureRequestID `json:"signatureRequestId"`
	SealedDocumentID   id.DocumentID         `json:"sealedDocumentId"`
	Path               string                `json:"path"`
	SignerEmails       []string              `json:"signerEmails"`
}

// SecureEnvelope carries an encrypted access payload plus its plaintext
// integrity hash and absolute expiry. The hash is an unkeyed SHA-256 over
// the decrypted fields; it detects corruption, not forgery.
type SecureEnvelope struct {
	Payload   string    `json:"payload"`   // base64, AEAD sealed
	Integrity string    `json:"integrity"` // hex
	ExpiresAt time.Time `json:"expiresAt"`
}

// DocumentDownloadReady tells one signer their sealed copy can be fetched.
// Everything needed to redeem the grant travels inside the envelope.
type DocumentDownloadReady struct {
	SignerEmail string         `json:"signerEmail"`
	Envelope    SecureEnvelope `json:"envelope"`
}

// SecureDocumentAccessRequested asks the gateway to provision a grant from
// an encrypted request produced by a trusted peer service.
type SecureDocumentAccessRequested struct {
	Envelope SecureEnvelope `json:"envelope"`
}
