package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Typed identifiers for the sealing domain. Wrapping uuid.UUID keeps
// document, signer, and space identities from being swapped at call sites.

type DocumentID uuid.UUID

type SignerID uuid.UUID

type SpaceID uuid.UUID

// SignatureRequestID identifies one signature request covering a document
// and its full set of signers.
type SignatureRequestID uuid.UUID

func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

func NewSignerID() SignerID { return SignerID(uuid.New()) }

func NewSpaceID() SpaceID { return SpaceID(uuid.New()) }

func NewSignatureRequestID() SignatureRequestID { return SignatureRequestID(uuid.New()) }

func (id DocumentID) String() string { return uuid.UUID(id).String() }

func (id SignerID) String() string { return uuid.UUID(id).String() }

func (id SpaceID) String() string { return uuid.UUID(id).String() }

func (id SignatureRequestID) String() string { return uuid.UUID(id).String() }

func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id SignerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id SpaceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseDocumentID validates and returns a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DocumentID{}, fmt.Errorf("invalid document id %q: %w", s, err)
	}
	return DocumentID(u), nil
}

// ParseSignerID validates and returns a SignerID.
func ParseSignerID(s string) (SignerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SignerID{}, fmt.Errorf("invalid signer id %q: %w", s, err)
	}
	return SignerID(u), nil
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as their
// canonical UUID string inside event payloads.
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DocumentID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = DocumentID(u)
	return nil
}

func (id SignerID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SignerID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SignerID(u)
	return nil
}

func (id SpaceID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SpaceID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SpaceID(u)
	return nil
}

func (id SignatureRequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SignatureRequestID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SignatureRequestID(u)
	return nil
}
