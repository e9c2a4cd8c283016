package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into
// transport responses at the edge.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity or physical bytes do not exist
// - ErrExpired: access grant or encrypted payload past its expiry
// - ErrUnauthorized: token/session pair does not resolve to a grant
// - ErrIntegrity: integrity hash mismatch or undecryptable payload
// - ErrUnavailable: broker or backing service temporarily unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrUnauthorized = errors.New("unauthorized")
	ErrIntegrity    = errors.New("integrity violation")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
