package service

import (
	"errors"

	"meaktask-api/internal/jwt"
	"meaktask-api/internal/repository"
)

// Outcomes of auth operations. Controllers map them to HTTP responses with errors.Is/As.
var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrDuplicateEmail     = repository.ErrDuplicateEmail
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrStoreUnavailable   = repository.ErrStoreUnavailable
	ErrConfiguration      = errors.New("auth service misconfigured")
	ErrInternal           = errors.New("internal error")

	// ErrUnknownSubject marks a well-formed token whose account no longer exists
	ErrUnknownSubject = errors.New("token subject not found")
)

// ValidationError lists every field constraint an input violated
type ValidationError = repository.ValidationError

// Reasons reported by UnauthenticatedReason
const (
	ReasonMissing        = "missing"
	ReasonExpired        = "expired"
	ReasonMalformed      = "malformed"
	ReasonSignature      = "signature"
	ReasonUnknownSubject = "unknown_subject"
	ReasonRejected       = "rejected"
)

// UnauthenticatedReason names why an Authenticate call was refused, for server-side logs
func UnauthenticatedReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, ErrUnknownSubject):
		return ReasonUnknownSubject
	default:
		return ReasonRejected
	}
}
