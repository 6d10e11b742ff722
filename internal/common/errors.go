// Package common defines shared constants and sentinel errors used across
// the FileGuard layers. Callers should use errors.Is to match these values.
package common

import "errors"

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// operator access token.
const AccessTokenHeaderName = "access_token"

var (
	// repository-level errors
	ErrorNotFound = errors.New("not found")

	// auth errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
