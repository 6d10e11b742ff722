// Package models defines the records FileGuard persists.
package models

import "time"

// Metadata row status. A row is committed once its blob is durable; rows
// left pending past the reconciliation window are marked orphaned.
const (
	StatusPending   = "pending"
	StatusCommitted = "committed"
	StatusOrphaned  = "orphaned"
)

// FileMetadata describes one successfully processed upload. It never holds
// key material: KeyHash is a one-way fingerprint and KeySalt plus KDF are
// public inputs that still require the password.
type FileMetadata struct {
	ID               string
	OriginalFilename string
	FileSize         int64
	UploadTime       time.Time
	KeyHash          string
	BlobLocator      string
	KeySalt          []byte
	KDF              string
	ContentHash      string
	MIMEType         string
	Status           string
}

// SecureBlob is the encrypted payload of an upload, addressed by ID.
// Data is nonce||tag||ciphertext.
type SecureBlob struct {
	ID               string
	OriginalFilename string
	Data             []byte
	KeyHash          string
	UploadTime       time.Time
}
