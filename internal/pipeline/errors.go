package pipeline

import (
	"fmt"

	"github.com/dmitrijs2005/fileguard/internal/upload"
)

// AdmissionError is the validator's rejection, surfaced unchanged.
type AdmissionError = upload.AdmissionError

const (
	ReasonOracleUnavailable   = "OracleUnavailable"
	ReasonKeyDerivationFailed = "KeyDerivationFailed"
	ReasonEncryptionFailed    = "EncryptionFailed"
	ReasonIntegrityViolation  = "IntegrityViolation"
	ReasonMetadataWriteFailed = "MetadataWriteFailed"
	ReasonBlobWriteFailed     = "BlobWriteFailed"
	ReasonStagingFailed       = "StagingFailed"
	ReasonQuarantineFailed    = "QuarantineFailed"
)

type ScanError struct {
	Reason string
	Err    error
}

func (e *ScanError) Error() string { return fmt.Sprintf("scan error: %s: %v", e.Reason, e.Err) }
func (e *ScanError) Unwrap() error { return e.Err }

// ThreatDetected ends a run whose file was quarantined.
type ThreatDetected struct {
	Label string
}

func (e *ThreatDetected) Error() string { return "threat detected: " + e.Label }

type CryptoError struct {
	Reason string
	Err    error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("crypto error: %s: %v", e.Reason, e.Err) }
func (e *CryptoError) Unwrap() error { return e.Err }

// PersistenceError names the store that failed and the file it was
// writing, so orphans can be traced from the audit log.
type PersistenceError struct {
	Reason string
	Store  string
	FileID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s (store=%s, file=%s): %v", e.Reason, e.Store, e.FileID, e.Err)
}
func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError never changes a run's outcome.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string { return fmt.Sprintf("notification error: %v", e.Err) }
func (e *NotificationError) Unwrap() error { return e.Err }

// ProcessingError covers local failures outside the taxonomy above, such
// as staging the file into the sandbox.
type ProcessingError struct {
	Reason string
	Err    error
}

func (e *ProcessingError) Error() string { return fmt.Sprintf("%s: %v", e.Reason, e.Err) }
func (e *ProcessingError) Unwrap() error { return e.Err }
