package models

import "time"

const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// Severity of an audit event.
type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityDebug, SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// AuditEvent is one append-only entry of the audit trail.
type AuditEvent struct {
	ID        int64
	Operation string
	Timestamp time.Time
	Details   string
	Status    string
	Severity  Severity
}
