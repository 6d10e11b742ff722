package models

import "time"

// QuarantineRecord is one entry of the quarantine manifest.
type QuarantineRecord struct {
	ID             string    `json:"id"`
	OriginalPath   string    `json:"original_path"`
	QuarantinePath string    `json:"quarantine_path"`
	Threat         string    `json:"threat"`
	Size           int64     `json:"size"`
	QuarantinedAt  time.Time `json:"quarantined_at"`
}
