package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "30s" style strings or integer nanoseconds. Absent or zero fields
// keep the value already in Config.
type JsonConfig struct {
	GRPCAddr              string         `json:"grpc_addr"`
	HTTPAddr              string         `json:"http_addr"`
	DBDialect             string         `json:"db_dialect"`
	DatabaseDSN           string         `json:"database_dsn"`
	BlobBackend           string         `json:"blob_backend"`
	S3Region              string         `json:"s3_region"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Prefix              string         `json:"s3_prefix"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	S3AccessKey           string         `json:"s3_access_key"`
	S3SecretKey           string         `json:"s3_secret_key"`
	AllowedExtensions     []string       `json:"allowed_extensions"`
	MaxFileSize           int64          `json:"max_file_size"`
	SandboxDir            string         `json:"sandbox_dir"`
	QuarantineDir         string         `json:"quarantine_dir"`
	InboxDir              string         `json:"inbox_dir"`
	KDFAlgorithm          string         `json:"kdf_algorithm"`
	KDFIterations         int            `json:"kdf_iterations"`
	KeyValidity           timex.Duration `json:"key_validity"`
	AuditMaxEntries       int            `json:"audit_max_entries"`
	MetadataRetentionDays *int           `json:"metadata_retention_days"`
	MaintenanceInterval   timex.Duration `json:"maintenance_interval"`
	PendingTimeout        timex.Duration `json:"pending_timeout"`
	BatchWorkers          int            `json:"batch_workers"`
	ClamdAddr             string         `json:"clamd_addr"`
	ScanTimeout           timex.Duration `json:"scan_timeout"`
	SMTPServer            string         `json:"smtp_server"`
	SMTPPort              int            `json:"smtp_port"`
	SenderEmail           string         `json:"sender_email"`
	RecipientEmail        string         `json:"recipient_email"`
	NotifyTimeout         timex.Duration `json:"notify_timeout"`
	NotifyOnSuccess       *bool          `json:"notify_on_success"`
	SecretKey             string         `json:"secret_key"`
	AccessTokenValidity   timex.Duration `json:"access_token_validity"`
	UploadRateLimit       float64        `json:"upload_rate_limit"`
	LogBackend            string         `json:"log_backend"`
	LogLevel              string         `json:"log_level"`
	LogJSON               *bool          `json:"log_json"`
}

func parseJSON(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DBDialect, c.DBDialect)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Prefix, c.S3Prefix)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	if len(c.AllowedExtensions) > 0 {
		config.AllowedExtensions = c.AllowedExtensions
	}
	if c.MaxFileSize > 0 {
		config.MaxFileSize = c.MaxFileSize
	}
	setString(&config.SandboxDir, c.SandboxDir)
	setString(&config.QuarantineDir, c.QuarantineDir)
	setString(&config.InboxDir, c.InboxDir)
	setString(&config.KDFAlgorithm, c.KDFAlgorithm)
	setInt(&config.KDFIterations, c.KDFIterations)
	setDuration(&config.KeyValidity, c.KeyValidity)
	setInt(&config.AuditMaxEntries, c.AuditMaxEntries)
	if c.MetadataRetentionDays != nil {
		config.MetadataRetentionDays = *c.MetadataRetentionDays
	}
	setDuration(&config.MaintenanceInterval, c.MaintenanceInterval)
	setDuration(&config.PendingTimeout, c.PendingTimeout)
	setInt(&config.BatchWorkers, c.BatchWorkers)
	setString(&config.ClamdAddr, c.ClamdAddr)
	setDuration(&config.ScanTimeout, c.ScanTimeout)
	setString(&config.SMTPServer, c.SMTPServer)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SenderEmail, c.SenderEmail)
	setString(&config.RecipientEmail, c.RecipientEmail)
	setDuration(&config.NotifyTimeout, c.NotifyTimeout)
	if c.NotifyOnSuccess != nil {
		config.NotifyOnSuccess = *c.NotifyOnSuccess
	}
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidity, c.AccessTokenValidity)
	if c.UploadRateLimit > 0 {
		config.UploadRateLimit = c.UploadRateLimit
	}
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogLevel, c.LogLevel)
	if c.LogJSON != nil {
		config.LogJSON = *c.LogJSON
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
