package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables. The SMTP_* and *_EMAIL names are kept unprefixed
// so existing mail settings can be reused as they are.
const (
	EnvGRPCAddr           = "FILEGUARD_GRPC_ADDR"
	EnvHTTPAddr           = "FILEGUARD_HTTP_ADDR"
	EnvDBDialect          = "FILEGUARD_DB_DIALECT"
	EnvDatabaseDSN        = "FILEGUARD_DATABASE_DSN"
	EnvBlobBackend        = "FILEGUARD_BLOB_BACKEND"
	EnvS3Region           = "FILEGUARD_S3_REGION"
	EnvS3Bucket           = "FILEGUARD_S3_BUCKET"
	EnvS3BaseEndpoint     = "FILEGUARD_S3_BASE_ENDPOINT"
	EnvS3AccessKey        = "FILEGUARD_S3_ACCESS_KEY"
	EnvS3SecretKey        = "FILEGUARD_S3_SECRET_KEY"
	EnvInboxDir           = "FILEGUARD_INBOX_DIR"
	EnvAllowedExtensions  = "FILEGUARD_ALLOWED_EXTENSIONS"
	EnvMaxFileSize        = "FILEGUARD_MAX_FILE_SIZE"
	EnvEncryptionPassword = "FILEGUARD_ENCRYPTION_PASSWORD"
	EnvKDFIterations      = "FILEGUARD_KDF_ITERATIONS"
	EnvClamdAddr          = "FILEGUARD_CLAMD_ADDR"
	EnvScanTimeout        = "FILEGUARD_SCAN_TIMEOUT"
	EnvSecretKey          = "FILEGUARD_SECRET_KEY"
	EnvLogBackend         = "FILEGUARD_LOG_BACKEND"
	EnvLogLevel           = "FILEGUARD_LOG_LEVEL"
	EnvLogJSON            = "FILEGUARD_LOG_JSON"

	EnvSMTPServer     = "SMTP_SERVER"
	EnvSMTPPort       = "SMTP_PORT"
	EnvSenderEmail    = "SENDER_EMAIL"
	EnvSenderPassword = "SENDER_PASSWORD"
	EnvRecipientEmail = "RECIPIENT_EMAIL"
)

func parseEnv(c *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	str(EnvGRPCAddr, &c.GRPCAddr)
	str(EnvHTTPAddr, &c.HTTPAddr)
	str(EnvDBDialect, &c.DBDialect)
	str(EnvDatabaseDSN, &c.DatabaseDSN)
	str(EnvBlobBackend, &c.BlobBackend)
	str(EnvS3Region, &c.S3Region)
	str(EnvS3Bucket, &c.S3Bucket)
	str(EnvS3BaseEndpoint, &c.S3BaseEndpoint)
	str(EnvS3AccessKey, &c.S3AccessKey)
	str(EnvS3SecretKey, &c.S3SecretKey)
	str(EnvInboxDir, &c.InboxDir)
	str(EnvEncryptionPassword, &c.EncryptionPassword)
	str(EnvClamdAddr, &c.ClamdAddr)
	str(EnvSecretKey, &c.SecretKey)
	str(EnvLogBackend, &c.LogBackend)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvSMTPServer, &c.SMTPServer)
	str(EnvSenderEmail, &c.SenderEmail)
	str(EnvSenderPassword, &c.SenderPassword)
	str(EnvRecipientEmail, &c.RecipientEmail)

	if v, ok := lookup(EnvAllowedExtensions); ok && v != "" {
		c.AllowedExtensions = splitList(v)
	}

	if v, ok := lookup(EnvMaxFileSize); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxFileSize, err)
		}
		c.MaxFileSize = n
	}

	for name, dst := range map[string]*int{EnvKDFIterations: &c.KDFIterations, EnvSMTPPort: &c.SMTPPort} {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = n
		}
	}

	if v, ok := lookup(EnvScanTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvScanTimeout, err)
		}
		c.ScanTimeout = d
	}

	if v, ok := lookup(EnvLogJSON); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLogJSON, err)
		}
		c.LogJSON = b
	}

	return nil
}

// splitList parses ".txt, .pdf" into normalised extensions.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	return out
}
