// Package config builds the runtime configuration shared by the server and
// the CLI: defaults, then an optional JSON file, then .env and environment
// variables, then short command-line flags. Later sources win.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/fileguard/internal/flagx"
	"github.com/joho/godotenv"
)

// Config holds every tunable of FileGuard. It is passed by pointer into
// each component at construction; there is no package-level instance.
//
// Secrets (SecretKey, EncryptionPassword, SenderPassword, S3SecretKey) are
// never logged.
type Config struct {
	GRPCAddr string `validate:"required"`
	HTTPAddr string `validate:"required"`

	DBDialect   string `validate:"oneof=sqlite postgres"`
	DatabaseDSN string `validate:"required"`

	BlobBackend    string `validate:"oneof=db s3"`
	S3Region       string `validate:"required_if=BlobBackend s3"`
	S3Bucket       string `validate:"required_if=BlobBackend s3"`
	S3Prefix       string
	S3BaseEndpoint string `validate:"omitempty,url"`
	S3AccessKey    string
	S3SecretKey    string

	AllowedExtensions []string `validate:"min=1,dive,startswith=."`
	MaxFileSize       int64    `validate:"gt=0"`
	SandboxDir        string   `validate:"required"`
	QuarantineDir     string   `validate:"required"`
	InboxDir          string   `validate:"required"`

	EncryptionPassword string
	KDFAlgorithm       string        `validate:"oneof=pbkdf2-sha256 argon2id"`
	KDFIterations      int           `validate:"gt=0"`
	KeyValidity        time.Duration `validate:"gt=0"`

	AuditMaxEntries       int           `validate:"gt=0"`
	MetadataRetentionDays int           `validate:"gte=0"`
	MaintenanceInterval   time.Duration `validate:"gt=0"`
	PendingTimeout        time.Duration `validate:"gt=0"`
	BatchWorkers          int           `validate:"gt=0"`

	ClamdAddr   string        `validate:"required,hostname_port"`
	ScanTimeout time.Duration `validate:"gt=0"`

	SMTPServer      string
	SMTPPort        int    `validate:"gte=0,lte=65535"`
	SenderEmail     string `validate:"omitempty,email"`
	SenderPassword  string
	RecipientEmail  string `validate:"omitempty,email"`
	NotifyTimeout   time.Duration `validate:"gt=0"`
	NotifyOnSuccess bool

	SecretKey           string        `validate:"required,min=8"`
	AccessTokenValidity time.Duration `validate:"gt=0"`
	UploadRateLimit     float64       `validate:"gt=0"`

	LogBackend string `validate:"oneof=slog zap"`
	LogLevel   string `validate:"oneof=debug info warn error"`
	LogJSON    bool
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey is insecure for production and must be overridden.
func (c *Config) LoadDefaults() {
	c.GRPCAddr = ":50051"
	c.HTTPAddr = ":8080"

	c.DBDialect = "sqlite"
	c.DatabaseDSN = "fileguard.db"

	c.BlobBackend = "db"
	c.S3Region = "us-east-1"
	c.S3Bucket = "vault"
	c.S3Prefix = "blobs"

	c.AllowedExtensions = []string{".txt", ".pdf", ".docx"}
	c.MaxFileSize = 10 << 20
	c.SandboxDir = "uploads"
	c.QuarantineDir = "quarantine"
	c.InboxDir = "inbox"

	c.KDFAlgorithm = "pbkdf2-sha256"
	c.KDFIterations = 100_000
	c.KeyValidity = 90 * 24 * time.Hour

	c.AuditMaxEntries = 1000
	c.MetadataRetentionDays = 90
	c.MaintenanceInterval = time.Hour
	c.PendingTimeout = 15 * time.Minute
	c.BatchWorkers = 4

	c.ClamdAddr = "127.0.0.1:3310"
	c.ScanTimeout = 30 * time.Second

	c.SMTPPort = 587
	c.NotifyTimeout = 10 * time.Second

	c.SecretKey = "secretKey"
	c.AccessTokenValidity = 15 * time.Minute
	c.UploadRateLimit = 5

	c.LogBackend = "slog"
	c.LogLevel = "info"
}

// SMTPEnabled reports whether mail notifications are configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPServer != "" && c.SenderEmail != ""
}

// LoadConfig builds a Config from args (without the program name) and the
// process environment, then validates it.
func LoadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigPath(args); path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
