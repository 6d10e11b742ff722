package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, []string{".txt", ".pdf", ".docx"}, c.AllowedExtensions)
	assert.Equal(t, int64(10<<20), c.MaxFileSize)
	assert.Equal(t, 100_000, c.KDFIterations)
	assert.Equal(t, 90*24*time.Hour, c.KeyValidity)
	assert.Equal(t, 1000, c.AuditMaxEntries)
	assert.Equal(t, 90, c.MetadataRetentionDays)
	assert.Equal(t, 30*time.Second, c.ScanTimeout)
	assert.Equal(t, 10*time.Second, c.NotifyTimeout)
	assert.Equal(t, "quarantine", c.QuarantineDir)
	assert.Equal(t, "uploads", c.SandboxDir)
	assert.Equal(t, "inbox", c.InboxDir)
	assert.Equal(t, "fileguard.db", c.DatabaseDSN)
	assert.Equal(t, "127.0.0.1:3310", c.ClamdAddr)
	assert.False(t, c.SMTPEnabled())
	require.NoError(t, c.Validate())
}

func TestLoad_NoSourcesEqualsDefaults(t *testing.T) {
	got, err := load(nil, noEnv)
	require.NoError(t, err)
	if diff := cmp.Diff(defaults(), got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileguard.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"grpc_addr": ":6000",
		"http_addr": ":6001",
		"database_dsn": "from-json.db",
		"scan_timeout": "5s",
		"key_validity": "720h",
		"metadata_retention_days": 0,
		"allowed_extensions": [".txt"],
		"log_json": true
	}`), 0o600))

	env := envMap(map[string]string{
		EnvDatabaseDSN:        "from-env.db",
		EnvSMTPServer:         "smtp.example.com",
		EnvSMTPPort:           "2525",
		EnvSenderEmail:        "guard@example.com",
		EnvRecipientEmail:     "admin@example.com",
		EnvEncryptionPassword: "hunter22",
	})

	got, err := load([]string{"-c", path, "-g", ":7000", "process", "file.txt"}, env)
	require.NoError(t, err)

	want := defaults()
	want.GRPCAddr = ":7000"
	want.HTTPAddr = ":6001"
	want.DatabaseDSN = "from-env.db"
	want.ScanTimeout = 5 * time.Second
	want.KeyValidity = 720 * time.Hour
	want.MetadataRetentionDays = 0
	want.AllowedExtensions = []string{".txt"}
	want.LogJSON = true
	want.SMTPServer = "smtp.example.com"
	want.SMTPPort = 2525
	want.SenderEmail = "guard@example.com"
	want.RecipientEmail = "admin@example.com"
	want.EncryptionPassword = "hunter22"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got.SMTPEnabled())
}

func TestLoad_EnvParsing(t *testing.T) {
	got, err := load(nil, envMap(map[string]string{
		EnvAllowedExtensions: "TXT, .md ,",
		EnvMaxFileSize:       "2048",
		EnvKDFIterations:     "5000",
		EnvScanTimeout:       "2s",
		EnvLogJSON:           "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{".txt", ".md"}, got.AllowedExtensions)
	assert.Equal(t, int64(2048), got.MaxFileSize)
	assert.Equal(t, 5000, got.KDFIterations)
	assert.Equal(t, 2*time.Second, got.ScanTimeout)
	assert.True(t, got.LogJSON)

	for _, key := range []string{EnvMaxFileSize, EnvKDFIterations, EnvSMTPPort, EnvScanTimeout, EnvLogJSON} {
		_, err := load(nil, envMap(map[string]string{key: "not-a-number"}))
		assert.Error(t, err, key)
	}
}

func TestLoad_Flags(t *testing.T) {
	got, err := load([]string{"-k", "postgres", "-d", "postgres://u:p@db/fg", "-m", "100", "-r", "50", "-l", "debug", "--limit", "3"}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "postgres", got.DBDialect)
	assert.Equal(t, "postgres://u:p@db/fg", got.DatabaseDSN)
	assert.Equal(t, int64(100), got.MaxFileSize)
	assert.Equal(t, 50, got.AuditMaxEntries)
	assert.Equal(t, "debug", got.LogLevel)

	_, err = load([]string{"-m", "lots"}, noEnv)
	assert.Error(t, err)
}

func TestLoad_JSONErrors(t *testing.T) {
	_, err := load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")}, noEnv)
	assert.ErrorContains(t, err, "failed to read config")

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = load([]string{"-c", path}, noEnv)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidate(t *testing.T) {
	c := defaults()
	c.DBDialect = "oracle"
	c.MaxFileSize = 0
	c.AllowedExtensions = []string{"txt"}
	c.SecretKey = "short"
	c.RecipientEmail = "not-an-email"
	c.BlobBackend = "s3"
	c.S3Bucket = ""

	err := c.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "oneof=sqlite postgres", ve.Fields["DBDialect"])
	assert.Equal(t, "gt=0", ve.Fields["MaxFileSize"])
	assert.Equal(t, "startswith=.", ve.Fields["AllowedExtensions[0]"])
	assert.Equal(t, "min=8", ve.Fields["SecretKey"])
	assert.Equal(t, "email", ve.Fields["RecipientEmail"])
	assert.Equal(t, "required_if=BlobBackend s3", ve.Fields["S3Bucket"])
	assert.Contains(t, err.Error(), "invalid config: ")
}

func TestValidate_KDFWorkFactor(t *testing.T) {
	c := defaults()
	c.KDFAlgorithm = "argon2id"

	err := c.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{"KDFIterations": "argon2id_lte=16"}, ve.Fields)

	c.KDFIterations = 3
	assert.NoError(t, c.Validate())

	c.KDFAlgorithm = "pbkdf2-sha256"
	c.KDFIterations = 100_000
	assert.NoError(t, c.Validate())
}
