package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/fileguard/internal/flagx"
)

// flagNames are the short flags owned by the config loader. Everything
// else on the command line belongs to the command tree.
var flagNames = []string{"-g", "-w", "-k", "-d", "-b", "-s", "-q", "-x", "-m", "-n", "-r", "-l"}

// parseFlags overlays short command-line flags:
//
//	-g string   gRPC bind address
//	-w string   HTTP bind address
//	-k string   database dialect (sqlite, postgres)
//	-d string   database DSN
//	-b string   blob backend (db, s3)
//	-s string   JWT HMAC secret key
//	-q string   quarantine directory
//	-x string   sandbox directory
//	-m int      max upload size in bytes
//	-n string   clamd address
//	-r int      audit log cap
//	-l string   log level
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address")
	fs.StringVar(&config.HTTPAddr, "w", config.HTTPAddr, "HTTP address")
	fs.StringVar(&config.DBDialect, "k", config.DBDialect, "database dialect")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BlobBackend, "b", config.BlobBackend, "blob backend")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.QuarantineDir, "q", config.QuarantineDir, "quarantine directory")
	fs.StringVar(&config.SandboxDir, "x", config.SandboxDir, "sandbox directory")
	fs.Int64Var(&config.MaxFileSize, "m", config.MaxFileSize, "max upload size in bytes")
	fs.StringVar(&config.ClamdAddr, "n", config.ClamdAddr, "clamd address")
	fs.IntVar(&config.AuditMaxEntries, "r", config.AuditMaxEntries, "audit log cap")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, flagNames))
}
