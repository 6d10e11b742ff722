// Package cli is the operator command line: run files through the pipeline
// locally, inspect the audit trail, run maintenance, decrypt stored files,
// and talk to a running server.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/fileguard/internal/config"
	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/dmitrijs2005/fileguard/internal/server"
	"github.com/spf13/cobra"
)

// App carries what every command needs. Fields are swapped in tests.
type App struct {
	args          []string
	in            io.Reader
	out           io.Writer
	errOut        io.Writer
	loadConfig    func(args []string) (*config.Config, error)
	newComponents func(ctx context.Context, c *config.Config, log logging.Logger, password []byte) (*server.Components, error)
}

// NewApp builds an App for args (without the program name).
func NewApp(args []string) *App {
	return &App{
		args:          args,
		in:            os.Stdin,
		out:           os.Stdout,
		errOut:        os.Stderr,
		loadConfig:    config.LoadConfig,
		newComponents: server.NewComponents,
	}
}

// Execute runs the command tree against a.args.
func (a *App) Execute(ctx context.Context) error {
	root := a.rootCmd()
	root.SetArgs(a.args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fileguard",
		Short:         "Secure file processing pipeline",
		Long:          "Validate, scan, encrypt and store files, and operate the FileGuard metadata and audit store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// short config flags (-d, -k, ...) are read by the config loader
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	}
	root.PersistentFlags().StringP("config", "c", "", "path to JSON config file")

	root.AddCommand(
		a.processCmd(),
		a.sendCmd(),
		a.auditCmd(),
		a.archiveCmd(),
		a.integrityCmd(),
		a.reconcileCmd(),
		a.keysCmd(),
		a.decryptCmd(),
		a.sealCmd(),
		a.unsealCmd(),
		a.quarantineCmd(),
		a.tokenCmd(),
	)
	for _, cmd := range root.Commands() {
		cmd.FParseErrWhitelist = root.FParseErrWhitelist
	}
	return root
}

func (a *App) config() (*config.Config, error) {
	return a.loadConfig(a.args)
}

func (a *App) logger(c *config.Config) (logging.Logger, error) {
	return logging.NewWithWriter(logging.Config{Backend: c.LogBackend, Level: c.LogLevel, JSON: c.LogJSON}, a.errOut)
}

// open builds the components for c. password may be nil for commands that
// do not touch plaintext.
func (a *App) open(ctx context.Context, c *config.Config, password []byte) (*server.Components, error) {
	log, err := a.logger(c)
	if err != nil {
		return nil, err
	}
	return a.newComponents(ctx, c, log, password)
}

// openStore is open for commands that only read or maintain the store.
func (a *App) openStore(ctx context.Context) (*config.Config, *server.Components, error) {
	c, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	comp, err := a.open(ctx, c, nil)
	if err != nil {
		return nil, nil, err
	}
	return c, comp, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
