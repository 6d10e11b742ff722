// Package server initializes and runs the FileGuard service: the gRPC and
// HTTP adapters in front of the pipeline, plus background maintenance.
package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/fileguard/internal/config"
	"github.com/dmitrijs2005/fileguard/internal/logging"
	"github.com/dmitrijs2005/fileguard/internal/server/api"
	"github.com/dmitrijs2005/fileguard/internal/storage"

	gs "github.com/dmitrijs2005/fileguard/internal/server/grpc"
)

var ErrNoEncryptionPassword = errors.New("encryption password is not configured")

type App struct {
	config     *config.Config
	logger     logging.Logger
	components *Components
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(logging.Config{Backend: c.LogBackend, Level: c.LogLevel, JSON: c.LogJSON})
	if err != nil {
		return nil, err
	}

	if c.EncryptionPassword == "" {
		return nil, ErrNoEncryptionPassword
	}

	comp, err := NewComponents(ctx, c, logger, []byte(c.EncryptionPassword))
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, components: comp}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(gs.Options{
		Address:   app.config.GRPCAddr,
		SecretKey: app.config.SecretKey,
		InboxDir:  app.config.InboxDir,
		MaxSize:   app.config.MaxFileSize,
	}, app.logger, app.components.Pipeline, app.components.Storage)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	h := api.NewHandler(api.HandlerConfig{
		InboxDir:  app.config.InboxDir,
		MaxSize:   app.config.MaxFileSize,
		Recipient: app.config.RecipientEmail,
	}, app.components.Pipeline, app.components.Storage, app.components.Notifier, app.logger)

	e := api.SetupRouter(h, api.RouterConfig{
		SecretKey:       app.config.SecretKey,
		UploadRateLimit: app.config.UploadRateLimit,
		MaxSize:         app.config.MaxFileSize,
	}, app.logger)

	if err := api.NewHTTPServer(app.config.HTTPAddr, e, app.logger).Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.components.Scanner.Ping(ctx); err != nil {
		app.logger.Warn(ctx, "malware scanner is not reachable, uploads will fail until it is", "addr", app.config.ClamdAddr, "error", err)
	}

	m := storage.NewMaintenance(app.components.Storage, app.config.MaintenanceInterval,
		app.config.MetadataRetentionDays, app.config.PendingTimeout, app.logger)
	m.Start(ctx)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	m.Wait()

	if err := app.components.Close(); err != nil {
		app.logger.Error(context.Background(), "failed to close database", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
