// Package server wires the Weight Log backend together: configuration, key
// files, database provisioning, services, the HTTP API and the gRPC health
// service. It also handles graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/weightlog/weightlog/internal/common"
	"github.com/weightlog/weightlog/internal/logging"
	"github.com/weightlog/weightlog/internal/server/config"
	"github.com/weightlog/weightlog/internal/server/database"
	"github.com/weightlog/weightlog/internal/server/httpapi"
	"github.com/weightlog/weightlog/internal/server/keys"
	"github.com/weightlog/weightlog/internal/server/repositories/repomanager"
	"github.com/weightlog/weightlog/internal/server/services"

	gs "github.com/weightlog/weightlog/internal/server/grpc"
)

const (
	healthCheckInterval = 10 * time.Second
	shutdownTimeout     = 10 * time.Second
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	userService  *services.UserService
	entryService *services.EntryService
}

// NewLogger builds the process logger described by cfg.
func NewLogger(cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stdout, level, cfg.JSONLogs), nil
}

// Open loads the key files, provisions the database when needed and
// returns an open handle together with the repository manager.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (*sql.DB, keys.Keys, repomanager.RepositoryManager, error) {
	k, err := keys.Load(cfg.KeysDir)
	if err != nil {
		return nil, keys.Keys{}, nil, fmt.Errorf("key init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	db, err := database.Setup(ctx, cfg, k, rm, logger)
	if err != nil {
		return nil, keys.Keys{}, nil, fmt.Errorf("db init error: %w", err)
	}

	return db, k, rm, nil
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, k, rm, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	us := services.NewUserService(db, rm, cfg, k, logger)
	es := services.NewEntryService(db, rm, logger)

	return &App{config: cfg, logger: logger, db: db, repomanager: rm, userService: us, entryService: es}, nil
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

// checkHealth verifies that the database answers and carries the schema marker.
func (app *App) checkHealth(ctx context.Context) error {
	if err := app.db.PingContext(ctx); err != nil {
		return err
	}
	_, err := app.repomanager.Schema(app.db).Get(ctx, common.SchemaName)
	return err
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.logger, app.checkHealth, healthCheckInterval)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	api := httpapi.NewServer(app.config, app.userService, app.entryService, app.logger)
	srv := &http.Server{Addr: app.config.EndpointAddrHTTP, Handler: api.Handler()}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

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

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
