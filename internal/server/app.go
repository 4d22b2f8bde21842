// Package server wires the record server together: configuration, database
// and repositories, services, the HTTP API and the notification hub, plus
// graceful shutdown on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskvault/taskvault/internal/logging"
	"github.com/taskvault/taskvault/internal/server/api"
	"github.com/taskvault/taskvault/internal/server/config"
	"github.com/taskvault/taskvault/internal/server/hub"
	"github.com/taskvault/taskvault/internal/server/serverdb"
	"github.com/taskvault/taskvault/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	repos  *serverdb.Repositories
	hub    *hub.Hub
	server *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var repos *serverdb.Repositories
	if cfg.InMemory {
		repos = serverdb.InitInMemory()
	} else {
		var err error
		repos, err = serverdb.InitDatabase(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
	}

	userSvc := services.NewUserService(repos.Users, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	recordSvc := services.NewRecordService(repos.Records)
	h := hub.New(logger)

	router := api.NewRouter(api.NewHandler(userSvc, recordSvc, h, []byte(cfg.SecretKey), logger))

	return &App{
		config: cfg,
		logger: logger,
		repos:  repos,
		hub:    h,
		server: &http.Server{Addr: cfg.RunAddress, Handler: router},
	}, nil
}

// Run serves until ctx is cancelled or an OS signal arrives, then shuts
// down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "record server listening", "address", app.config.RunAddress)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")
	app.hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if app.repos.DB != nil {
		if err := app.repos.DB.Close(); err != nil {
			return fmt.Errorf("closing db: %w", err)
		}
	}
	return nil
}
