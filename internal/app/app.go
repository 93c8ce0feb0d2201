// Package app initializes and runs the contact manager server.
// It configures logging, storage, authentication and routing, optionally starts the
// gRPC endpoint, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/contactkeeper/internal/auth"
	"github.com/patric-chuzhbe/contactkeeper/internal/config"
	"github.com/patric-chuzhbe/contactkeeper/internal/db/jsondb"
	"github.com/patric-chuzhbe/contactkeeper/internal/db/memorystorage"
	"github.com/patric-chuzhbe/contactkeeper/internal/db/mongodb"
	"github.com/patric-chuzhbe/contactkeeper/internal/db/postgresdb"
	"github.com/patric-chuzhbe/contactkeeper/internal/db/storage"
	"github.com/patric-chuzhbe/contactkeeper/internal/grpcserver"
	"github.com/patric-chuzhbe/contactkeeper/internal/ipchecker"
	"github.com/patric-chuzhbe/contactkeeper/internal/logger"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
	"github.com/patric-chuzhbe/contactkeeper/internal/router"
	"github.com/patric-chuzhbe/contactkeeper/internal/service"
	"github.com/patric-chuzhbe/contactkeeper/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// App holds the configuration, storage and servers of one contactkeeper process.
type App struct {
	cfg          *config.Config
	db           storage.Storage
	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the router, and the gRPC server when an address is configured
func New(configOptions ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	tokens := auth.NewTokenService([]byte(app.cfg.JWTSecret), app.cfg.TokenTTL)
	authGate := auth.New(tokens)
	contactService := service.New(app.db, tokens, validation.New())

	app.httpServer = &http.Server{
		Addr:    app.cfg.RunAddr,
		Handler: router.New(authGate, ipChecker, contactService),
	}

	if app.cfg.GRPCAddr != "" {
		app.grpcServer, app.grpcListener, err = grpcserver.NewGRPCServer(
			app.cfg.GRPCAddr,
			grpcserver.NewContactKeeperHandler(contactService),
			authGate,
		)
		if err != nil {
			return nil, errors.Join(err, app.db.Close())
		}
	}

	return app, nil
}

// Run serves HTTP, and gRPC when enabled, until SIGINT or SIGTERM arrives or a server
// fails. Storage is closed on the way out.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}

		return nil
	})

	if a.grpcServer != nil {
		group.Go(func() error {
			logger.Log.Infoln("grpc server running", "GRPCAddr", a.grpcListener.Addr().String())

			if err := a.grpcServer.Serve(a.grpcListener); err != nil {
				return fmt.Errorf("grpc server error: %w", err)
			}

			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")

		if a.grpcServer != nil {
			a.grpcServer.GracefulStop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return nil
	})

	return errors.Join(group.Wait(), a.db.Close())
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	switch {
	case strings.HasPrefix(cfg.DatabaseURI, "mongodb://"),
		strings.HasPrefix(cfg.DatabaseURI, "mongodb+srv://"):
		return models.StorageTypeMongo

	case strings.HasPrefix(cfg.DatabaseURI, "postgres://"),
		strings.HasPrefix(cfg.DatabaseURI, "postgresql://"):
		return models.StorageTypePostgresql

	case strings.HasPrefix(cfg.DatabaseURI, "file://"):
		return models.StorageTypeFile

	case strings.HasPrefix(cfg.DatabaseURI, "memory://"):
		return models.StorageTypeMemory
	}

	return models.StorageTypeUnknown
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeMongo:
		return mongodb.New(
			context.Background(),
			cfg.DatabaseURI,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseURI,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return jsondb.New(strings.TrimPrefix(cfg.DatabaseURI, "file://"))

	case models.StorageTypeMemory:
		return memorystorage.New()
	}

	return nil, errors.New("unknown storage type")
}
