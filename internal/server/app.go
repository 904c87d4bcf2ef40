// Package server initializes and runs the application: it opens the
// database, runs migrations, wires the storage backend and services, and
// starts the HTTP server with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/postboard/internal/server/rest"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/dmitrijs2005/postboard/internal/server/storage"
)

const dbPingTimeout = 15 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rest   *rest.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := dbx.PingBackoff(context.Background(), db, dbPingTimeout); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	blobs, presigner, err := newStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	userService := services.NewUserService(db, rm, cfg)
	postService := services.NewPostService(db, rm, blobs)
	commentService := services.NewCommentService(db, rm)

	restServer := rest.NewServer(cfg, logger, userService, postService, commentService, blobs, presigner)

	return &App{config: cfg, logger: logger, db: db, rest: restServer}, nil
}

func newStorage(cfg *config.Config) (storage.BlobStore, storage.Presigner, error) {
	if cfg.StorageBackend == config.StorageS3 {
		s3store, err := storage.NewS3Store(context.Background(), cfg)
		if err != nil {
			return nil, nil, err
		}
		return s3store, s3store, nil
	}
	disk, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}
	return disk, nil, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	if err := app.rest.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
