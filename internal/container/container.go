package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-book-catalog/app/db"
	"github.com/FACorreiaa/go-book-catalog/config"
	"github.com/FACorreiaa/go-book-catalog/internal/api/auth"
	"github.com/FACorreiaa/go-book-catalog/internal/api/book"
	"github.com/FACorreiaa/go-book-catalog/internal/localstore"
)

var (
	_ auth.AuthRepo = (*auth.PostgresAuthRepo)(nil)
	_ auth.AuthRepo = (*localstore.UserRepo)(nil)
	_ book.BookRepo = (*book.PostgresBookRepo)(nil)
	_ book.BookRepo = (*localstore.BookRepo)(nil)
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	Store       *localstore.Store
	AuthService auth.AuthService
	BookService book.BookService
	AuthHandler *auth.AuthHandler
	BookHandler *book.BookHandler
}

// NewContainer opens the configured storage driver and wires the services on top of it.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	var (
		authRepo auth.AuthRepo
		bookRepo book.BookRepo
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pool, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		authRepo = auth.NewPostgresAuthRepo(pool, logger)
		bookRepo = book.NewPostgresBookRepo(pool, logger)
	case config.StorageDriverLocal:
		store, err := localstore.New(cfg.Storage.LocalPath, logger)
		if err != nil {
			logger.Error("Failed to open local store", slog.Any("error", err))
			return nil, err
		}
		c.Store = store
		authRepo = localstore.NewUserRepo(store, logger)
		bookRepo = localstore.NewBookRepo(store, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	logger.Info("Storage initialized", slog.String("driver", cfg.Storage.Driver))

	authService := auth.NewAuthService(authRepo, cfg, logger)
	bookService := book.NewBookService(bookRepo, logger)

	c.AuthService = authService
	c.BookService = bookService
	c.AuthHandler = auth.NewAuthHandler(authService, logger)
	c.BookHandler = book.NewBookHandler(bookService, logger)
	return c, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	// Run migrations *before* initializing the main pool
	if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}
	if !database.WaitForDB(ctx, pool, logger) {
		pool.Close()
		return nil, fmt.Errorf("database not ready after retries")
	}
	return pool, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
		c.Logger.Info("Database connection pool closed")
	}
}
