package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-book-catalog/config"
)

func TestNewDatabaseConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("builds a postgresql url", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Repositories.Postgres = config.PostgresConfig{
			Host: "db", Port: "5432", Username: "u", Password: "p", DB: "books",
		}

		dbCfg, err := NewDatabaseConfig(cfg, logger)
		require.NoError(t, err)
		assert.Equal(t, "postgresql://u:p@db:5432/books?sslmode=disable&timezone=utc", dbCfg.ConnectionURL)
	})

	t.Run("missing host", func(t *testing.T) {
		_, err := NewDatabaseConfig(&config.Config{}, logger)
		assert.Error(t, err)
	})
}

func TestRunMigrations_RejectsScheme(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := RunMigrations("mysql://localhost/books", logger)
	assert.ErrorContains(t, err, "invalid database URL scheme")
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	wrapped := fmt.Errorf("insert: %w", pgErr)

	assert.True(t, IsUniqueViolation(wrapped, "users_email_key"))
	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.False(t, IsUniqueViolation(wrapped, "users_username_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}
