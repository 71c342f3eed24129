package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-book-catalog/app/db"
	"github.com/FACorreiaa/go-book-catalog/app/observability/metrics"
	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the credential store.
type AuthRepo interface {
	// CreateUser persists a new user whose Password already holds the digest.
	// Returns api.ErrDuplicateEmail or api.ErrDuplicateUsername on conflicts.
	CreateUser(ctx context.Context, user *types.UserAuth) error
	// GetUserByEmail expects an already lower-cased email.
	// Returns api.ErrNotFound if no user has it.
	GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error)
	// GetUserByID returns api.ErrNotFound if the user does not exist.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error)
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool database.Querier
}

func NewPostgresAuthRepo(pgpool database.Querier, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, user *types.UserAuth) (err error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "postgres", "insert_user", start, err) }(time.Now())

	l := r.logger.With(slog.String("method", "CreateUser"), slog.String("email", user.Email))

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = r.pgpool.Exec(ctx, query, user.ID, user.Username, user.Email, user.Password, user.CreatedAt)
	if err != nil {
		span.RecordError(err)
		switch {
		case database.IsUniqueViolation(err, "users_email_key"):
			l.WarnContext(ctx, "Email already registered")
			span.SetStatus(codes.Error, "Duplicate email")
			return api.ErrDuplicateEmail
		case database.IsUniqueViolation(err, "users_username_key"):
			l.WarnContext(ctx, "Username already taken", slog.String("username", user.Username))
			span.SetStatus(codes.Error, "Duplicate username")
			return api.ErrDuplicateUsername
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.SetStatus(codes.Error, "DB insert failed")
		return fmt.Errorf("database error creating user: %w", err)
	}

	span.SetStatus(codes.Ok, "User created")
	return nil
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE email = $1`
	return r.scanUser(ctx, span, "select_user_by_email", query, email)
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = $1`
	return r.scanUser(ctx, span, "select_user_by_id", query, userID)
}

func (r *PostgresAuthRepo) scanUser(ctx context.Context, span trace.Span, op, query string, arg any) (*types.UserAuth, error) {
	start := time.Now()
	var user types.UserAuth
	err := r.pgpool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveQuery(ctx, "postgres", op, start, nil)
		span.SetStatus(codes.Error, "User not found")
		return nil, api.ErrNotFound
	}
	metrics.ObserveQuery(ctx, "postgres", op, start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query user", slog.String("operation", op), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "User found")
	return &user, nil
}
