package book

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

var _ BookRepo = (*PostgresBookRepo)(nil)

// BookRepo is the book store. Ownership is enforced by the service; the store
// only scopes writes to (id, owner) so a stale check cannot touch another
// user's row.
type BookRepo interface {
	ListBooks(ctx context.Context, userID uuid.UUID) ([]types.Book, error)
	CreateBook(ctx context.Context, book *types.Book) error
	// GetBook returns api.ErrNotFound if no book has bookID, whoever owns it.
	GetBook(ctx context.Context, bookID uuid.UUID) (*types.Book, error)
	// UpdateBook overwrites the mutable fields and updated_at of an existing row.
	UpdateBook(ctx context.Context, book *types.Book) error
	DeleteBook(ctx context.Context, userID, bookID uuid.UUID) error
}

type PostgresBookRepo struct {
	logger *slog.Logger
	pgpool database.Querier
}

func NewPostgresBookRepo(pgpool database.Querier, logger *slog.Logger) *PostgresBookRepo {
	return &PostgresBookRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const bookColumns = `id, user_id, title, author, cover, description, category, isbn, published_year, created_at, updated_at`

func scanBook(row pgx.Row, b *types.Book) error {
	return row.Scan(
		&b.ID, &b.UserID, &b.Title, &b.Author, &b.Cover, &b.Description,
		&b.Category, &b.ISBN, &b.PublishedYear, &b.CreatedAt, &b.UpdatedAt,
	)
}

func startSpan(ctx context.Context, name, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", "books"),
	)
	return otel.Tracer("BookRepo").Start(ctx, name, trace.WithAttributes(attrs...))
}

func (r *PostgresBookRepo) ListBooks(ctx context.Context, userID uuid.UUID) (books []types.Book, err error) {
	ctx, span := startSpan(ctx, "ListBooks", "SELECT", attribute.String("user.id", userID.String()))
	defer span.End()
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "postgres", "list_books", start, err) }(time.Now())

	l := r.logger.With(slog.String("method", "ListBooks"), slog.String("userID", userID.String()))

	query := `SELECT ` + bookColumns + ` FROM books WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query books", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing books: %w", err)
	}
	defer rows.Close()

	books = []types.Book{}
	for rows.Next() {
		var b types.Book
		if err = scanBook(rows, &b); err != nil {
			l.ErrorContext(ctx, "Failed to scan book row", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Scan failed")
			return nil, fmt.Errorf("database error scanning book: %w", err)
		}
		books = append(books, b)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("database error iterating books: %w", err)
	}

	span.SetAttributes(attribute.Int("books.count", len(books)))
	span.SetStatus(codes.Ok, "Books listed")
	return books, nil
}

func (r *PostgresBookRepo) CreateBook(ctx context.Context, b *types.Book) (err error) {
	ctx, span := startSpan(ctx, "CreateBook", "INSERT", attribute.String("user.id", b.UserID.String()))
	defer span.End()
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "postgres", "insert_book", start, err) }(time.Now())

	query := `INSERT INTO books (` + bookColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.pgpool.Exec(ctx, query,
		b.ID, b.UserID, b.Title, b.Author, b.Cover, b.Description,
		b.Category, b.ISBN, b.PublishedYear, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert book", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		if database.IsUniqueViolation(err, "") {
			return fmt.Errorf("book id collision: %w", api.ErrConflict)
		}
		return fmt.Errorf("database error creating book: %w", err)
	}

	span.SetStatus(codes.Ok, "Book created")
	return nil
}

func (r *PostgresBookRepo) GetBook(ctx context.Context, bookID uuid.UUID) (*types.Book, error) {
	ctx, span := startSpan(ctx, "GetBook", "SELECT", attribute.String("book.id", bookID.String()))
	defer span.End()
	start := time.Now()

	var b types.Book
	err := scanBook(r.pgpool.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, bookID), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveQuery(ctx, "postgres", "select_book", start, nil)
		span.SetStatus(codes.Error, "Book not found")
		return nil, api.ErrNotFound
	}
	metrics.ObserveQuery(ctx, "postgres", "select_book", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to fetch book", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching book: %w", err)
	}

	span.SetStatus(codes.Ok, "Book fetched")
	return &b, nil
}

func (r *PostgresBookRepo) UpdateBook(ctx context.Context, b *types.Book) (err error) {
	ctx, span := startSpan(ctx, "UpdateBook", "UPDATE", attribute.String("book.id", b.ID.String()))
	defer span.End()
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "postgres", "update_book", start, err) }(time.Now())

	query := `
		UPDATE books
		SET title = $3, author = $4, cover = $5, description = $6, category = $7,
		    isbn = $8, published_year = $9, updated_at = $10
		WHERE id = $1 AND user_id = $2`
	tag, err := r.pgpool.Exec(ctx, query,
		b.ID, b.UserID, b.Title, b.Author, b.Cover, b.Description,
		b.Category, b.ISBN, b.PublishedYear, b.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update book", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return fmt.Errorf("database error updating book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Book not found")
		return api.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Book updated")
	return nil
}

func (r *PostgresBookRepo) DeleteBook(ctx context.Context, userID, bookID uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "DeleteBook", "DELETE",
		attribute.String("book.id", bookID.String()),
		attribute.String("user.id", userID.String()),
	)
	defer span.End()
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "postgres", "delete_book", start, err) }(time.Now())

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM books WHERE id = $1 AND user_id = $2`, bookID, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete book", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("database error deleting book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Book not found")
		return api.ErrNotFound
	}

	span.SetStatus(codes.Ok, "Book deleted")
	return nil
}
