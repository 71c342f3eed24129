package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-book-catalog/app/observability/metrics"
	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

var _ BookService = (*BookServiceImpl)(nil)

// BookService is ownership-checked CRUD over a BookRepo.
// Get, Update and Delete return api.ErrNotFound for unknown ids and
// api.ErrForbidden for books owned by someone else.
type BookService interface {
	ListBooks(ctx context.Context, userID uuid.UUID) ([]types.Book, error)
	CreateBook(ctx context.Context, userID uuid.UUID, input types.BookInput) (*types.Book, error)
	GetBook(ctx context.Context, userID, bookID uuid.UUID) (*types.Book, error)
	UpdateBook(ctx context.Context, userID, bookID uuid.UUID, params types.UpdateBookParams) (*types.Book, error)
	DeleteBook(ctx context.Context, userID, bookID uuid.UUID) error
	Categories() []string
}

type BookServiceImpl struct {
	logger *slog.Logger
	repo   BookRepo
	now    func() time.Time
}

func NewBookService(repo BookRepo, logger *slog.Logger) *BookServiceImpl {
	return &BookServiceImpl{
		logger: logger,
		repo:   repo,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock used for timestamps and year validation.
func (s *BookServiceImpl) WithClock(now func() time.Time) *BookServiceImpl {
	s.now = now
	return s
}

func (s *BookServiceImpl) Categories() []string {
	out := make([]string, len(types.Categories))
	copy(out, types.Categories)
	return out
}

func (s *BookServiceImpl) ListBooks(ctx context.Context, userID uuid.UUID) (books []types.Book, err error) {
	ctx, span := otel.Tracer("BookService").Start(ctx, "ListBooks", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	defer func() { metrics.CountBookOperation(ctx, "list", err) }()

	l := s.logger.With(slog.String("method", "ListBooks"), slog.String("userID", userID.String()))

	books, err = s.repo.ListBooks(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list books", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list books")
		return nil, fmt.Errorf("error listing books: %w", err)
	}

	l.DebugContext(ctx, "Books listed", slog.Int("count", len(books)))
	span.SetStatus(codes.Ok, "Books listed")
	return books, nil
}

func (s *BookServiceImpl) CreateBook(ctx context.Context, userID uuid.UUID, input types.BookInput) (book *types.Book, err error) {
	ctx, span := otel.Tracer("BookService").Start(ctx, "CreateBook", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	defer func() { metrics.CountBookOperation(ctx, "create", err) }()

	l := s.logger.With(slog.String("method", "CreateBook"), slog.String("userID", userID.String()))

	now := s.now().UTC()
	book = &types.Book{
		ID:            uuid.New(),
		Title:         input.Title,
		Author:        input.Author,
		Cover:         input.Cover,
		Description:   input.Description,
		Category:      input.Category,
		ISBN:          input.ISBN,
		PublishedYear: input.PublishedYear,
		UserID:        userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	normalize(book)
	if err = ValidateBook(book, now); err != nil {
		l.InfoContext(ctx, "Book rejected", slog.Any("error", err))
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	if err = s.repo.CreateBook(ctx, book); err != nil {
		l.ErrorContext(ctx, "Failed to create book", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create book")
		return nil, fmt.Errorf("error creating book: %w", err)
	}

	l.InfoContext(ctx, "Book created", slog.String("bookID", book.ID.String()))
	span.SetStatus(codes.Ok, "Book created")
	return book, nil
}

// owned loads bookID and checks it belongs to userID.
func (s *BookServiceImpl) owned(ctx context.Context, userID, bookID uuid.UUID) (*types.Book, error) {
	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching book: %w", err)
	}
	if book.UserID != userID {
		return nil, api.ErrForbidden
	}
	return book, nil
}

func (s *BookServiceImpl) GetBook(ctx context.Context, userID, bookID uuid.UUID) (book *types.Book, err error) {
	ctx, span := otel.Tracer("BookService").Start(ctx, "GetBook", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("book.id", bookID.String()),
	))
	defer span.End()
	defer func() { metrics.CountBookOperation(ctx, "get", err) }()

	book, err = s.owned(ctx, userID, bookID)
	if err != nil {
		s.logger.InfoContext(ctx, "Book not accessible",
			slog.String("method", "GetBook"),
			slog.String("bookID", bookID.String()),
			slog.Any("error", err))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "Book fetched")
	return book, nil
}

func (s *BookServiceImpl) UpdateBook(ctx context.Context, userID, bookID uuid.UUID, params types.UpdateBookParams) (book *types.Book, err error) {
	ctx, span := otel.Tracer("BookService").Start(ctx, "UpdateBook", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("book.id", bookID.String()),
	))
	defer span.End()
	defer func() { metrics.CountBookOperation(ctx, "update", err) }()

	l := s.logger.With(slog.String("method", "UpdateBook"), slog.String("bookID", bookID.String()))

	current, err := s.owned(ctx, userID, bookID)
	if err != nil {
		l.InfoContext(ctx, "Book not accessible", slog.Any("error", err))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.now().UTC()
	next := *current
	applyUpdate(&next, params)
	if err = ValidateBook(&next, now); err != nil {
		l.InfoContext(ctx, "Update rejected", slog.Any("error", err))
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	next.UpdatedAt = now
	if next.UpdatedAt.Before(next.CreatedAt) {
		next.UpdatedAt = next.CreatedAt
	}

	if err = s.repo.UpdateBook(ctx, &next); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			span.SetStatus(codes.Error, "Book vanished during update")
			return nil, api.ErrNotFound
		}
		l.ErrorContext(ctx, "Failed to update book", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update book")
		return nil, fmt.Errorf("error updating book: %w", err)
	}

	l.InfoContext(ctx, "Book updated")
	span.SetStatus(codes.Ok, "Book updated")
	return &next, nil
}

func (s *BookServiceImpl) DeleteBook(ctx context.Context, userID, bookID uuid.UUID) (err error) {
	ctx, span := otel.Tracer("BookService").Start(ctx, "DeleteBook", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("book.id", bookID.String()),
	))
	defer span.End()
	defer func() { metrics.CountBookOperation(ctx, "delete", err) }()

	l := s.logger.With(slog.String("method", "DeleteBook"), slog.String("bookID", bookID.String()))

	if _, err = s.owned(ctx, userID, bookID); err != nil {
		l.InfoContext(ctx, "Book not accessible", slog.Any("error", err))
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err = s.repo.DeleteBook(ctx, userID, bookID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			span.SetStatus(codes.Error, "Book already gone")
			return api.ErrNotFound
		}
		l.ErrorContext(ctx, "Failed to delete book", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete book")
		return fmt.Errorf("error deleting book: %w", err)
	}

	l.InfoContext(ctx, "Book deleted")
	span.SetStatus(codes.Ok, "Book deleted")
	return nil
}
