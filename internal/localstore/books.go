package localstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-book-catalog/app/observability/metrics"
	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

func validateBookRecord(b types.Book) error {
	switch {
	case b.ID == uuid.Nil:
		return fmt.Errorf("%w: book without id", api.ErrCorruptRecord)
	case b.UserID == uuid.Nil:
		return fmt.Errorf("%w: book %s has no owner", api.ErrCorruptRecord, b.ID)
	case b.UpdatedAt.Before(b.CreatedAt):
		return fmt.Errorf("%w: book %s updated before it was created", api.ErrCorruptRecord, b.ID)
	}
	return nil
}

func (s *Store) loadBooks() ([]types.Book, error) {
	var books []types.Book
	if err := s.read(KeyBooks, &books); err != nil {
		return nil, err
	}
	for _, b := range books {
		if err := validateBookRecord(b); err != nil {
			return nil, err
		}
	}
	return books, nil
}

// BookRepo is the book store over the "books" blob.
type BookRepo struct {
	store  *Store
	logger *slog.Logger
}

func NewBookRepo(store *Store, logger *slog.Logger) *BookRepo {
	return &BookRepo{store: store, logger: logger}
}

func (r *BookRepo) ListBooks(ctx context.Context, userID uuid.UUID) (out []types.Book, err error) {
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "local", "list_books", start, err) }(time.Now())

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	books, err := r.store.loadBooks()
	if err != nil {
		return nil, err
	}
	out = []types.Book{}
	for _, b := range books {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *BookRepo) CreateBook(ctx context.Context, book *types.Book) (err error) {
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "local", "insert_book", start, err) }(time.Now())

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	books, err := r.store.loadBooks()
	if err != nil {
		return err
	}
	for _, b := range books {
		if b.ID == book.ID {
			return fmt.Errorf("book id collision: %w", api.ErrConflict)
		}
	}
	return r.store.write(KeyBooks, append(books, *book))
}

func (r *BookRepo) GetBook(ctx context.Context, bookID uuid.UUID) (book *types.Book, err error) {
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "local", "select_book", start, err) }(time.Now())

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	books, err := r.store.loadBooks()
	if err != nil {
		return nil, err
	}
	for i := range books {
		if books[i].ID == bookID {
			b := books[i]
			return &b, nil
		}
	}
	return nil, api.ErrNotFound
}

func (r *BookRepo) UpdateBook(ctx context.Context, book *types.Book) (err error) {
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "local", "update_book", start, err) }(time.Now())

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	books, err := r.store.loadBooks()
	if err != nil {
		return err
	}
	for i, b := range books {
		if b.ID == book.ID && b.UserID == book.UserID {
			updated := *book
			updated.CreatedAt = b.CreatedAt
			books[i] = updated
			return r.store.write(KeyBooks, books)
		}
	}
	return api.ErrNotFound
}

func (r *BookRepo) DeleteBook(ctx context.Context, userID, bookID uuid.UUID) (err error) {
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "local", "delete_book", start, err) }(time.Now())

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	books, err := r.store.loadBooks()
	if err != nil {
		return err
	}
	for i, b := range books {
		if b.ID == bookID && b.UserID == userID {
			books = append(books[:i], books[i+1:]...)
			if err = r.store.write(KeyBooks, books); err != nil {
				return err
			}
			r.logger.DebugContext(ctx, "Book removed", slog.String("bookID", bookID.String()))
			return nil
		}
	}
	return api.ErrNotFound
}
