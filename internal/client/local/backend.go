// Package local runs the catalog in-process on top of the local blob store,
// with the same auth and book services the HTTP API uses.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-book-catalog/config"
	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/api/auth"
	"github.com/FACorreiaa/go-book-catalog/internal/api/book"
	"github.com/FACorreiaa/go-book-catalog/internal/client"
	"github.com/FACorreiaa/go-book-catalog/internal/localstore"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

var _ client.Backend = (*Backend)(nil)

type accountRemover interface {
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// Backend verifies the held token on every book call, the same way the
// HTTP session middleware does for every request.
type Backend struct {
	logger *slog.Logger
	store  *localstore.Store
	users  accountRemover
	auth   auth.AuthService
	books  book.BookService

	mu    sync.RWMutex
	token string
}

// New wires the services to store.
func New(store *localstore.Store, cfg *config.Config, logger *slog.Logger) *Backend {
	return NewWithServices(
		store,
		auth.NewAuthService(localstore.NewUserRepo(store, logger), cfg, logger),
		book.NewBookService(localstore.NewBookRepo(store, logger), logger),
		logger,
	)
}

func NewWithServices(store *localstore.Store, authService auth.AuthService, bookService book.BookService, logger *slog.Logger) *Backend {
	return &Backend{
		logger: logger.With(slog.String("component", "local_backend")),
		store:  store,
		users:  localstore.NewUserRepo(store, logger),
		auth:   authService,
		books:  bookService,
	}
}

func (b *Backend) adopt(session *types.Session) error {
	if err := b.store.SaveSession(*session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	b.mu.Lock()
	b.token = session.Token
	b.mu.Unlock()
	return nil
}

func (b *Backend) Register(ctx context.Context, req types.RegisterRequest) (*types.Session, error) {
	session, err := b.auth.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := b.adopt(session); err != nil {
		// Undo the account so a retry is not rejected as a duplicate.
		if undoErr := b.users.DeleteUser(ctx, session.User.ID); undoErr != nil {
			b.logger.ErrorContext(ctx, "Failed to undo registration", slog.Any("error", undoErr))
			return nil, errors.Join(err, undoErr)
		}
		return nil, err
	}
	return session, nil
}

func (b *Backend) Login(ctx context.Context, email, password string) (*types.Session, error) {
	session, err := b.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := b.adopt(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Restore resumes the persisted session if its token still verifies.
// A session that no longer verifies is cleared.
func (b *Backend) Restore(ctx context.Context) (*types.Session, error) {
	session, err := b.store.LoadSession()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	user, err := b.auth.VerifyToken(ctx, session.Token)
	if err != nil {
		b.logger.InfoContext(ctx, "Discarding stale session", slog.Any("error", err))
		if clearErr := b.store.ClearSession(); clearErr != nil {
			return nil, fmt.Errorf("clear session: %w", clearErr)
		}
		return nil, nil
	}

	session.User = user.View()
	b.mu.Lock()
	b.token = session.Token
	b.mu.Unlock()
	return session, nil
}

func (b *Backend) Logout(context.Context) error {
	b.mu.Lock()
	b.token = ""
	b.mu.Unlock()
	return b.store.ClearSession()
}

func (b *Backend) currentUser(ctx context.Context) (uuid.UUID, error) {
	b.mu.RLock()
	token := b.token
	b.mu.RUnlock()
	if token == "" {
		return uuid.Nil, fmt.Errorf("%w: %w", client.ErrNotAuthenticated, api.ErrUnauthenticated)
	}
	user, err := b.auth.VerifyToken(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

func (b *Backend) ListBooks(ctx context.Context) ([]types.Book, error) {
	userID, err := b.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return b.books.ListBooks(ctx, userID)
}

func (b *Backend) CreateBook(ctx context.Context, input types.BookInput) (*types.Book, error) {
	userID, err := b.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return b.books.CreateBook(ctx, userID, input)
}

func (b *Backend) UpdateBook(ctx context.Context, id uuid.UUID, params types.UpdateBookParams) (*types.Book, error) {
	userID, err := b.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return b.books.UpdateBook(ctx, userID, id, params)
}

func (b *Backend) DeleteBook(ctx context.Context, id uuid.UUID) error {
	userID, err := b.currentUser(ctx)
	if err != nil {
		return err
	}
	return b.books.DeleteBook(ctx, userID, id)
}
