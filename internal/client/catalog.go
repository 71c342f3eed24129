package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-book-catalog/internal/client/state"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

// Catalog owns the collection state of one signed-in user. Every backend call
// is bracketed by a Request action and a Success or Failure action.
type Catalog struct {
	backend Backend
	logger  *slog.Logger

	mu    sync.Mutex
	state state.State
}

func NewCatalog(backend Backend, logger *slog.Logger) *Catalog {
	return &Catalog{backend: backend, logger: logger}
}

// State returns a snapshot of the current collection state.
func (c *Catalog) State() state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Catalog) dispatch(a state.Action) state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state.Reduce(c.state, a)
	return c.state
}

func (c *Catalog) fail(ctx context.Context, op string, err error) error {
	c.logger.WarnContext(ctx, "Catalog operation failed", slog.String("op", op), slog.Any("error", err))
	c.dispatch(state.Failure{Err: err})
	return err
}

// Load replaces the collection with the backend's list.
func (c *Catalog) Load(ctx context.Context) error {
	c.dispatch(state.Request{})
	books, err := c.backend.ListBooks(ctx)
	if err != nil {
		return c.fail(ctx, "load", err)
	}
	c.dispatch(state.FetchSuccess{Books: books})
	return nil
}

func (c *Catalog) Create(ctx context.Context, input types.BookInput) (*types.Book, error) {
	c.dispatch(state.Request{})
	book, err := c.backend.CreateBook(ctx, input)
	if err != nil {
		return nil, c.fail(ctx, "create", err)
	}
	c.dispatch(state.CreateSuccess{Book: *book})
	return book, nil
}

func (c *Catalog) Update(ctx context.Context, id uuid.UUID, params types.UpdateBookParams) (*types.Book, error) {
	c.dispatch(state.Request{})
	book, err := c.backend.UpdateBook(ctx, id, params)
	if err != nil {
		return nil, c.fail(ctx, "update", err)
	}
	c.dispatch(state.UpdateSuccess{Book: *book})
	return book, nil
}

func (c *Catalog) Delete(ctx context.Context, id uuid.UUID) error {
	c.dispatch(state.Request{})
	if err := c.backend.DeleteBook(ctx, id); err != nil {
		return c.fail(ctx, "delete", err)
	}
	c.dispatch(state.DeleteSuccess{ID: id})
	return nil
}

func (c *Catalog) SetSearchTerm(term string) state.State {
	return c.dispatch(state.SetSearchTerm{Term: term})
}

func (c *Catalog) SetCategoryFilter(category string) state.State {
	return c.dispatch(state.SetCategoryFilter{Category: category})
}

// Select marks a book as the one being viewed or edited. nil clears it.
func (c *Catalog) Select(book *types.Book) state.State {
	return c.dispatch(state.Select{Book: book})
}

// Categories returns the distinct categories present in the whole collection.
func (c *Catalog) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return state.Categories(c.state.All)
}

// Reset drops the collection, e.g. after logout.
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.state = state.State{}
	c.mu.Unlock()
}
