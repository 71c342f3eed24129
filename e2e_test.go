package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/FACorreiaa/go-book-catalog/config"
	"github.com/FACorreiaa/go-book-catalog/internal/client"
	"github.com/FACorreiaa/go-book-catalog/internal/container"
	"github.com/FACorreiaa/go-book-catalog/internal/router"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

// E2ETestSuite drives complete user workflows through the real router,
// services and a file-backed local store.
type E2ETestSuite struct {
	suite.Suite
	server    *httptest.Server
	container *container.Container
	ctx       context.Context
}

func (s *E2ETestSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{SecretKey: "e2e-secret", AccessTokenTTL: time.Hour, Issuer: "e2e", Audience: "e2e-web"}
	cfg.Storage = config.StorageConfig{Driver: config.StorageDriverLocal, LocalPath: filepath.Join(s.T().TempDir(), "catalog.gob")}

	s.ctx = context.Background()
	c, err := container.NewContainer(s.ctx, cfg, logger)
	s.Require().NoError(err)
	s.container = c

	s.server = httptest.NewServer(router.SetupRouter(&router.Config{
		AuthHandler:   c.AuthHandler,
		BookHandler:   c.BookHandler,
		TokenVerifier: c.AuthService,
		Logger:        logger,
	}))
}

func (s *E2ETestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.container != nil {
		s.container.Close()
	}
}

func (s *E2ETestSuite) newUser(name string) (*client.Client, *client.Catalog) {
	c := client.New(s.server.URL, "")
	_, err := c.Register(s.ctx, types.RegisterRequest{
		Username: fmt.Sprintf("%s-%d", name, time.Now().UnixNano()),
		Email:    fmt.Sprintf("%s+%d@example.com", name, time.Now().UnixNano()),
		Password: "password123",
	})
	s.Require().NoError(err)
	return c, client.NewCatalog(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *E2ETestSuite) TestCatalogWorkflow() {
	_, catalog := s.newUser("reader")

	s.Require().NoError(catalog.Load(s.ctx))
	s.Empty(catalog.State().All)

	inputs := []types.BookInput{
		{Title: "Dune", Author: "Frank Herbert", Description: "Desert planet.", Category: "Science-Fiction", ISBN: "9780441172719", PublishedYear: 1965},
		{Title: "Emma", Author: "Jane Austen", Description: "Matchmaking.", Category: "Romance", ISBN: "0141439580", PublishedYear: 1815},
		{Title: "Rebecca", Author: "Daphne du Maurier", Description: "Manderley.", Category: "Mystery", ISBN: "0380730405", PublishedYear: 1938},
	}
	for _, in := range inputs {
		_, err := catalog.Create(s.ctx, in)
		s.Require().NoError(err)
	}
	s.Equal([]string{"Science-Fiction", "Romance", "Mystery"}, catalog.Categories())

	st := catalog.SetSearchTerm("manderley")
	s.Require().Len(st.Filtered, 1)
	s.Equal("Rebecca", st.Filtered[0].Title)

	st = catalog.SetCategoryFilter("Romance")
	s.Empty(st.Filtered)

	catalog.SetSearchTerm("")
	emma := catalog.State().Filtered[0]
	catalog.Select(&emma)

	category := "Fiction"
	_, err := catalog.Update(s.ctx, emma.ID, types.UpdateBookParams{Category: &category})
	s.Require().NoError(err)
	s.Empty(catalog.State().Filtered)
	s.Equal("Fiction", catalog.State().Selected.Category)

	s.Require().NoError(catalog.Delete(s.ctx, emma.ID))
	s.Nil(catalog.State().Selected)
	s.Len(catalog.State().All, 2)

	err = catalog.Delete(s.ctx, emma.ID)
	s.True(client.IsStatus(err, http.StatusNotFound))
	s.Len(catalog.State().All, 2)
	s.Equal(err, catalog.State().Err)
}

func (s *E2ETestSuite) TestOwnershipIsolation() {
	alice, _ := s.newUser("alice")
	bob, _ := s.newUser("bob")

	book, err := alice.CreateBook(s.ctx, types.BookInput{
		Title: "Private", Author: "Alice", Description: "Mine.", Category: "Biography", ISBN: "0306406152", PublishedYear: 2001,
	})
	s.Require().NoError(err)

	_, err = bob.GetBook(s.ctx, book.ID)
	s.True(client.IsStatus(err, http.StatusNotFound))

	books, err := bob.ListBooks(s.ctx)
	s.Require().NoError(err)
	s.Empty(books)

	got, err := alice.GetBook(s.ctx, book.ID)
	s.Require().NoError(err)
	s.Equal("Private", got.Title)
}

func (s *E2ETestSuite) TestConcurrentCreates() {
	c, _ := s.newUser("busy")

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.CreateBook(s.ctx, types.BookInput{
				Title: fmt.Sprintf("Volume %d", i), Author: "Anon", Description: "Series.",
				Category: "Other", ISBN: "0306406152", PublishedYear: 2000,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	books, err := c.ListBooks(s.ctx)
	s.Require().NoError(err)
	s.Len(books, n)
}

func (s *E2ETestSuite) TestLogoutDropsToken() {
	c, _ := s.newUser("leaver")
	s.Require().NoError(c.Logout(s.ctx))

	_, err := c.ListBooks(s.ctx)
	s.ErrorIs(err, client.ErrNotAuthenticated)
}

func TestE2E(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
