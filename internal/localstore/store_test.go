package localstore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("", discard())
	require.NoError(t, err)
	return s
}

func sampleUser(email, username string) *types.UserAuth {
	return &types.UserAuth{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Password:  "$2a$04$digest",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func sampleBook(owner uuid.UUID) *types.Book {
	ts := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return &types.Book{
		ID:            uuid.New(),
		Title:         "Dune",
		Author:        "Frank Herbert",
		Description:   "Spice",
		Category:      "Science-Fiction",
		PublishedYear: 1965,
		UserID:        owner,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(newMemStore(t), discard())

	ann := sampleUser("ann@example.com", "ann")
	require.NoError(t, repo.CreateUser(ctx, ann))

	t.Run("lookup by email and id", func(t *testing.T) {
		got, err := repo.GetUserByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.Equal(t, ann.ID, got.ID)
		assert.Equal(t, ann.Password, got.Password)

		got, err = repo.GetUserByID(ctx, ann.ID)
		require.NoError(t, err)
		assert.Equal(t, "ann", got.Username)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := repo.GetUserByEmail(ctx, "bob@example.com")
		assert.ErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("duplicates", func(t *testing.T) {
		assert.ErrorIs(t, repo.CreateUser(ctx, sampleUser("ann@example.com", "other")), api.ErrDuplicateEmail)
		assert.ErrorIs(t, repo.CreateUser(ctx, sampleUser("other@example.com", "ann")), api.ErrDuplicateUsername)
	})

	t.Run("email reported before username across records", func(t *testing.T) {
		require.NoError(t, repo.CreateUser(ctx, sampleUser("cat@example.com", "cat")))
		// "ann" owns the username and "cat" the email; ann is stored first.
		assert.ErrorIs(t, repo.CreateUser(ctx, sampleUser("cat@example.com", "ann")), api.ErrDuplicateEmail)
	})

	t.Run("delete", func(t *testing.T) {
		bob := sampleUser("bob@example.com", "bob")
		require.NoError(t, repo.CreateUser(ctx, bob))
		require.NoError(t, repo.DeleteUser(ctx, bob.ID))
		_, err := repo.GetUserByID(ctx, bob.ID)
		assert.ErrorIs(t, err, api.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteUser(ctx, bob.ID), api.ErrNotFound)
	})
}

func TestBookRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepo(newMemStore(t), discard())
	owner, other := uuid.New(), uuid.New()

	b := sampleBook(owner)
	require.NoError(t, repo.CreateBook(ctx, b))
	require.NoError(t, repo.CreateBook(ctx, sampleBook(other)))

	t.Run("list is scoped to owner", func(t *testing.T) {
		books, err := repo.ListBooks(ctx, owner)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, b.ID, books[0].ID)

		none, err := repo.ListBooks(ctx, uuid.New())
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("update keeps created timestamp", func(t *testing.T) {
		changed := *b
		changed.Title = "Dune Messiah"
		changed.CreatedAt = time.Time{}
		changed.UpdatedAt = b.UpdatedAt.Add(time.Hour)
		require.NoError(t, repo.UpdateBook(ctx, &changed))

		got, err := repo.GetBook(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dune Messiah", got.Title)
		assert.True(t, got.CreatedAt.Equal(b.CreatedAt))
	})

	t.Run("update by wrong owner is not found", func(t *testing.T) {
		changed := *b
		changed.UserID = other
		assert.ErrorIs(t, repo.UpdateBook(ctx, &changed), api.ErrNotFound)
	})

	t.Run("delete twice", func(t *testing.T) {
		require.NoError(t, repo.DeleteBook(ctx, owner, b.ID))
		assert.ErrorIs(t, repo.DeleteBook(ctx, owner, b.ID), api.ErrNotFound)
		_, err := repo.GetBook(ctx, b.ID)
		assert.ErrorIs(t, err, api.ErrNotFound)
	})
}

func TestStore_CorruptBlobsFailFast(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		blob string
		call func(s *Store) error
	}{
		{
			name: "books not an array",
			key:  KeyBooks,
			blob: `{"id": "x"}`,
			call: func(s *Store) error { _, err := NewBookRepo(s, discard()).ListBooks(ctx, uuid.New()); return err },
		},
		{
			name: "book with unknown field",
			key:  KeyBooks,
			blob: `[{"id":"` + uuid.NewString() + `","user_id":"` + uuid.NewString() + `","rating":5}]`,
			call: func(s *Store) error { _, err := NewBookRepo(s, discard()).ListBooks(ctx, uuid.New()); return err },
		},
		{
			name: "book without owner",
			key:  KeyBooks,
			blob: `[{"id":"` + uuid.NewString() + `"}]`,
			call: func(s *Store) error { _, err := NewBookRepo(s, discard()).GetBook(ctx, uuid.New()); return err },
		},
		{
			name: "user missing digest",
			key:  KeyUsers,
			blob: `[{"id":"` + uuid.NewString() + `","email":"a@b.co"}]`,
			call: func(s *Store) error { _, err := NewUserRepo(s, discard()).GetUserByEmail(ctx, "a@b.co"); return err },
		},
		{
			name: "session without token",
			key:  KeySession,
			blob: `{"token":""}`,
			call: func(s *Store) error { _, err := s.LoadSession(); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore(t)
			s.putRaw(tt.key, []byte(tt.blob))
			assert.ErrorIs(t, tt.call(s), api.ErrCorruptRecord)
		})
	}
}

func TestStore_Session(t *testing.T) {
	s := newMemStore(t)

	got, err := s.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, got)

	session := types.Session{Token: "tok", ExpiresAt: time.Now().UTC().Truncate(time.Second), User: types.UserView{ID: uuid.New(), Email: "a@b.co"}}
	require.NoError(t, s.SaveSession(session))

	got, err = s.LoadSession()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, session.User.ID, got.User.ID)

	require.NoError(t, s.ClearSession())
	got, err = s.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_PersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.gob")

	s, err := New(path, discard())
	require.NoError(t, err)
	owner := uuid.New()
	b := sampleBook(owner)
	require.NoError(t, NewBookRepo(s, discard()).CreateBook(ctx, b))

	reopened, err := New(path, discard())
	require.NoError(t, err)
	books, err := NewBookRepo(reopened, discard()).ListBooks(ctx, owner)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, b.ID, books[0].ID)
}

// blockSnapshot puts a directory where the snapshot file goes so the next
// persist fails. The returned func lifts the block.
func blockSnapshot(t *testing.T, s *Store) func() {
	t.Helper()
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		require.NoError(t, err)
	}
	require.NoError(t, os.MkdirAll(s.path, 0o755))
	return func() { require.NoError(t, os.Remove(s.path)) }
}

func newFileStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "catalog.gob"), discard())
	require.NoError(t, err)
	return s
}

func TestStore_FailedPersistLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()

	t.Run("create book", func(t *testing.T) {
		s := newFileStore(t)
		repo := NewBookRepo(s, discard())
		owner := uuid.New()

		unblock := blockSnapshot(t, s)
		assert.Error(t, repo.CreateBook(ctx, sampleBook(owner)))
		books, err := repo.ListBooks(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, books)

		unblock()
		require.NoError(t, repo.CreateBook(ctx, sampleBook(owner)))
		books, err = repo.ListBooks(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, books, 1)
	})

	t.Run("update and delete keep the stored book", func(t *testing.T) {
		s := newFileStore(t)
		repo := NewBookRepo(s, discard())
		owner := uuid.New()
		b := sampleBook(owner)
		require.NoError(t, repo.CreateBook(ctx, b))

		blockSnapshot(t, s)
		changed := *b
		changed.Title = "Children of Dune"
		assert.Error(t, repo.UpdateBook(ctx, &changed))
		assert.Error(t, repo.DeleteBook(ctx, owner, b.ID))

		got, err := repo.GetBook(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dune", got.Title)
	})

	t.Run("create user can be retried", func(t *testing.T) {
		s := newFileStore(t)
		repo := NewUserRepo(s, discard())

		unblock := blockSnapshot(t, s)
		assert.Error(t, repo.CreateUser(ctx, sampleUser("dan@example.com", "dan")))
		_, err := repo.GetUserByEmail(ctx, "dan@example.com")
		assert.ErrorIs(t, err, api.ErrNotFound)

		unblock()
		assert.NoError(t, repo.CreateUser(ctx, sampleUser("dan@example.com", "dan")))
	})

	t.Run("clear session", func(t *testing.T) {
		s := newFileStore(t)
		require.NoError(t, s.SaveSession(types.Session{Token: "tok"}))

		blockSnapshot(t, s)
		assert.Error(t, s.ClearSession())
		got, err := s.LoadSession()
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "tok", got.Token)
	})
}

func TestStore_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := NewBookRepo(newMemStore(t), discard())
	owner := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.CreateBook(ctx, sampleBook(owner)))
		}()
	}
	wg.Wait()

	books, err := repo.ListBooks(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, books, 20)
}
