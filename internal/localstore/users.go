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

type userRecord struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u userRecord) validate() error {
	if u.ID == uuid.Nil || u.Email == "" || u.PasswordHash == "" {
		return fmt.Errorf("%w: user record %q is incomplete", api.ErrCorruptRecord, u.ID)
	}
	return nil
}

func (u userRecord) toUser() *types.UserAuth {
	return &types.UserAuth{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.PasswordHash,
		CreatedAt: u.CreatedAt,
	}
}

// UserRepo is the credential store over the "users" blob.
type UserRepo struct {
	store  *Store
	logger *slog.Logger
}

func NewUserRepo(store *Store, logger *slog.Logger) *UserRepo {
	return &UserRepo{store: store, logger: logger}
}

func (s *Store) loadUsers() ([]userRecord, error) {
	var users []userRecord
	if err := s.read(KeyUsers, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if err := u.validate(); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *UserRepo) CreateUser(ctx context.Context, user *types.UserAuth) (err error) {
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "local", "insert_user", start, err) }(time.Now())

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	users, err := r.store.loadUsers()
	if err != nil {
		return err
	}
	// Email wins over username when both are taken, the same order Register checks in.
	for _, u := range users {
		if u.Email == user.Email {
			return api.ErrDuplicateEmail
		}
	}
	for _, u := range users {
		if u.Username == user.Username {
			return api.ErrDuplicateUsername
		}
	}

	users = append(users, userRecord{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.Password,
		CreatedAt:    user.CreatedAt,
	})
	if err = r.store.write(KeyUsers, users); err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "User stored", slog.String("userID", user.ID.String()))
	return nil
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	return r.find(ctx, "select_user_by_email", func(u userRecord) bool { return u.Email == email })
}

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	return r.find(ctx, "select_user_by_id", func(u userRecord) bool { return u.ID == userID })
}

// DeleteUser removes a user record. Their books are left for the caller to clear.
// The local backend uses it to undo a registration whose session could not be saved.
func (r *UserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) (err error) {
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "local", "delete_user", start, err) }(time.Now())

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	users, err := r.store.loadUsers()
	if err != nil {
		return err
	}
	for i, u := range users {
		if u.ID == userID {
			users = append(users[:i], users[i+1:]...)
			return r.store.write(KeyUsers, users)
		}
	}
	return api.ErrNotFound
}

func (r *UserRepo) find(ctx context.Context, op string, match func(userRecord) bool) (user *types.UserAuth, err error) {
	defer func(start time.Time) { metrics.ObserveQuery(ctx, "local", op, start, err) }(time.Now())

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	users, err := r.store.loadUsers()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if match(u) {
			return u.toUser(), nil
		}
	}
	return nil, api.ErrNotFound
}
