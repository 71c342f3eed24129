package localstore

import (
	"fmt"
	"time"

	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

type sessionRecord struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      types.UserView `json:"user"`
}

// SaveSession replaces the "auth" blob.
func (s *Store) SaveSession(session types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(KeySession, sessionRecord{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      session.User,
	})
}

// LoadSession returns the stored session, or nil when there is none.
func (s *Store) LoadSession() (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *sessionRecord
	if err := s.read(KeySession, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if rec.Token == "" {
		return nil, fmt.Errorf("%w: session without token", api.ErrCorruptRecord)
	}
	return &types.Session{Token: rec.Token, ExpiresAt: rec.ExpiresAt, User: rec.User}, nil
}

// ClearSession removes the "auth" blob.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(KeySession)
}
