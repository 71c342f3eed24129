package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/FACorreiaa/go-book-catalog/internal/client/state"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

// Session owns the client's authentication state.
type Session struct {
	backend Backend
	logger  *slog.Logger

	mu    sync.Mutex
	state state.AuthState
}

func NewSession(backend Backend, logger *slog.Logger) *Session {
	return &Session{backend: backend, logger: logger}
}

func (s *Session) State() state.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) dispatch(a state.Action) state.AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.ReduceAuth(s.state, a)
	return s.state
}

func (s *Session) settle(ctx context.Context, op string, session *types.Session, err error) error {
	if err != nil {
		s.logger.WarnContext(ctx, "Authentication failed", slog.String("op", op), slog.Any("error", err))
		s.dispatch(state.AuthFailure{Err: err})
		return err
	}
	s.dispatch(state.AuthSuccess{Session: *session})
	return nil
}

func (s *Session) Register(ctx context.Context, req types.RegisterRequest) error {
	s.dispatch(state.AuthRequest{})
	session, err := s.backend.Register(ctx, req)
	return s.settle(ctx, "register", session, err)
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	s.dispatch(state.AuthRequest{})
	session, err := s.backend.Login(ctx, email, password)
	return s.settle(ctx, "login", session, err)
}

// Restore resumes a persisted session. It reports whether one was found.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	s.dispatch(state.AuthRequest{})
	session, err := s.backend.Restore(ctx)
	if err != nil {
		return false, s.settle(ctx, "restore", nil, err)
	}
	if session == nil {
		s.dispatch(state.LoggedOut{})
		return false, nil
	}
	return true, s.settle(ctx, "restore", session, nil)
}

func (s *Session) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		s.dispatch(state.AuthFailure{Err: err})
		return err
	}
	s.dispatch(state.LoggedOut{})
	return nil
}
