package state

import "github.com/FACorreiaa/go-book-catalog/internal/types"

// AuthState is the client's view of the current session.
type AuthState struct {
	User            *types.UserView
	Token           string
	IsAuthenticated bool
	Loading         bool
	Err             error
}

type (
	AuthRequest struct{}
	AuthSuccess struct{ Session types.Session }
	AuthFailure struct{ Err error }
	LoggedOut   struct{}
)

func (AuthRequest) isAction() {}
func (AuthSuccess) isAction() {}
func (AuthFailure) isAction() {}
func (LoggedOut) isAction()   {}

// ReduceAuth applies a to s. Actions that are not auth actions leave s as is.
func ReduceAuth(s AuthState, a Action) AuthState {
	switch a := a.(type) {
	case AuthRequest:
		s.Loading = true
		s.Err = nil
	case AuthSuccess:
		user := a.Session.User
		return AuthState{User: &user, Token: a.Session.Token, IsAuthenticated: true}
	case AuthFailure:
		s.Loading = false
		s.Err = a.Err
	case LoggedOut:
		return AuthState{}
	}
	return s
}
