package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserAuth represents the core user entity in the domain.
type UserAuth struct {
	ID        uuid.UUID `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"` // Unique identifier (UUID).
	Username  string    `json:"username" example:"johndoe"`                        // Unique username.
	Email     string    `json:"email" example:"john.doe@example.com"`              // Unique, lower-cased email used for login.
	Password  string    `json:"-"`                                                 // Hashed password (never exposed).
	CreatedAt time.Time `json:"created_at"`                                        // Timestamp when the user was created.
}

// UserView is the public projection of a user. It has no password field at all.
type UserView struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// View drops the password digest.
func (u *UserAuth) View() UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Session is the result of a successful register or login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}

// LoginRequest represents the expected JSON body for user login.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"password123"`
}

// RegisterRequest represents the expected JSON body for user registration.
type RegisterRequest struct {
	Username string `json:"username" example:"testuser"`
	Email    string `json:"email" example:"newuser@example.com"`
	Password string `json:"password" example:"Str0ngP@ss!"` // min length 8
}

// Claims represents the custom claims included in the JWT access token.
type Claims struct {
	UserID               string `json:"uid"`           // Custom claim for User ID.
	Username             string `json:"usr,omitempty"` // Custom claim for Username.
	Email                string `json:"eml"`           // Custom claim for Email.
	jwt.RegisteredClaims        // Embed standard claims (ExpiresAt, IssuedAt, Subject, etc.).
}
