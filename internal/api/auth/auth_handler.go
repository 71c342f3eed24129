package auth

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

type AuthHandler struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		authService: authService,
	}
}

// Register godoc
// @Summary      Register
// @Description  Creates an account and returns a session for it.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.RegisterRequest true "New account"
// @Success      201 {object} types.Session
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      409 {object} types.Response "Email or username taken"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req types.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.HandleServiceError(w, r, l, err)
		return
	}

	session, err := h.authService.Register(ctx, req)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, session)
}

// Login godoc
// @Summary      Login
// @Description  Exchanges email and password for a bearer token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.LoginRequest true "Credentials"
// @Success      200 {object} types.Session
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      401 {object} types.Response "Invalid email or password"
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.HandleServiceError(w, r, l, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}

	session, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, session)
}

// Me godoc
// @Summary      Current user
// @Description  Returns the user the bearer token belongs to.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.UserView
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Me"))

	userIDStr, ok := GetUserIDFromContext(ctx)
	if !ok {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(ctx, "Invalid user ID format", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.authService.GetUserByID(ctx, userID)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, user.View())
}
