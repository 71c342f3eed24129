package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-book-catalog/app/observability/metrics"
	"github.com/FACorreiaa/go-book-catalog/config"
	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the longest input bcrypt will hash.
	MaxPasswordBytes = 72
	DefaultHashCost  = 12
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	// Register creates the user and signs it in.
	Register(ctx context.Context, req types.RegisterRequest) (*types.Session, error)
	// Login fails with api.ErrInvalidCredentials for both unknown emails and wrong passwords.
	Login(ctx context.Context, email, password string) (*types.Session, error)
	// VerifyToken returns api.ErrInvalidToken or api.ErrUserNotFound on failure.
	VerifyToken(ctx context.Context, token string) (*types.UserAuth, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error)
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	repo     AuthRepo
	jwtCfg   config.JWTConfig
	now      func() time.Time
	hashCost int
}

func NewAuthService(repo AuthRepo, cfg *config.Config, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		repo:     repo,
		jwtCfg:   cfg.JWT,
		now:      time.Now,
		hashCost: DefaultHashCost,
	}
}

// WithClock replaces the wall clock used for token timestamps and user creation.
func (s *AuthServiceImpl) WithClock(now func() time.Time) *AuthServiceImpl {
	s.now = now
	return s
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AuthServiceImpl) WithHashCost(cost int) *AuthServiceImpl {
	s.hashCost = cost
	return s
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration reports every invalid field of req at once.
func ValidateRegistration(req types.RegisterRequest) error {
	v := &api.ValidationError{}
	if strings.TrimSpace(req.Username) == "" {
		v.Add("username", "is required")
	}
	switch email := NormalizeEmail(req.Email); {
	case email == "":
		v.Add("email", "is required")
	case !emailPattern.MatchString(email):
		v.Add("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		v.Add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	} else if len(req.Password) > MaxPasswordBytes {
		v.Add("password", fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes))
	}
	return v.OrNil()
}

func (s *AuthServiceImpl) Register(ctx context.Context, req types.RegisterRequest) (session *types.Session, err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("user.username", req.Username),
	))
	defer span.End()

	start := s.now()
	defer func() {
		m := metrics.Get()
		attrs := metric.WithAttributes(attribute.String("outcome", metrics.Outcome(err)))
		m.RegisterRequestsTotal.Add(ctx, 1, attrs)
		m.RegisterDurationSeconds.Record(ctx, s.now().Sub(start).Seconds(), attrs)
	}()

	l := s.logger.With(slog.String("method", "Register"))

	if err = ValidateRegistration(req); err != nil {
		l.InfoContext(ctx, "Registration rejected", slog.Any("error", err))
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	email := NormalizeEmail(req.Email)
	if _, lookupErr := s.repo.GetUserByEmail(ctx, email); lookupErr == nil {
		l.WarnContext(ctx, "Email already registered")
		span.SetStatus(codes.Error, "Duplicate email")
		return nil, api.ErrDuplicateEmail
	} else if !errors.Is(lookupErr, api.ErrNotFound) {
		err = fmt.Errorf("error checking existing email: %w", lookupErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hashing failed")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.UserAuth{
		ID:        uuid.New(),
		Username:  strings.TrimSpace(req.Username),
		Email:     email,
		Password:  string(digest),
		CreatedAt: s.now().UTC(),
	}
	if err = s.repo.CreateUser(ctx, user); err != nil {
		l.WarnContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create user failed")
		return nil, err
	}

	session, err = s.issueSession(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token signing failed")
		return nil, err
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return session, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (session *types.Session, err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()
	defer func() {
		metrics.Get().LoginRequestsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", metrics.Outcome(err)),
		))
	}()

	l := s.logger.With(slog.String("method", "Login"))

	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			l.InfoContext(ctx, "Login failed")
			span.SetStatus(codes.Error, "Invalid credentials")
			return nil, api.ErrInvalidCredentials
		}
		l.ErrorContext(ctx, "Failed to look up user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, fmt.Errorf("error fetching user for login: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		l.InfoContext(ctx, "Login failed")
		span.SetStatus(codes.Error, "Invalid credentials")
		return nil, api.ErrInvalidCredentials
	}

	session, err = s.issueSession(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token signing failed")
		return nil, err
	}

	l.InfoContext(ctx, "User logged in", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "Logged in")
	return session, nil
}

func (s *AuthServiceImpl) VerifyToken(ctx context.Context, token string) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "VerifyToken")
	defer span.End()

	l := s.logger.With(slog.String("method", "VerifyToken"))

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.jwtCfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.jwtCfg.Issuer))
	}
	if s.jwtCfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.jwtCfg.Audience))
	}

	claims := &types.Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.SecretKey), nil
	}, opts...)
	if err != nil {
		l.DebugContext(ctx, "Token rejected", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid token")
		return nil, fmt.Errorf("%w: %v", api.ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid subject")
		return nil, fmt.Errorf("%w: bad user id claim", api.ErrInvalidToken)
	}
	span.SetAttributes(attribute.String("user.id", userID.String()))

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			l.InfoContext(ctx, "Token user no longer exists", slog.String("userID", userID.String()))
			span.SetStatus(codes.Error, "User not found")
			return nil, api.ErrUserNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, fmt.Errorf("error resolving token user: %w", err)
	}

	span.SetStatus(codes.Ok, "Token verified")
	return user, nil
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "GetUserByID", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			span.SetStatus(codes.Error, "User not found")
			return nil, api.ErrUserNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	span.SetStatus(codes.Ok, "User fetched")
	return user, nil
}

func (s *AuthServiceImpl) issueSession(user *types.UserAuth) (*types.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtCfg.AccessTokenTTL)

	claims := types.Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.jwtCfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.jwtCfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &types.Session{
		Token:     signed,
		ExpiresAt: expiresAt.UTC(),
		User:      user.View(),
	}, nil
}
