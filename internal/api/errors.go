package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

var (
	ErrNotFound        = errors.New("requested item not found")
	ErrForbidden       = errors.New("action forbidden")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrValidation      = errors.New("validation failed")
	ErrCorruptRecord   = errors.New("stored record has an unexpected shape")
	ErrUnauthenticated = errors.New("authentication required")
	ErrMalformedBody   = errors.New("malformed request body")

	// Auth specific. The last three collapse to 401 at the HTTP boundary.
	ErrDuplicateEmail     = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrDuplicateUsername  = fmt.Errorf("username already taken: %w", ErrConflict)
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("token user no longer exists")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError enumerates every failing field of a request, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a failing field.
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns nil when no field failed so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// BodyError is a request body the decoder rejected. Reason is safe to echo.
type BodyError struct {
	Reason string
}

func (e *BodyError) Error() string { return e.Reason }

func (e *BodyError) Is(target error) bool { return target == ErrMalformedBody }

func malformed(format string, args ...any) error {
	return &BodyError{Reason: fmt.Sprintf(format, args...)}
}

// decodeError describes a json.Decoder failure in terms a client can act on.
func decodeError(err error) error {
	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		invalidErr  *json.InvalidUnmarshalError
		tooLargeErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &invalidErr):
		panic(fmt.Errorf("decode target must be a non-nil pointer: %w", err))
	case errors.As(err, &syntaxErr):
		return malformed("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return malformed("body contains badly-formed JSON")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return malformed("body contains incorrect JSON type for field %q (wanted %s)", typeErr.Field, typeErr.Type)
	case errors.As(err, &typeErr):
		return malformed("body contains incorrect JSON type (at character %d)", typeErr.Offset)
	case errors.Is(err, io.EOF):
		return malformed("body must not be empty")
	case errors.As(err, &tooLargeErr):
		return malformed("body must not be larger than %d bytes", tooLargeErr.Limit)
	}
	// encoding/json has no typed error for unknown fields.
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return malformed("body contains unknown key %q", strings.Trim(field, `"`))
	}
	return malformed("body could not be decoded: %v", err)
}

// HandleServiceError maps a service error onto a user-facing response.
// NotFound and Forbidden both become 404 so other users' records are not
// revealed, and every token failure becomes the same 401.
func HandleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		vErr    *ValidationError
		bodyErr *BodyError
	)
	switch {
	case errors.As(err, &bodyErr):
		ErrorResponse(w, r, http.StatusBadRequest, bodyErr.Reason)
	case errors.As(err, &vErr):
		reqID := middleware.GetReqID(r.Context())
		WriteJSONResponse(w, r, http.StatusBadRequest, map[string]interface{}{
			"success":    false,
			"error":      "Validation failed",
			"fields":     vErr.Fields,
			"request_id": reqID,
		})
	case errors.Is(err, ErrDuplicateEmail):
		ErrorResponse(w, r, http.StatusConflict, "Email is already registered")
	case errors.Is(err, ErrDuplicateUsername):
		ErrorResponse(w, r, http.StatusConflict, "Username is already taken")
	case errors.Is(err, ErrInvalidCredentials):
		ErrorResponse(w, r, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUserNotFound):
		ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		ErrorResponse(w, r, http.StatusNotFound, "Book not found")
	default:
		logger.ErrorContext(r.Context(), "Unexpected service failure", slog.Any("error", err))
		ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
