package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

func TestValidationError(t *testing.T) {
	v := &ValidationError{}
	assert.NoError(t, v.OrNil())

	v.Add("title", "required")
	v.Add("isbn", "must have 10 or 13 digits")

	err := v.OrNil()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, fmt.Errorf("create: %w", err), ErrValidation)
	assert.True(t, v.Has("isbn"))
	assert.False(t, v.Has("author"))
	assert.Equal(t, "validation failed: title: required; isbn: must have 10 or 13 digits", err.Error())
}

func TestHandleServiceError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	invalid := &ValidationError{}
	invalid.Add("email", "invalid")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"validation", invalid, http.StatusBadRequest, "Validation failed"},
		{"malformed body", &BodyError{Reason: "body must not be empty"}, http.StatusBadRequest, "body must not be empty"},
		{"duplicate email", fmt.Errorf("create: %w", ErrDuplicateEmail), http.StatusConflict, "Email is already registered"},
		{"duplicate username", ErrDuplicateUsername, http.StatusConflict, "Username is already taken"},
		{"bad credentials", ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"bad token", fmt.Errorf("%w: expired", ErrInvalidToken), http.StatusUnauthorized, "Authentication required"},
		{"deleted user", ErrUserNotFound, http.StatusUnauthorized, "Authentication required"},
		{"not found", ErrNotFound, http.StatusNotFound, "Book not found"},
		{"forbidden looks like not found", ErrForbidden, http.StatusNotFound, "Book not found"},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), logger, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantError, body["error"])
			assert.NotContains(t, rec.Body.String(), "disk on fire")
		})
	}

	t.Run("validation lists fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), logger, invalid)
		assert.Contains(t, rec.Body.String(), `"field":"email"`)
	})
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"ok", `{"title":"Dune"}`, ""},
		{"empty", ``, "body must not be empty"},
		{"unknown field", `{"title":"Dune","rating":5}`, `body contains unknown key "rating"`},
		{"wrong type", `{"title":5}`, `incorrect JSON type for field "title"`},
		{"trailing data", `{"title":"Dune"}{"title":"Emma"}`, "single JSON value"},
		{"malformed", `{"title":`, "badly-formed JSON"},
		{"syntax", `{"title" "Dune"}`, "badly-formed JSON (at character"},
		{"too large", `{"title":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, "must not be larger than"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := DecodeJSONBody(httptest.NewRecorder(), r, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Dune", dst.Title)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrMalformedBody)
		})
	}
}

func TestDecodeJSONBody_RejectionIsBadRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Dune","rating":5}`))
	var dst struct {
		Title string `json:"title"`
	}
	err := DecodeJSONBody(httptest.NewRecorder(), r, &dst)
	require.Error(t, err)

	rec := httptest.NewRecorder()
	HandleServiceError(rec, r, slog.New(slog.NewTextHandler(io.Discard, nil)), err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body types.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, `body contains unknown key "rating"`, body.Error)
}

func TestWriteJSONResponse_NoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONResponse(rec, httptest.NewRequest(http.MethodDelete, "/", nil), http.StatusNoContent, map[string]string{"ignored": "yes"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
