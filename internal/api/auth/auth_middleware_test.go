package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyToken(ctx context.Context, token string) (*types.UserAuth, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	user := &types.UserAuth{ID: uuid.New(), Email: "a@b.co"}

	var seenUserID string
	protected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name      string
		header    string
		verifyErr error
		wantCode  int
	}{
		{name: "missing header", header: "", wantCode: http.StatusUnauthorized},
		{name: "not bearer", header: "Token abc", wantCode: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", verifyErr: fmt.Errorf("%w: expired", api.ErrInvalidToken), wantCode: http.StatusUnauthorized},
		{name: "user deleted", header: "Bearer bad", verifyErr: api.ErrUserNotFound, wantCode: http.StatusUnauthorized},
		{name: "valid", header: "Bearer good", wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUserID = ""
			verifier := new(MockVerifier)
			if tt.verifyErr != nil {
				verifier.On("VerifyToken", mock.Anything, "bad").Return(nil, tt.verifyErr).Once()
			} else {
				verifier.On("VerifyToken", mock.Anything, "good").Return(user, nil).Maybe()
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(logger, verifier)(protected).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Empty(t, seenUserID, "protected handler must not run")
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "Authentication required", body["error"])
			} else {
				assert.Equal(t, user.ID.String(), seenUserID)
			}
			verifier.AssertExpectations(t)
		})
	}
}

func TestAuthenticate_VerifiesEveryRequest(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := new(MockVerifier)
	user := &types.UserAuth{ID: uuid.New()}
	verifier.On("VerifyToken", mock.Anything, "tok").Return(user, nil).Twice()

	h := Authenticate(logger, verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	verifier.AssertNumberOfCalls(t, "VerifyToken", 2)
}
