package appMiddleware

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingAuthHeader   = errors.New("authorization header required")
	ErrMalformedAuthHeader = errors.New("authorization header format must be Bearer {token}")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	headerParts := strings.Fields(authHeader)
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
		return "", ErrMalformedAuthHeader
	}
	return headerParts[1], nil
}
