// Package client talks to the catalog API and keeps the client-side state
// in step with it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

// Backend is what the dispatchers need from a catalog. Client implements it
// over HTTP; the local package implements it in-process.
type Backend interface {
	Register(ctx context.Context, req types.RegisterRequest) (*types.Session, error)
	Login(ctx context.Context, email, password string) (*types.Session, error)
	// Restore returns the still-valid session from a previous run, or nil.
	Restore(ctx context.Context) (*types.Session, error)
	Logout(ctx context.Context) error

	ListBooks(ctx context.Context) ([]types.Book, error)
	CreateBook(ctx context.Context, input types.BookInput) (*types.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, params types.UpdateBookParams) (*types.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
}

var _ Backend = (*Client)(nil)

// Client is the catalog API client.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a new API client. token may be empty until Login or Register.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Register creates an account and adopts its token.
func (c *Client) Register(ctx context.Context, req types.RegisterRequest) (*types.Session, error) {
	var session types.Session
	if err := c.post(ctx, "/api/v1/auth/register", req, &session); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	c.setToken(session.Token)
	return &session, nil
}

// Login exchanges credentials for a token and adopts it.
func (c *Client) Login(ctx context.Context, email, password string) (*types.Session, error) {
	var session types.Session
	body := types.LoginRequest{Email: email, Password: password}
	if err := c.post(ctx, "/api/v1/auth/login", body, &session); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	c.setToken(session.Token)
	return &session, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*types.UserView, error) {
	var user types.UserView
	if err := c.get(ctx, "/api/v1/auth/me", &user); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return &user, nil
}

// Restore checks the token the client was created with. A rejected token is dropped.
func (c *Client) Restore(ctx context.Context) (*types.Session, error) {
	token := c.Token()
	if token == "" {
		return nil, nil
	}
	user, err := c.Me(ctx)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			c.setToken("")
			return nil, nil
		}
		return nil, err
	}
	return &types.Session{Token: token, User: *user}, nil
}

// Logout forgets the token. Tokens are stateless so the server is not involved.
func (c *Client) Logout(context.Context) error {
	c.setToken("")
	return nil
}

// requireToken returns ErrNotAuthenticated when no session is held.
func (c *Client) requireToken(op string) error {
	if c.Token() == "" {
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}
	return nil
}

func (c *Client) ListBooks(ctx context.Context) ([]types.Book, error) {
	if err := c.requireToken("client.ListBooks"); err != nil {
		return nil, err
	}
	var views []types.BookView
	if err := c.get(ctx, "/api/v1/books", &views); err != nil {
		return nil, fmt.Errorf("client.ListBooks: %w", err)
	}
	books := make([]types.Book, 0, len(views))
	for _, v := range views {
		books = append(books, v.Book)
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, id uuid.UUID) (*types.Book, error) {
	if err := c.requireToken("client.GetBook"); err != nil {
		return nil, err
	}
	var view types.BookView
	if err := c.get(ctx, "/api/v1/books/"+url.PathEscape(id.String()), &view); err != nil {
		return nil, fmt.Errorf("client.GetBook: %w", err)
	}
	return &view.Book, nil
}

func (c *Client) CreateBook(ctx context.Context, input types.BookInput) (*types.Book, error) {
	if err := c.requireToken("client.CreateBook"); err != nil {
		return nil, err
	}
	var view types.BookView
	if err := c.post(ctx, "/api/v1/books", input, &view); err != nil {
		return nil, fmt.Errorf("client.CreateBook: %w", err)
	}
	return &view.Book, nil
}

func (c *Client) UpdateBook(ctx context.Context, id uuid.UUID, params types.UpdateBookParams) (*types.Book, error) {
	if err := c.requireToken("client.UpdateBook"); err != nil {
		return nil, err
	}
	var view types.BookView
	if err := c.doRequest(ctx, http.MethodPut, "/api/v1/books/"+url.PathEscape(id.String()), params, &view); err != nil {
		return nil, fmt.Errorf("client.UpdateBook: %w", err)
	}
	return &view.Book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id uuid.UUID) error {
	if err := c.requireToken("client.DeleteBook"); err != nil {
		return err
	}
	if err := c.doRequest(ctx, http.MethodDelete, "/api/v1/books/"+url.PathEscape(id.String()), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteBook: %w", err)
	}
	return nil
}

// Categories returns the categories the server accepts.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	if err := c.requireToken("client.Categories"); err != nil {
		return nil, err
	}
	var cats []string
	if err := c.get(ctx, "/api/v1/books/categories", &cats); err != nil {
		return nil, fmt.Errorf("client.Categories: %w", err)
	}
	return cats, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
