// Package client talks to a tandem server over HTTP and websockets. It is a
// thin layer: every method maps to one endpoint and returns the decoded rows.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/dukerupert/tandem/internal/model"
)

const conflictCode = "23505"

// ErrNotAuthenticated is returned by calls that need a session when none is held.
var ErrNotAuthenticated = errors.New("not signed in")

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// IsConflict reports whether err is a unique-constraint violation.
func IsConflict(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Code == conflictCode || e.Status == http.StatusConflict)
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithToken starts the client with an access token from an earlier session.
func WithToken(token string) Option {
	return func(cl *Client) {
		cl.token = token
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Authenticated reports whether the client holds an access token.
func (c *Client) Authenticated() bool {
	return c.Token() != ""
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, authed bool, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		token := c.Token()
		if token == "" {
			return nil, ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends a JSON request and decodes a JSON answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, authed, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &Error{Status: resp.StatusCode}
	var eb errorBody
	if json.Unmarshal(b, &eb) == nil && eb.Error != "" {
		e.Message = eb.Error
		e.Code = eb.Code
	} else {
		e.Message = strings.TrimSpace(string(b))
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp creates an account and adopts its session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*model.AuthSession, error) {
	var sess model.AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", false, credentials{email, password}, &sess); err != nil {
		return nil, err
	}
	c.SetToken(sess.AccessToken)
	return &sess, nil
}

// SignIn exchanges email and password for a session and adopts it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.AuthSession, error) {
	var sess model.AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", false, credentials{email, password}, &sess); err != nil {
		return nil, err
	}
	c.SetToken(sess.AccessToken)
	return &sess, nil
}

// SignOut ends the server session. The local token is dropped even when the
// server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	if !c.Authenticated() {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", true, nil, nil)
	c.SetToken("")
	return err
}

func (c *Client) User(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", true, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdatePassword(ctx context.Context, password string) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPut, "/auth/v1/user", true, map[string]string{"password": password}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
