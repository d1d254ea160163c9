// Package client talks to the book server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-bookmaker/internal/api"
)

// ErrUnauthorized is returned when the server rejects the credentials or token
var ErrUnauthorized = errors.New("unauthorized")

// ErrMalformedResponse is returned when a body is not exactly one JSON object
var ErrMalformedResponse = errors.New("response is not a single JSON object")

const maxResponseBytes = 1 << 20

// Client is a book server client. The zero value is not usable; call New.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sets a bearer token obtained earlier
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL scheme: %q", u.Scheme)
	}

	// No overall timeout: generation takes as long as the model does.
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Transport: http.DefaultTransport},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a bearer token and keeps it for later calls
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out api.LoginResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/api/login", api.LoginRequest{
		Username: username,
		Password: password,
	}, &out)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if out.Error != "" {
		return fmt.Errorf("login: %s", out.Error)
	}
	if out.Token == "" {
		return fmt.Errorf("login: server returned no token")
	}
	c.token = out.Token
	return nil
}

// GeneratePDF posts a book request. Any JSON object the server answers with is
// returned as a Response, whatever the status code; only transport and
// decoding failures are errors.
func (c *Client) GeneratePDF(ctx context.Context, req api.BookRequest) (api.Response, error) {
	var out api.Response
	if _, err := c.doJSON(ctx, http.MethodPost, api.GeneratePath, req, &out); err != nil {
		return api.Response{}, err
	}
	return out, nil
}

// ListFiles returns the caller's generated books, newest first
func (c *Client) ListFiles(ctx context.Context) ([]api.FileEntry, error) {
	var out api.FilesResponse
	status, err := c.doJSON(ctx, http.MethodGet, "/api/files", nil, &out)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if out.Error != "" {
		return nil, fmt.Errorf("list files: %s", out.Error)
	}
	return out.Files, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if err := decodeObject(resp.Body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: decode response (status %d): %w",
			method, path, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

// decodeObject decodes r into out, rejecting null, non-object values and
// trailing data
func decodeObject(r io.Reader, out any) error {
	body, err := io.ReadAll(io.LimitReader(r, maxResponseBytes))
	if err != nil {
		return err
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrMalformedResponse
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(out); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrMalformedResponse
	}
	return nil
}
