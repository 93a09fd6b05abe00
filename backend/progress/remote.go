package progress

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
)

// maxResponseSize caps how much of a response body the client reads.
const maxResponseSize = 1 << 20

// RemoteStore is the store of record as the SyncEngine sees it. Neither
// method retries.
type RemoteStore interface {
	// Fetch returns the stored map, or an empty map for an unknown email.
	// An error means the store could not be reached.
	Fetch(ctx context.Context, email string) (CompletionMap, error)
	// Push writes m for email and reports whether the server accepted it.
	Push(ctx context.Context, email string, m CompletionMap) bool
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ResponseError is a non-2xx answer from the server.
type ResponseError struct {
	Code int
	Body string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// RemoteClient talks to the progress server over HTTP.
type RemoteClient struct {
	baseURL string
	http    HTTPDoer
	token   string
	logger  *zap.Logger
}

// ClientOption configures a RemoteClient.
type ClientOption func(*RemoteClient)

// WithHTTPClient sets the transport.
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *RemoteClient) {
		c.http = doer
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) ClientOption {
	return func(c *RemoteClient) {
		c.token = token
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *RemoteClient) {
		c.logger = logger
	}
}

// NewRemoteClient creates a client for the server at baseURL.
func NewRemoteClient(baseURL string, opts ...ClientOption) *RemoteClient {
	c := &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type syncProgressBody struct {
	Email    string        `json:"email"`
	Progress CompletionMap `json:"progress"`
}

type successBody struct {
	Success bool `json:"success"`
}

// Fetch implements RemoteStore.
func (c *RemoteClient) Fetch(ctx context.Context, email string) (CompletionMap, error) {
	var body struct {
		Progress CompletionMap `json:"progress"`
	}
	err := c.do(ctx, http.MethodGet, "/sync-progress?email="+url.QueryEscape(NormalizeEmail(email)), nil, &body)
	var se *ResponseError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return CompletionMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch progress: %w", err)
	}
	if body.Progress == nil {
		return CompletionMap{}, nil
	}
	return body.Progress, nil
}

// Push implements RemoteStore. Every failure is reported as false.
func (c *RemoteClient) Push(ctx context.Context, email string, m CompletionMap) bool {
	var body successBody
	err := c.do(ctx, http.MethodPost, "/sync-progress", syncProgressBody{Email: NormalizeEmail(email), Progress: m}, &body)
	if err != nil {
		c.logger.Debug("push progress failed", zap.String("email", email), zap.Error(err))
		return false
	}
	return body.Success
}

// UnlockStatus asks the server for the schedule of every module.
func (c *RemoteClient) UnlockStatus(ctx context.Context, email string) (map[int]ModuleUnlockStatus, error) {
	var body struct {
		Success bool                       `json:"success"`
		Modulos map[int]ModuleUnlockStatus `json:"modulos"`
	}
	if err := c.do(ctx, http.MethodGet, "/unlock-status?email="+url.QueryEscape(NormalizeEmail(email)), nil, &body); err != nil {
		return nil, fmt.Errorf("unlock status: %w", err)
	}
	if !body.Success {
		return nil, errors.New("unlock status: server reported failure")
	}
	return body.Modulos, nil
}

// SetOverride sets or clears the admin unlock of one module. Needs an admin token.
func (c *RemoteClient) SetOverride(ctx context.Context, email string, module int, unlock bool) error {
	req := struct {
		Email     string `json:"email"`
		ModuloNum int    `json:"moduloNum"`
		Unlock    bool   `json:"unlock"`
	}{NormalizeEmail(email), module, unlock}

	var body successBody
	if err := c.do(ctx, http.MethodPost, "/admin/progress", req, &body); err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	if !body.Success {
		return errors.New("set override: server reported failure")
	}
	return nil
}

// Login exchanges credentials for a token at the identity provider.
func (c *RemoteClient) Login(ctx context.Context, email, password string) (string, error) {
	req := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{NormalizeEmail(email), password}

	var body struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &body); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return body.Token, nil
}

// Identity asks the identity provider who the token belongs to. Any failure
// yields an anonymous identity alongside the error.
func (c *RemoteClient) Identity(ctx context.Context) (Identity, error) {
	if c.token == "" {
		return Identity{}, nil
	}
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &id); err != nil {
		return Identity{}, fmt.Errorf("identity: %w", err)
	}
	id.Email = NormalizeEmail(id.Email)
	return id, nil
}

func (c *RemoteClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ResponseError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
