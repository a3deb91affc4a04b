package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/adminkit/session/internal/autherr"
	"github.com/adminkit/session/internal/logging"
	"github.com/adminkit/session/internal/models"
)

// Endpoint paths, relative to the configured base URL.
const (
	pathLogin   = "/admin/auth/login"
	pathVerify  = "/admin/auth/verify"
	pathRefresh = "/admin/auth/refresh"
	pathLogout  = "/admin/auth/logout"
)

const requestIDHeader = "X-Request-ID"

// DefaultTimeout bounds every API call unless the caller's context is
// tighter.
const DefaultTimeout = 10 * time.Second

// HTTPClient is the concrete Client talking JSON over HTTP.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	timeout time.Duration
	log     logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient substitutes the underlying *http.Client (tests, custom
// transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.timeout = d }
}

// NewHTTPClient builds a client for the API rooted at baseURL
// (e.g. "https://api.example.com"). The trailing slash is optional.
func NewHTTPClient(baseURL string, log logging.Logger, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: trimSlash(baseURL),
		hc:      &http.Client{},
		timeout: DefaultTimeout,
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// do issues one JSON request and decodes the response into out (when out is
// non-nil). Non-2xx responses and transport failures come back as
// *autherr.Error.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, body any, bearer string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return autherr.New(op, autherr.KindUnknown, fmt.Sprintf("encode request: %v", err))
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return autherr.New(op, autherr.KindUnknown, fmt.Sprintf("build request: %v", err))
	}

	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		ae := autherr.FromTransport(op, err)
		c.log.Warn(ctx, "auth api transport failure", "op", op, "request_id", requestID, "kind", ae.Kind)
		return ae
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return autherr.FromTransport(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ae := autherr.FromResponse(op, resp, respBody)
		c.log.Debug(ctx, "auth api error response", "op", op, "request_id", requestID, "status", resp.StatusCode, "kind", ae.Kind)
		return ae
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return autherr.New(op, autherr.KindUnknown, fmt.Sprintf("decode response: %v", err))
		}
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user,omitempty"`
}

type verifyResponse struct {
	User *models.User `json:"user"`
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var resp tokenResponse
	err := c.do(ctx, "login", http.MethodPost, pathLogin, loginRequest{Email: email, Password: password}, "", &resp)
	if err != nil {
		return nil, err
	}

	pair := models.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    tokenExpiry(resp.AccessToken),
	}
	if pair.Empty() {
		return nil, autherr.New("login", autherr.KindUnknown, "login response carried no tokens")
	}
	return &LoginResult{Tokens: pair, User: resp.User}, nil
}

func (c *HTTPClient) Verify(ctx context.Context, accessToken string) (*models.User, error) {
	var resp verifyResponse
	err := c.do(ctx, "verify", http.MethodGet, pathVerify, nil, accessToken, &resp)
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, autherr.New("verify", autherr.KindUnknown, "verify response carried no user")
	}
	return resp.User, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var resp tokenResponse
	err := c.do(ctx, "refresh", http.MethodPost, pathRefresh, refreshRequest{RefreshToken: refreshToken}, "", &resp)
	if err != nil {
		return nil, err
	}
	pair := models.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    tokenExpiry(resp.AccessToken),
	}
	if pair.Empty() {
		return nil, autherr.New("refresh", autherr.KindUnknown, "refresh response carried no tokens")
	}
	return &pair, nil
}

func (c *HTTPClient) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, "logout", http.MethodPost, pathLogout, nil, accessToken, nil)
}
