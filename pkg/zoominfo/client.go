// Package zoominfo provides a JWT-authenticated client for the ZoomInfo
// company search, contact search, and contact enrich APIs.
package zoominfo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadsnap/internal/resilience"
)

const (
	defaultBaseURL = "https://api.zoominfo.com"

	// tokenLifetime is how long an issued JWT is trusted before
	// re-authenticating. ZoomInfo tokens expire after 60 minutes.
	tokenLifetime = 55 * time.Minute

	maxRetryAttempts = 3
)

// retryBackoff is the base delay before the first retry. Tests shrink it.
var retryBackoff = 2 * time.Second

// ErrNotFound is returned when a search matches nothing or the vendor
// answers 404. Callers map it to a status, not a failure.
var ErrNotFound = eris.New("zoominfo: not found")

// Client defines the ZoomInfo operations used by the enrichment worker.
type Client interface {
	SearchCompany(ctx context.Context, in SearchCompanyInput) ([]CompanyResult, error)
	SearchContacts(ctx context.Context, companyID int64) ([]ContactResult, error)
	EnrichContacts(ctx context.Context, personIDs []int64, outputFields []string) ([]EnrichedContact, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	username string
	password string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter

	mu        sync.Mutex
	jwt       string
	jwtExpiry time.Time
}

// NewClient creates a ZoomInfo API client.
func NewClient(username, password string, opts ...Option) Client {
	c := &httpClient{
		username: username,
		password: password,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	JWT string `json:"jwt"`
}

// token returns a cached JWT, authenticating when none is held or the held
// one is near expiry.
func (c *httpClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.jwt != "" && time.Now().Before(c.jwtExpiry) {
		return c.jwt, nil
	}

	body, err := json.Marshal(authRequest{Username: c.username, Password: c.password})
	if err != nil {
		return "", eris.Wrap(err, "zoominfo: marshal auth request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authenticate", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "zoominfo: create auth request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "zoominfo: authenticate")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "zoominfo: read auth response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("zoominfo: authenticate returned %d: %s", resp.StatusCode, string(respBody))
	}

	var ar authResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		return "", eris.Wrap(err, "zoominfo: unmarshal auth response")
	}
	if ar.JWT == "" {
		return "", eris.New("zoominfo: authenticate returned empty jwt")
	}

	c.jwt = ar.JWT
	c.jwtExpiry = time.Now().Add(tokenLifetime)
	return c.jwt, nil
}

func (c *httpClient) invalidateToken() {
	c.mu.Lock()
	c.jwt = ""
	c.mu.Unlock()
}

// post sends an authenticated JSON request and decodes the response into out.
// 429/5xx and network errors come back as resilience.TransientError and are
// retried with backoff; a 401 invalidates the cached token so the next
// attempt re-authenticates. 404 maps to ErrNotFound.
func (c *httpClient) post(ctx context.Context, path string, payload any, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "zoominfo: rate limit")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "zoominfo: marshal request")
	}

	cfg := resilience.RetryConfig{
		MaxAttempts:    maxRetryAttempts,
		InitialBackoff: retryBackoff,
		OnRetry:        resilience.RetryLogger("zoominfo", path),
	}
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return c.doOnce(ctx, path, body, out)
	})
}

// doOnce performs a single authenticated attempt against path.
func (c *httpClient) doOnce(ctx context.Context, path string, body []byte, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "zoominfo: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "zoominfo: send request"), 0)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close() //nolint:errcheck
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "zoominfo: read response"), 0)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "zoominfo: unmarshal response")
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		// Server-side token revocation; the retry re-authenticates.
		c.invalidateToken()
		return resilience.NewTransientError(statusError(resp.StatusCode, respBody), resp.StatusCode)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return resilience.NewTransientError(statusError(resp.StatusCode, respBody), resp.StatusCode)
	default:
		return statusError(resp.StatusCode, respBody)
	}
}

func statusError(code int, body []byte) error {
	return eris.Errorf("zoominfo: unexpected status %d: %s", code, string(body))
}
