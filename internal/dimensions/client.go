package dimensions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurin/impact-dashboard/internal/domain"
	"github.com/aurin/impact-dashboard/internal/observability"
)

const (
	// DefaultBaseURL is the default Dimensions API base URL.
	DefaultBaseURL = "https://app.dimensions.ai"

	// DefaultRateLimit is the default rate limit (Dimensions allows 30 requests per minute).
	DefaultRateLimit = 0.5

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultPageSize is the default bounded number of records per search.
	DefaultPageSize = 1000

	// authEndpoint exchanges an API key for a short-lived JWT.
	authEndpoint = "/api/auth.json"

	// dslEndpoint executes a DSL query.
	dslEndpoint = "/api/dsl.json"

	// sourceName is the human-readable name for this source.
	sourceName = "Dimensions"
)

// Config holds configuration for the Dimensions client.
type Config struct {
	// BaseURL is the Dimensions API base URL.
	BaseURL string

	// Query is the DSL query issued by Search.
	Query string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// PageSize is the bounded number of records requested per search.
	PageSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
}

// Client issues authenticated searches against the Dimensions Analytics API.
//
// The credential is supplied per call rather than held by the client, since
// every dashboard session carries its own key. A single failed call is
// surfaced immediately; no retry is performed.
type Client struct {
	config     Config
	httpClient *HTTPClient
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// New creates a new Dimensions client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := NewHTTPClient(HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     zerolog.Nop(),
	}
}

// NewWithHTTPClient creates a new Dimensions client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     zerolog.Nop(),
	}
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// SetMetrics enables per-endpoint request instrumentation. A nil receiver
// value disables it.
func (c *Client) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// SetLogger enables request logging. The default logger discards everything.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

func (c *Client) recordRequest(endpoint string, start time.Time) {
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordSourceRequest(sourceName, endpoint, elapsed.Seconds())
	}
	logger := observability.WithSourceContext(c.logger, sourceName, endpoint)
	logger.Debug().
		Dur("duration", elapsed).
		Msg("source request completed")
}

func (c *Client) recordFailure(endpoint string, err error) {
	if c.metrics != nil {
		c.metrics.RecordSourceRequestFailed(sourceName, endpoint, domain.ErrorKind(err))
	}
	logger := observability.WithSourceContext(c.logger, sourceName, endpoint)
	logger.Warn().
		Err(err).
		Msg("source request failed")
}

// Authenticate exchanges an API key for a short-lived JWT.
// A rejected credential yields a domain.AuthenticationError; any other
// failure yields a domain.TransportError.
func (c *Client) Authenticate(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", domain.NewAuthenticationError(sourceName, "missing API key")
	}

	start := time.Now()
	token, err := c.authenticate(ctx, key)
	c.recordRequest("auth", start)
	if err != nil {
		c.recordFailure("auth", err)
		return "", err
	}
	return token, nil
}

func (c *Client) authenticate(ctx context.Context, key string) (string, error) {
	endpoint, err := c.endpointURL(authEndpoint)
	if err != nil {
		return "", fmt.Errorf("building auth URL: %w", err)
	}

	body, err := json.Marshal(authRequest{Key: key})
	if err != nil {
		return "", fmt.Errorf("encoding auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewTransportError(sourceName, 0, "executing auth request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", domain.NewAuthenticationError(sourceName, readErrorBody(resp.Body))
	case resp.StatusCode != http.StatusOK:
		return "", domain.NewTransportError(sourceName, resp.StatusCode, readErrorBody(resp.Body), nil)
	}

	var auth authResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&auth); err != nil {
		return "", domain.NewTransportError(sourceName, resp.StatusCode, "decoding auth response", err)
	}
	if auth.Token == "" {
		return "", domain.NewTransportError(sourceName, resp.StatusCode, "auth response missing token", nil)
	}

	return auth.Token, nil
}

// Search authenticates with the given key and executes the configured DSL
// query, returning one bounded page of raw publication records.
func (c *Client) Search(ctx context.Context, key string) ([]Publication, error) {
	token, err := c.Authenticate(ctx, key)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	publications, err := c.query(ctx, token)
	c.recordRequest("dsl", start)
	if err != nil {
		c.recordFailure("dsl", err)
		return nil, err
	}
	return publications, nil
}

func (c *Client) query(ctx context.Context, token string) ([]Publication, error) {
	endpoint, err := c.endpointURL(dslEndpoint)
	if err != nil {
		return nil, fmt.Errorf("building DSL URL: %w", err)
	}

	query := c.buildQuery()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "JWT "+token)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError(sourceName, 0, "executing DSL request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.NewAuthenticationError(sourceName, readErrorBody(resp.Body))
	case resp.StatusCode != http.StatusOK:
		return nil, domain.NewTransportError(sourceName, resp.StatusCode, readErrorBody(resp.Body), nil)
	}

	// Parse the JSON response (limit body to 10MB).
	var queryResp QueryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&queryResp); err != nil {
		return nil, domain.NewTransportError(sourceName, resp.StatusCode, "decoding DSL response", err)
	}

	return queryResp.Publications, nil
}

// buildQuery appends the bounded page limit to the configured DSL query
// unless the operator's query already carries one.
func (c *Client) buildQuery() string {
	query := strings.TrimSpace(c.config.Query)
	if strings.Contains(query, " limit ") {
		return query
	}
	return fmt.Sprintf("%s limit %d", query, c.config.PageSize)
}

// endpointURL joins the base URL with an API endpoint path.
func (c *Client) endpointURL(path string) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	base.Path = strings.TrimRight(base.Path, "/") + path
	return base.String(), nil
}

// readErrorBody reads a bounded snippet of an error response body for
// inclusion in error messages.
func readErrorBody(body io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(body, 1<<20))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return "no response body"
	}
	return msg
}
