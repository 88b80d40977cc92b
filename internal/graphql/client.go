package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/config"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/metrics"
)

const (
	defaultTimeout = 30 * time.Second

	// GraphQLPath is the single GraphQL endpoint.
	GraphQLPath = "/api/graphql"
	// TokenPath exchanges client credentials for an access token.
	TokenPath = "/api/client_token"
	// SessionPath is deleted to revoke the access token.
	SessionPath = "/api/session"

	// maxErrorBody bounds how much of a failed response is kept for diagnostics.
	maxErrorBody = 64 << 10
)

// ErrMissingAuthorization is returned by Send when the request carries no
// Authorization header. Only the token exchange may be sent unauthenticated.
var ErrMissingAuthorization = errors.New("graphql: request has no Authorization header")

// HTTPClient sends requests to one RSC instance over net/http. It never
// retries; every failure is returned to the caller.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	metrics    *metrics.Recorder
}

// Option customises an HTTPClient.
type Option func(*HTTPClient)

// WithMetrics records every request on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// WithHTTPClient replaces the underlying *http.Client. The configured timeout
// is not applied to a client supplied this way.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient constructs an HTTPClient from the provided RSCConfig.
// It returns an error if neither an env name nor a base URL is configured.
// When cfg.Timeout is zero or negative, a default timeout of 30 seconds is used.
func NewHTTPClient(cfg config.RSCConfig, opts ...Option) (*HTTPClient, error) {
	baseURL := cfg.URL()
	if baseURL == "" {
		return nil, fmt.Errorf("graphql: env name or base URL is required")
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    normalizeURL(baseURL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// normalizeURL trims trailing slashes and a trailing /api/graphql so that
// both the bare instance URL and the GraphQL URL are accepted.
func normalizeURL(rawURL string) string {
	u := strings.TrimRight(rawURL, "/")
	u = strings.TrimSuffix(u, GraphQLPath)
	return strings.TrimRight(u, "/")
}

// BaseURL returns the instance URL requests are sent to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// graphqlRequest is the JSON body shape for a GraphQL HTTP request.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Send posts req to the GraphQL endpoint and returns the decoded response.
//
// Send returns an error if:
//   - req carries no Authorization header (ErrMissingAuthorization)
//   - the round trip cannot complete (*NetworkError)
//   - the server responds with a non-2xx status code (*HTTPError)
//   - the response body cannot be decoded as JSON
//   - the GraphQL response contains one or more errors (*QueryError)
func (c *HTTPClient) Send(ctx context.Context, req Request) (*Response, error) {
	if req.Header.Get("Authorization") == "" {
		return nil, ErrMissingAuthorization
	}

	body, err := c.do(ctx, http.MethodPost, GraphQLPath, graphqlRequest{
		Query:     req.Query,
		Variables: req.Variables,
	}, req.Header)
	if err != nil {
		c.observe("graphql", err)
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		c.metrics.ObserveRequest("graphql", "decode_error")
		return nil, fmt.Errorf("graphql: decode response: %w", err)
	}

	if len(resp.Errors) > 0 {
		c.metrics.ObserveRequest("graphql", "query_error")
		return nil, &QueryError{Errors: resp.Errors}
	}

	c.metrics.ObserveRequest("graphql", "ok")
	return &resp, nil
}

// PostJSON posts body as JSON to path and returns the raw response body.
func (c *HTTPClient) PostJSON(ctx context.Context, path string, body any, header http.Header) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body, header)
	c.observe(endpointName(path), err)
	return resp, err
}

// Delete issues a DELETE to path. Any 2xx status is a success.
func (c *HTTPClient) Delete(ctx context.Context, path string, header http.Header) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, header)
	c.observe(endpointName(path), err)
	return err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, header http.Header) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("graphql: marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("graphql: create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(errBody),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read " + path, Err: err}
	}
	return respBody, nil
}

func (c *HTTPClient) observe(endpoint string, err error) {
	var (
		httpErr *HTTPError
		netErr  *NetworkError
	)
	switch {
	case err == nil:
		c.metrics.ObserveRequest(endpoint, "ok")
	case errors.As(err, &httpErr):
		c.metrics.ObserveRequest(endpoint, "http_error")
	case errors.As(err, &netErr):
		c.metrics.ObserveRequest(endpoint, "network_error")
	default:
		c.metrics.ObserveRequest(endpoint, "error")
	}
}

func endpointName(path string) string {
	switch path {
	case GraphQLPath:
		return "graphql"
	case TokenPath:
		return "token"
	case SessionPath:
		return "session"
	default:
		return strings.Trim(path, "/")
	}
}
