// Package graphql provides the HTTP transport used to talk to the Rubrik
// Security Cloud API: the GraphQL endpoint plus the plain JSON token and
// session endpoints that sit next to it.
package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// GraphQLError represents a single error returned in a GraphQL response.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Client defines the interface for executing GraphQL queries. Implementations
// return the raw JSON of the response "data" object.
type Client interface {
	Execute(ctx context.Context, query string, variables map[string]any) ([]byte, error)
}

// Request is one GraphQL call. It is treated as an immutable value; use
// WithHeader to derive a copy carrying extra headers.
type Request struct {
	Query     string
	Variables map[string]any
	Header    http.Header
}

// NewRequest returns a Request for query with the given variables.
func NewRequest(query string, variables map[string]any) Request {
	return Request{Query: query, Variables: variables}
}

// WithHeader returns a copy of r with key set to value. The receiver's header
// map is never modified.
func (r Request) WithHeader(key, value string) Request {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(key, value)
	r.Header = h
	return r
}

// Response is the decoded body of a GraphQL HTTP response.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// HTTPError is returned when the remote endpoint answers with a non-2xx status.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("graphql: %s %s: unexpected HTTP status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("graphql: %s %s: unexpected HTTP status %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// NetworkError is returned when a request cannot complete a round trip.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("graphql: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// QueryError is returned when the server accepted the request but reported
// GraphQL-level errors in the response body.
type QueryError struct {
	Errors []GraphQLError
}

func (e *QueryError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ge := range e.Errors {
		msgs[i] = ge.Message
		if len(ge.Path) > 0 {
			msgs[i] = fmt.Sprintf("%s (path %v)", ge.Message, ge.Path)
		}
	}
	return fmt.Sprintf("graphql: %s", strings.Join(msgs, "; "))
}
