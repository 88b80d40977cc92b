package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/config"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/metrics"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestConfig returns an RSCConfig pointing at the given URL with
// reasonable defaults for testing.
func newTestConfig(t *testing.T, url string) config.RSCConfig {
	t.Helper()
	return config.RSCConfig{
		BaseURL: url,
		Timeout: 5,
	}
}

// newTestClient builds an HTTPClient against srv.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *HTTPClient {
	t.Helper()
	client, err := NewHTTPClient(newTestConfig(t, srv.URL), opts...)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client
}

// authorized returns a Request carrying a bearer token.
func authorized(query string, vars map[string]any) Request {
	return NewRequest(query, vars).WithHeader("Authorization", "Bearer tok")
}

// graphqlRequestBody is the expected shape of a GraphQL HTTP request body.
type graphqlRequestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// ---------------------------------------------------------------------------
// normalizeURL / NewHTTPClient
// ---------------------------------------------------------------------------

func Test_normalizeURL_Cases(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare host", input: "https://acme.my.rubrik.com", want: "https://acme.my.rubrik.com"},
		{name: "trailing slash", input: "https://acme.my.rubrik.com/", want: "https://acme.my.rubrik.com"},
		{name: "graphql suffix", input: "https://acme.my.rubrik.com/api/graphql", want: "https://acme.my.rubrik.com"},
		{name: "graphql suffix with trailing slash", input: "https://acme.my.rubrik.com/api/graphql/", want: "https://acme.my.rubrik.com"},
		{name: "multiple trailing slashes", input: "http://127.0.0.1:8080///", want: "http://127.0.0.1:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeURL(tt.input); got != tt.want {
				t.Errorf("normalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func Test_NewHTTPClient_Cases(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RSCConfig
		wantErr  bool
		wantBase string
	}{
		{name: "env name", cfg: config.RSCConfig{EnvName: "acme", Timeout: 30}, wantBase: "https://acme.my.rubrik.com"},
		{name: "base URL", cfg: config.RSCConfig{BaseURL: "http://localhost:9999/"}, wantBase: "http://localhost:9999"},
		{name: "negative timeout uses default", cfg: config.RSCConfig{EnvName: "acme", Timeout: -5}, wantBase: "https://acme.my.rubrik.com"},
		{name: "nothing configured", cfg: config.RSCConfig{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewHTTPClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if client != nil {
					t.Error("expected nil client on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.BaseURL() != tt.wantBase {
				t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), tt.wantBase)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Request
// ---------------------------------------------------------------------------

func Test_Request_WithHeader_DoesNotMutateOriginal(t *testing.T) {
	base := NewRequest("query { a }", nil).WithHeader("X-One", "1")
	derived := base.WithHeader("Authorization", "Bearer t")

	if base.Header.Get("Authorization") != "" {
		t.Errorf("original request gained Authorization header: %v", base.Header)
	}
	if derived.Header.Get("X-One") != "1" {
		t.Errorf("derived request lost X-One header: %v", derived.Header)
	}
	if derived.Header.Get("Authorization") != "Bearer t" {
		t.Errorf("derived Authorization = %q, want %q", derived.Header.Get("Authorization"), "Bearer t")
	}
}

// ---------------------------------------------------------------------------
// HTTPClient.Send
// ---------------------------------------------------------------------------

func Test_Send_HappyPath(t *testing.T) {
	var (
		receivedBody    graphqlRequestBody
		receivedHeaders http.Header
		receivedPath    string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		receivedHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &receivedBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"slaDomains":{"count":1}}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	query := `query GetSlaDomains($after: String) { slaDomains(after: $after) { count } }`
	resp, err := client.Send(context.Background(), authorized(query, map[string]any{"after": "c1"}))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if receivedPath != GraphQLPath {
		t.Errorf("path = %q, want %q", receivedPath, GraphQLPath)
	}
	if receivedBody.Query != query {
		t.Errorf("request query = %q, want %q", receivedBody.Query, query)
	}
	if receivedBody.Variables["after"] != "c1" {
		t.Errorf("variables['after'] = %v, want %q", receivedBody.Variables["after"], "c1")
	}
	if got := receivedHeaders.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
	}
	if got := receivedHeaders.Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if !strings.Contains(string(resp.Data), `"count":1`) {
		t.Errorf("data = %s, want it to contain count", resp.Data)
	}
}

func Test_Send_NilVariablesOmitted(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	if _, err := client.Send(context.Background(), authorized(`query { a }`, nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var bodyMap map[string]any
	if err := json.Unmarshal(raw, &bodyMap); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if vars, ok := bodyMap["variables"]; ok && vars != nil {
		t.Errorf("expected variables to be omitted or null, got %v", vars)
	}
}

func Test_Send_MissingAuthorization(t *testing.T) {
	serverCalled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverCalled = true
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.Send(context.Background(), NewRequest(`query { a }`, nil))
	if !errors.Is(err, ErrMissingAuthorization) {
		t.Fatalf("err = %v, want ErrMissingAuthorization", err)
	}
	if serverCalled {
		t.Error("server should not be contacted without a token")
	}
}

func Test_Send_ErrorCases(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		validate func(t *testing.T, err error)
	}{
		{
			name:   "HTTP 401 carries status and body",
			status: http.StatusUnauthorized,
			body:   `{"message":"token expired"}`,
			validate: func(t *testing.T, err error) {
				t.Helper()
				var httpErr *HTTPError
				if !errors.As(err, &httpErr) {
					t.Fatalf("err = %T, want *HTTPError", err)
				}
				if httpErr.StatusCode != http.StatusUnauthorized {
					t.Errorf("StatusCode = %d, want 401", httpErr.StatusCode)
				}
				if !strings.Contains(httpErr.Body, "token expired") {
					t.Errorf("Body = %q, want it to contain the server message", httpErr.Body)
				}
			},
		},
		{
			name:   "HTTP 500",
			status: http.StatusInternalServerError,
			body:   "boom",
			validate: func(t *testing.T, err error) {
				t.Helper()
				if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "boom") {
					t.Errorf("error = %q, want status and body", err.Error())
				}
			},
		},
		{
			name:   "GraphQL errors",
			status: http.StatusOK,
			body:   `{"data":null,"errors":[{"message":"field not found","path":["slaDomains"]},{"message":"second"}]}`,
			validate: func(t *testing.T, err error) {
				t.Helper()
				var qErr *QueryError
				if !errors.As(err, &qErr) {
					t.Fatalf("err = %T, want *QueryError", err)
				}
				if len(qErr.Errors) != 2 {
					t.Errorf("len(Errors) = %d, want 2", len(qErr.Errors))
				}
				if !strings.Contains(err.Error(), "field not found") || !strings.Contains(err.Error(), "second") {
					t.Errorf("error = %q, want both messages", err.Error())
				}
			},
		},
		{
			name:   "invalid JSON body",
			status: http.StatusOK,
			body:   `not json`,
			validate: func(t *testing.T, err error) {
				t.Helper()
				if !strings.Contains(err.Error(), "decode response") {
					t.Errorf("error = %q, want decode error", err.Error())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(t, srv)
			resp, err := client.Send(context.Background(), authorized(`query { a }`, nil))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if resp != nil {
				t.Error("expected nil response on error")
			}
			tt.validate(t, err)
		})
	}
}

func Test_Send_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, srv)
	srv.Close()

	_, err := client.Send(context.Background(), authorized(`query { a }`, nil))
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v (%T), want *NetworkError", err, err)
	}
}

func Test_Send_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, srv)
	if _, err := client.Send(ctx, authorized(`query { a }`, nil)); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func Test_Send_DoesNotRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, _ = client.Send(context.Background(), authorized(`query { a }`, nil))
	if calls != 1 {
		t.Errorf("server called %d times, want exactly 1", calls)
	}
}

// ---------------------------------------------------------------------------
// PostJSON / Delete
// ---------------------------------------------------------------------------

func Test_PostJSON_SendsBodyUnauthenticated(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != TokenPath || r.Method != http.MethodPost {
			http.Error(w, "unexpected", http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte(`{"access_token":"abc"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	body, err := client.PostJSON(context.Background(), TokenPath, map[string]string{"client_id": "id"}, nil)
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if received["client_id"] != "id" {
		t.Errorf("client_id = %q, want %q", received["client_id"], "id")
	}
	if !strings.Contains(string(body), "abc") {
		t.Errorf("body = %s, want access token", body)
	}
}

func Test_Delete_StatusCases(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "200", status: http.StatusOK},
		{name: "204", status: http.StatusNoContent},
		{name: "403", status: http.StatusForbidden, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method = r.Method
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := newTestClient(t, srv)
			err := client.Delete(context.Background(), SessionPath, http.Header{"Authorization": {"Bearer x"}})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Delete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if method != http.MethodDelete {
				t.Errorf("method = %q, want DELETE", method)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

func Test_Send_RecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	rec := metrics.New()
	client := newTestClient(t, srv, WithMetrics(rec))
	for i := 0; i < 3; i++ {
		if _, err := client.Send(context.Background(), authorized(`query { a }`, nil)); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	expected := `
# HELP rscctl_requests_total Number of requests sent to the RSC API, by endpoint and outcome.
# TYPE rscctl_requests_total counter
rscctl_requests_total{endpoint="graphql",outcome="ok"} 3
`
	if err := testutil.GatherAndCompare(rec.Gatherer(), strings.NewReader(expected), "rscctl_requests_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}
