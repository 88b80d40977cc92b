// Package testutil provides an in-process fake of the RSC API for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/config"
)

// GraphQLCall records one request received on the GraphQL endpoint.
type GraphQLCall struct {
	Query         string
	Variables     map[string]any
	Authorization string
}

// Operation returns the GraphQL operation name of the call ("query Foo(...)"
// yields "Foo"), or "" for anonymous operations.
func (c GraphQLCall) Operation() string {
	q := strings.TrimSpace(c.Query)
	for _, kw := range []string{"query", "mutation"} {
		if !strings.HasPrefix(q, kw) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(q, kw))
		end := strings.IndexAny(rest, "( {")
		if end <= 0 {
			return ""
		}
		return rest[:end]
	}
	return ""
}

// GraphQLHandler answers one GraphQL call with a status code and raw body.
type GraphQLHandler func(call GraphQLCall) (status int, body string)

// FakeRSC serves /api/client_token, /api/session and /api/graphql.
type FakeRSC struct {
	Server *httptest.Server

	ClientID     string
	ClientSecret string
	Token        string

	mu           sync.Mutex
	handler      GraphQLHandler
	deleteStatus int
	tokenCalls   int
	deleteCalls  int
	calls        []GraphQLCall
}

// NewFakeRSC starts a fake that accepts the credentials id/secret and answers
// GraphQL calls with handler. The server is closed when the test ends.
func NewFakeRSC(t testing.TB, handler GraphQLHandler) *FakeRSC {
	t.Helper()
	f := &FakeRSC{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Token:        "test-token",
		handler:      handler,
		deleteStatus: http.StatusNoContent,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/client_token", f.serveToken)
	mux.HandleFunc("/api/session", f.serveSession)
	mux.HandleFunc("/api/graphql", f.serveGraphQL)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Config returns an RSCConfig that points at the fake with valid credentials.
func (f *FakeRSC) Config() config.RSCConfig {
	return config.RSCConfig{
		BaseURL:      f.Server.URL,
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		Timeout:      5,
	}
}

// SetDeleteStatus changes the status returned by the session delete endpoint.
func (f *FakeRSC) SetDeleteStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteStatus = status
}

// SetHandler replaces the GraphQL handler.
func (f *FakeRSC) SetHandler(h GraphQLHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

// Calls returns a copy of every GraphQL call received so far.
func (f *FakeRSC) Calls() []GraphQLCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]GraphQLCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// TokenCalls returns how many times the token endpoint was hit.
func (f *FakeRSC) TokenCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls
}

// DeleteCalls returns how many times the session was deleted.
func (f *FakeRSC) DeleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls
}

func (f *FakeRSC) serveToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.tokenCalls++
	f.mu.Unlock()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.ClientID != f.ClientID || req.ClientSecret != f.ClientSecret {
		http.Error(w, `{"code":401,"message":"invalid client credentials"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"access_token": f.Token})
}

func (f *FakeRSC) serveSession(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.deleteCalls++
	status := f.deleteStatus
	f.mu.Unlock()

	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+f.Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(status)
}

func (f *FakeRSC) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	call := GraphQLCall{
		Query:         body.Query,
		Variables:     body.Variables,
		Authorization: r.Header.Get("Authorization"),
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	handler := f.handler
	f.mu.Unlock()

	if call.Authorization != "Bearer "+f.Token {
		http.Error(w, `{"message":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}
	if handler == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{}}`))
		return
	}

	status, resp := handler(call)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp))
}

// Data wraps v as a successful GraphQL response body.
func Data(v any) string {
	b, err := json.Marshal(map[string]any{"data": v})
	if err != nil {
		panic(err)
	}
	return string(b)
}
