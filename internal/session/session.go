// Package session owns the RSC access token for the lifetime of one run.
//
// A Manager moves through three states and never goes back:
//
//	Unauthenticated --Open--> Authenticated --Close--> Closed
//
// Once closed, every call fails with ErrInvalidSession; a new Manager is
// needed to authenticate again.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
)

// State is the lifecycle position of a Manager.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	Closed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Credentials are the service account client ID and secret.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Validate reports whether both halves of the credential pair are present.
func (c Credentials) Validate() error {
	if c.ClientID == "" {
		return errors.New("session: client ID is empty")
	}
	if c.ClientSecret == "" {
		return errors.New("session: client secret is empty")
	}
	return nil
}

// Transport is the subset of *graphql.HTTPClient a Manager needs.
type Transport interface {
	Send(ctx context.Context, req graphql.Request) (*graphql.Response, error)
	PostJSON(ctx context.Context, path string, body any, header http.Header) ([]byte, error)
	Delete(ctx context.Context, path string, header http.Header) error
}

var _ Transport = (*graphql.HTTPClient)(nil)

// Manager holds one access token and attaches it to outgoing requests.
// It implements graphql.Client so domain code never sees the token.
type Manager struct {
	transport Transport
	creds     Credentials
	log       logr.Logger

	mu    sync.Mutex
	state State
	token string
}

var _ graphql.Client = (*Manager)(nil)

// NewManager returns an unauthenticated Manager.
func NewManager(transport Transport, creds Credentials, log logr.Logger) *Manager {
	if transport == nil {
		panic("session transport must not be nil")
	}
	return &Manager{transport: transport, creds: creds, log: log}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Open exchanges the credentials for an access token with a single call to
// the token endpoint. Any failure is an *AuthError and leaves the Manager
// unauthenticated.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Authenticated:
		return ErrAlreadyOpen
	case Closed:
		return ErrInvalidSession
	}

	if err := m.creds.Validate(); err != nil {
		return &AuthError{Err: err}
	}

	body, err := m.transport.PostJSON(ctx, graphql.TokenPath, tokenRequest{
		ClientID:     m.creds.ClientID,
		ClientSecret: m.creds.ClientSecret,
	}, nil)
	if err != nil {
		authErr := &AuthError{Err: err}
		var httpErr *graphql.HTTPError
		if errors.As(err, &httpErr) {
			authErr.StatusCode = httpErr.StatusCode
			authErr.Body = httpErr.Body
		}
		return authErr
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &AuthError{StatusCode: http.StatusOK, Body: string(body), Err: fmt.Errorf("decode token response: %w", err)}
	}
	if resp.AccessToken == "" {
		return &AuthError{StatusCode: http.StatusOK, Body: string(body), Err: errors.New("token response has no access_token")}
	}

	m.token = resp.AccessToken
	m.state = Authenticated
	m.log.Info("connected to RSC")
	return nil
}

// Attach returns a copy of req carrying the bearer token.
func (m *Manager) Attach(req graphql.Request) (graphql.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attachLocked(req)
}

func (m *Manager) attachLocked(req graphql.Request) (graphql.Request, error) {
	if m.state != Authenticated || m.token == "" {
		return graphql.Request{}, ErrInvalidSession
	}
	return req.WithHeader("Authorization", "Bearer "+m.token), nil
}

// Send attaches the token to req and sends it.
func (m *Manager) Send(ctx context.Context, req graphql.Request) (*graphql.Response, error) {
	authed, err := m.Attach(req)
	if err != nil {
		return nil, err
	}
	return m.transport.Send(ctx, authed)
}

// Execute sends query with variables and returns the raw "data" object.
func (m *Manager) Execute(ctx context.Context, query string, variables map[string]any) ([]byte, error) {
	resp, err := m.Send(ctx, graphql.NewRequest(query, variables))
	if err != nil {
		return nil, err
	}
	return []byte(resp.Data), nil
}

// Close revokes the token. It is a no-op when no token is held. The token is
// cleared and the Manager moves to Closed even when the teardown call fails;
// that failure is returned as a *TeardownError.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Authenticated {
		m.state = Closed
		m.log.V(1).Info("no active session to delete")
		return nil
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+m.token)

	m.token = ""
	m.state = Closed

	if err := m.transport.Delete(ctx, graphql.SessionPath, header); err != nil {
		teardownErr := &TeardownError{Err: err}
		var httpErr *graphql.HTTPError
		if errors.As(err, &httpErr) {
			teardownErr.StatusCode = httpErr.StatusCode
			teardownErr.Body = httpErr.Body
		}
		return teardownErr
	}

	m.log.Info("disconnected from RSC")
	return nil
}

// Errors returned by Manager.
var (
	// ErrInvalidSession is returned when a token is required but none is held.
	ErrInvalidSession = errors.New("session: no valid session token")
	// ErrAlreadyOpen is returned by a second Open on the same Manager.
	ErrAlreadyOpen = errors.New("session: already authenticated")
)

// AuthError is returned when the credential exchange fails.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("session: authentication failed (HTTP %d): %s", e.StatusCode, strings.TrimSpace(e.Body))
	}
	return fmt.Sprintf("session: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TeardownError is returned when the session delete call fails.
type TeardownError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("session: failed to delete session: %v", e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }
