package session

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
)

// Factory builds a fresh Manager for each run.
type Factory func() *Manager

// NewFactory returns a Factory that binds every Manager to transport and creds.
func NewFactory(transport Transport, creds Credentials, log logr.Logger) Factory {
	return func() *Manager {
		return NewManager(transport, creds, log)
	}
}

// Do opens a new session, runs fn with it and closes the session on every
// exit path. A teardown failure is logged and never replaces fn's result.
func (f Factory) Do(ctx context.Context, fn func(ctx context.Context, client graphql.Client) error) error {
	m := f()
	if err := m.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := m.Close(context.WithoutCancel(ctx)); err != nil {
			m.log.Error(err, "session teardown failed")
		}
	}()
	return fn(ctx, m)
}
