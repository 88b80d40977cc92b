package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/config"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/metrics"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/session"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/workflow"
)

// app is everything a command needs once configuration has been resolved.
type app struct {
	cfg      *config.Config
	log      logr.Logger
	metrics  *metrics.Recorder
	audit    *safety.AuditLogger
	filter   *safety.Filter
	sessions session.Factory
	runner   *workflow.Runner

	closers []io.Closer
}

// newApp loads configuration (file, then environment, then flags), checks it
// and wires the transport, session factory and workflow runner.
func (o *RootOptions) newApp(cmd *cobra.Command) (*app, error) {
	logger := newLogger(cmd.ErrOrStderr(), o.Verbose)

	cfg, err := o.loadConfig(logger)
	if err != nil {
		return nil, usageError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageError(err)
	}

	rec := metrics.New()
	transport, err := graphql.NewHTTPClient(cfg.RSC, graphql.WithMetrics(rec))
	if err != nil {
		return nil, usageError(err)
	}

	a := &app{
		cfg:     cfg,
		log:     logger,
		metrics: rec,
		filter:  safety.NewAccountFilter(cfg.Safety),
	}

	if cfg.Audit.Enabled {
		f, err := openAuditLog(cfg.Audit.LogPath)
		if err != nil {
			logger.Error(err, "audit logging disabled", "path", cfg.Audit.LogPath)
		} else {
			a.audit = safety.NewAuditLogger(f)
			a.closers = append(a.closers, f)
		}
	}

	creds := session.Credentials{ClientID: cfg.RSC.ClientID, ClientSecret: cfg.RSC.ClientSecret}
	a.sessions = session.NewFactory(transport, creds, logger.WithName("session"))
	a.runner = &workflow.Runner{
		Sessions: a.sessions,
		Log:      logger.WithName("workflow"),
		Audit:    a.audit,
		Metrics:  rec,
	}
	logger.V(1).Info("configured", "url", cfg.RSC.URL(), "audit", a.audit != nil)
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

// loadConfig reads the config file, then applies environment and flag
// overrides. A missing file yields the defaults.
func (o *RootOptions) loadConfig(logger logr.Logger) (*config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.LoadConfig(path)
	switch {
	case err == nil:
		logger.V(1).Info("loaded config", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		logger.V(1).Info("no config file, using defaults", "path", path)
		cfg = config.DefaultConfig()
	default:
		return nil, fmt.Errorf("config %q: %w", path, err)
	}

	config.ApplyEnvOverrides(cfg)
	o.applyFlags(cfg)
	return cfg, nil
}

func (o *RootOptions) applyFlags(cfg *config.Config) {
	if o.ClientID != "" {
		cfg.RSC.ClientID = o.ClientID
	}
	if o.ClientSecret != "" {
		cfg.RSC.ClientSecret = o.ClientSecret
	}
	if o.EnvName != "" {
		cfg.RSC.EnvName = o.EnvName
	}
	if o.BaseURL != "" {
		cfg.RSC.BaseURL = o.BaseURL
	}
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(w, "rscctl: ", log.LstdFlags))
}

func openAuditLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
