package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/auth"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/cloud/aws"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/cloud/azure"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/config"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/paginate"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/sla"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/tools"
)

// Version is reported to MCP clients.
var Version = "dev"

const shutdownTimeout = 15 * time.Second

// ServeOptions holds the flags of `serve`.
type ServeOptions struct {
	Port int
}

// NewServeCommand creates the MCP server command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rscctl operations as MCP tools over HTTP",
		Long: `Serve sla_list, aws_account_add, azure_subscription_add and graphql_query
over the MCP streamable HTTP transport at /mcp. Prometheus metrics are at
/metrics. Both require the bearer token from server.auth_token or
RSCCTL_AUTH_TOKEN; one is generated and logged when none is set.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "listen port (default server.port, 8080)")

	return cmd
}

func runServe(rootOpts *RootOptions, opts *ServeOptions, cmd *cobra.Command) error {
	a, err := rootOpts.newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Port != 0 {
		a.cfg.Server.Port = opts.Port
	}
	tokenBefore := a.cfg.Server.AuthToken
	token, err := config.EnsureAuthToken(a.cfg)
	if err != nil {
		return err
	}
	if tokenBefore == "" {
		a.log.Info("generated auth token, set "+config.EnvAuthToken+" to persist", "token", token)
	}

	mcpServer, names := newMCPServer(a, rootOpts.Stacks)
	a.log.Info("registered tools", "tools", names)

	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           newServeHandler(a, mcpServer),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx := cmd.Context()

	errc := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}

// newMCPServer registers every tool and returns the server and tool names.
func newMCPServer(a *app, stacks aws.StackClientFactory) (*server.MCPServer, []string) {
	mcpServer := server.NewMCPServer(
		"rscctl",
		Version,
		server.WithToolCapabilities(false),
	)

	confirm := safety.NewConfirmationTracker(safety.DefaultAcknowledgmentTTL)
	names := tools.RegisterAll(mcpServer,
		sla.SLATools(a.runner, a.audit,
			paginate.WithMaxPages(a.cfg.Pagination.MaxPages),
			paginate.WithMetrics(a.metrics, "slaDomains"),
		),
		aws.AWSTools(a.runner, a.filter, stacks, a.audit),
		azure.AzureTools(a.runner, a.filter, confirm, a.audit),
		tools.GraphQLTools(a.sessions.Do, a.audit),
	)
	return mcpServer, names
}

// newServeHandler mounts MCP, metrics and a health check behind the bearer
// token middleware. Only /healthz is public.
func newServeHandler(a *app, mcpServer *server.MCPServer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer))
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return auth.NewAuthMiddleware(a.cfg.Server.AuthToken, "/healthz")(mux)
}
