// Package cli implements the rscctl command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/cloud/aws"
)

// ValidFormats are the accepted values of --format.
var ValidFormats = []string{"text", "json"}

// RootOptions holds the global flags and the injectable dependencies shared by
// every command.
type RootOptions struct {
	ConfigPath   string
	ClientID     string
	ClientSecret string
	EnvName      string
	BaseURL      string
	Format       string
	Verbose      int

	// Stacks builds CloudFormation clients for the AWS stack lookup.
	// Nil selects aws.NewStackClient.
	Stacks aws.StackClientFactory
	// In overrides the command's stdin for prompts and --query -.
	In io.Reader
}

// Execute runs cmd with a context that is cancelled on SIGINT or SIGTERM.
// Cancellation fails the running step, so the session is still released.
func Execute(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd.ExecuteContext(ctx)
}

// stdin returns In when set and the command's stdin otherwise.
func (o *RootOptions) stdin(cmd *cobra.Command) io.Reader {
	if o.In != nil {
		return o.In
	}
	return cmd.InOrStdin()
}

// NewRootCommand creates the rscctl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rscctl",
		Short: "Rubrik Security Cloud automation",
		Long: `rscctl lists SLA domains, onboards AWS accounts and Azure subscriptions
into Rubrik Security Cloud, runs raw GraphQL and serves the same operations
as MCP tools.

Credentials come from --client-id/--client-secret, then RUBRIK_CLIENT_ID and
RUBRIK_CLIENT_SECRET, then the config file.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return usageErrorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			_ = cmd.Help()
			return usageErrorf("a command is required")
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "config file (default $RSCCTL_CONFIG_PATH or ~/.config/rscctl/config.yaml)")
	pf.StringVar(&opts.ClientID, "client-id", "", "RSC service account client ID")
	pf.StringVar(&opts.ClientSecret, "client-secret", "", "RSC service account client secret")
	pf.StringVar(&opts.EnvName, "env-name", "", "RSC account prefix, as in <env-name>.my.rubrik.com")
	pf.StringVar(&opts.BaseURL, "base-url", "", "RSC base URL, overrides --env-name")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.CountVarP(&opts.Verbose, "verbose", "v", "log verbosity, repeat for more")

	cmd.AddCommand(NewSLACommand(opts))
	cmd.AddCommand(NewAWSCommand(opts))
	cmd.AddCommand(NewAzureCommand(opts))
	cmd.AddCommand(NewGraphQLCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// noArgs is cobra.NoArgs reported as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageErrorf("unexpected argument %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return usageError(fmt.Errorf("--%s is required", name))
	}
	return nil
}
