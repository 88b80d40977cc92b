package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/tools"
)

// GraphQLOptions holds the flags of `graphql`.
type GraphQLOptions struct {
	Query     string
	Variables string
}

// NewGraphQLCommand creates the raw GraphQL command.
func NewGraphQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphQLOptions{}

	cmd := &cobra.Command{
		Use:   "graphql",
		Short: "Run one GraphQL query or mutation against RSC",
		Long: `Authenticate, send one GraphQL document, print the "data" object and
delete the session. --query @file reads the document from a file and
--query - reads it from stdin.`,
		Example: `  rscctl graphql --query '{ slaDomains { count } }'
  rscctl graphql --query @clusters.graphql --variables '{"first": 10}'`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphQL(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "GraphQL document, @file or - for stdin")
	cmd.Flags().StringVar(&opts.Variables, "variables", "", "JSON object of variables")

	return cmd
}

func runGraphQL(rootOpts *RootOptions, opts *GraphQLOptions, cmd *cobra.Command) error {
	if err := requireFlag("query", opts.Query); err != nil {
		return err
	}
	query, err := readDocument(opts.Query, rootOpts.stdin(cmd))
	if err != nil {
		return usageError(err)
	}
	vars, err := graphql.ParseVariables(opts.Variables)
	if err != nil {
		return usageError(err)
	}

	a, err := rootOpts.newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	var data []byte
	err = a.sessions.Do(cmd.Context(), func(ctx context.Context, c graphql.Client) error {
		var execErr error
		data, execErr = c.Execute(ctx, query, vars)
		return execErr
	})
	params := map[string]any{"query": query}
	if vars != nil {
		params["variables"] = vars
	}
	if err != nil {
		tools.LogAudit(a.audit, "graphql", params, "error: "+err.Error(), start)
		return err
	}
	tools.LogAudit(a.audit, "graphql", params, "ok", start)

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), v)
}

var errEmptyQuery = errors.New("query is empty")

// readDocument resolves the @file and - forms of --query.
func readDocument(arg string, stdin io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	switch {
	case arg == "-":
		b, err = io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		b, err = os.ReadFile(strings.TrimPrefix(arg, "@"))
	default:
		b = []byte(arg)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errEmptyQuery
	}
	return string(b), nil
}
