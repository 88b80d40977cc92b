package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/paginate"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/sla"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/workflow"
)

// NewSLACommand creates the sla command group.
func NewSLACommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sla",
		Short: "Work with SLA domains",
	}
	cmd.AddCommand(newSLAListCommand(rootOpts))
	return cmd
}

func newSLAListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every SLA domain with its snapshot schedules",
		Long: `List every SLA domain in Rubrik Security Cloud, following the cursor until
the last page, and print the hourly, daily, weekly, monthly and yearly
snapshot schedule of each.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSLAList(rootOpts, cmd)
		},
	}
}

func runSLAList(opts *RootOptions, cmd *cobra.Command) error {
	a, err := opts.newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	pageOpts := []paginate.Option{
		paginate.WithMaxPages(a.cfg.Pagination.MaxPages),
		paginate.WithMetrics(a.metrics, "slaDomains"),
		paginate.WithPageHook(func(pi paginate.PageInfo) {
			if opts.Format == "text" {
				fmt.Fprintf(out, "SLA domains retrieved so far: %d. end_cursor: %s\n", pi.Collected, pi.Cursor)
				return
			}
			a.log.V(1).Info("page fetched", "page", pi.Number, "collected", pi.Collected, "cursor", pi.Cursor)
		}),
	}

	state, err := a.runner.Run(cmd.Context(), sla.WorkflowName, []workflow.Step{sla.ListStep(pageOpts...)})
	if err != nil {
		return runResult(cmd.ErrOrStderr(), "text", state, err)
	}

	domains := sla.DomainsFrom(state)
	if opts.Format == "json" {
		return sla.WriteJSON(out, domains)
	}
	fmt.Fprintln(out)
	return sla.WriteText(out, domains)
}
