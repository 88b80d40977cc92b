package cli

import (
	"github.com/spf13/cobra"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/cloud/azure"
)

// AzureAddOptions holds the flags of `azure add`.
type AzureAddOptions struct {
	AppID               string
	AppName             string
	AppSecret           string
	TenantDomain        string
	CloudType           string
	ShouldReplace       bool
	SubscriptionID      string
	SubscriptionName    string
	Regions             []string
	FeatureType         string
	ResourceGroupName   string
	ResourceGroupRegion string
	RoleAssigned        bool
}

// NewAzureCommand creates the azure command group.
func NewAzureCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "azure",
		Short: "Onboard Azure subscriptions",
	}
	cmd.AddCommand(newAzureAddCommand(rootOpts))
	return cmd
}

func newAzureAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AzureAddOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Onboard an Azure subscription without OAuth",
		Long: `Register an Azure AD application with Rubrik Security Cloud and add a
subscription through it.

After RSC reports the permissions the feature needs, rscctl waits for Enter
while you create a custom role with those permissions and assign it to the
application. Pass --role-assigned when that is already done. Without a
terminal the run stops there and can be run again later.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAzureAdd(rootOpts, opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.AppID, "app-id", "", "Azure AD application (client) ID")
	f.StringVar(&opts.AppName, "app-name", azure.DefaultAppName, "Azure AD application name")
	f.StringVar(&opts.AppSecret, "app-secret", "", "Azure AD application secret")
	f.StringVar(&opts.TenantDomain, "tenant-domain", "", "Azure AD tenant domain, e.g. contoso.onmicrosoft.com")
	f.StringVar(&opts.CloudType, "cloud-type", azure.DefaultCloudType, "Azure cloud type")
	f.BoolVar(&opts.ShouldReplace, "should-replace", false, "replace existing application credentials")
	f.StringVar(&opts.SubscriptionID, "subscription-id", "", "subscription ID (GUID)")
	f.StringVar(&opts.SubscriptionName, "subscription-name", "", "subscription name")
	f.StringSliceVar(&opts.Regions, "regions", nil, "regions to protect, comma separated (e.g. EASTUS,WESTEUROPE)")
	f.StringVar(&opts.FeatureType, "feature-type", "", "RSC feature, e.g. AZURE_SQL_DB_PROTECTION")
	f.StringVar(&opts.ResourceGroupName, "resource-group-name", "", "resource group for features that need one")
	f.StringVar(&opts.ResourceGroupRegion, "resource-group-region", "", "region of the resource group")
	f.BoolVar(&opts.RoleAssigned, "role-assigned", false, "the custom role is already assigned, do not prompt")

	return cmd
}

func (o *AzureAddOptions) input() azure.Input {
	in := azure.Input{
		AppID:            o.AppID,
		AppName:          o.AppName,
		AppSecret:        o.AppSecret,
		TenantDomain:     o.TenantDomain,
		CloudType:        o.CloudType,
		ShouldReplace:    o.ShouldReplace,
		SubscriptionID:   o.SubscriptionID,
		SubscriptionName: o.SubscriptionName,
		Regions:          azure.NormalizeRegions(o.Regions),
		FeatureType:      o.FeatureType,
	}
	if o.ResourceGroupName != "" || o.ResourceGroupRegion != "" {
		in.ResourceGroup = &azure.ResourceGroup{Name: o.ResourceGroupName, Region: o.ResourceGroupRegion}
	}
	return in
}

func runAzureAdd(rootOpts *RootOptions, opts *AzureAddOptions, cmd *cobra.Command) error {
	a, err := rootOpts.newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	var ack azure.Acknowledger = azure.Acknowledged(true)
	if !opts.RoleAssigned {
		promptOut := out
		if rootOpts.Format == "json" {
			promptOut = cmd.ErrOrStderr()
		}
		ack = azure.PromptAcknowledger{In: rootOpts.stdin(cmd), Out: promptOut}
	}

	steps, err := azure.Plan(opts.input(), a.filter, ack)
	if err != nil {
		return planError(err)
	}

	state, err := a.runner.Run(cmd.Context(), azure.WorkflowName, steps)
	return runResult(out, rootOpts.Format, state, err)
}
