package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/cloud/aws"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
)

// AWSAddOptions holds the flags of `aws add`.
type AWSAddOptions struct {
	AccountID   string
	AccountName string
	Regions     []string
	RoleARN     string
	StackLookup bool
	StackName   string
	StackRegion string
}

// NewAWSCommand creates the aws command group.
func NewAWSCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aws",
		Short: "Onboard AWS accounts",
	}
	cmd.AddCommand(newAWSAddCommand(rootOpts))
	return cmd
}

func newAWSAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AWSAddOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Onboard an AWS account for cloud-native protection",
		Long: `Onboard an AWS account into Rubrik Security Cloud.

Without --role-arn or a stack lookup the run stops after RSC returns the
CloudFormation template. Deploy the stack, then run the same command again
with --role-arn (or --stack-lookup) to finish. Running again is safe.`,
		Example: `  rscctl aws add --account-id 123456789012 --account-name prod --regions us-east-1,eu-west-2
  rscctl aws add --account-id 123456789012 --account-name prod --regions us-east-1 --stack-lookup --stack-region us-east-1`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAWSAdd(rootOpts, opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.AccountID, "account-id", "", "12 digit AWS account ID")
	f.StringVar(&opts.AccountName, "account-name", "", "name of the account in RSC")
	f.StringSliceVar(&opts.Regions, "regions", nil, "regions to protect, comma separated (us-east-1 or US_EAST_1)")
	f.StringVar(&opts.RoleARN, "role-arn", "", "CrossAccountRoleARN output of the deployed stack")
	f.BoolVar(&opts.StackLookup, "stack-lookup", false, "read the role ARN from the deployed CloudFormation stack")
	f.StringVar(&opts.StackName, "stack-name", "", "stack to read, defaults to the name suggested by RSC")
	f.StringVar(&opts.StackRegion, "stack-region", "", "AWS region of the stack, implies --stack-lookup")

	return cmd
}

func (o *AWSAddOptions) input() aws.Input {
	in := aws.Input{
		AccountID:   o.AccountID,
		AccountName: o.AccountName,
		Regions:     aws.NormalizeRegions(o.Regions),
		RoleARN:     o.RoleARN,
	}
	if o.StackLookup || o.StackRegion != "" {
		in.StackLookup = &aws.StackLookup{StackName: o.StackName, Region: o.StackRegion}
	}
	return in
}

func runAWSAdd(rootOpts *RootOptions, opts *AWSAddOptions, cmd *cobra.Command) error {
	a, err := rootOpts.newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	steps, err := aws.Plan(opts.input(), a.filter, rootOpts.Stacks)
	if err != nil {
		return planError(err)
	}

	state, err := a.runner.Run(cmd.Context(), aws.WorkflowName, steps)
	return runResult(cmd.OutOrStdout(), rootOpts.Format, state, err)
}

// planError reports invalid input as a usage error. A filter rejection is a
// failure: the input was well formed but policy forbids it.
func planError(err error) error {
	var notAllowed *safety.NotAllowedError
	if errors.As(err, &notAllowed) {
		return err
	}
	return usageError(err)
}
