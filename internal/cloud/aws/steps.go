package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/workflow"
)

// Output keys.
const (
	OutCloudFormationURL = "cloudFormationUrl"
	OutTemplateURL       = "templateUrl"
	OutStackName         = "stackName"
	OutExternalID        = "externalId"
	OutRoleARN           = "roleArn"
	OutRoleSource        = "roleSource"
	OutChildAccounts     = "awsChildAccounts"
	OutMappings          = "mappings"
)

// Plan validates in against filter and returns the onboarding steps. stacks
// is only used when in.StackLookup is set; nil selects NewStackClient.
func Plan(in Input, filter *safety.Filter, stacks StackClientFactory) ([]workflow.Step, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := filter.Check("AWS account", in.AccountID); err != nil {
		return nil, err
	}
	if stacks == nil {
		stacks = NewStackClient
	}

	params := in.params()
	return []workflow.Step{
		{Name: StepValidateAndInitiate, Input: params, Execute: validateAndInitiate(in)},
		{Name: StepCrossAccountRole, Input: params, Execute: crossAccountRole(in, stacks)},
		{Name: StepFinalizeProtection, Input: params, Execute: finalizeProtection(in)},
		{Name: StepRegisterArtifacts, Input: params, Execute: registerArtifacts(in)},
	}, nil
}

type stepFunc = func(ctx context.Context, client graphql.Client, prior workflow.Outputs) workflow.Result

func validateAndInitiate(in Input) stepFunc {
	return func(ctx context.Context, client graphql.Client, _ workflow.Outputs) workflow.Result {
		resp, err := NewManager(client).ValidateAndInitiate(ctx, in)
		if err != nil {
			return workflow.Fail(err)
		}
		return workflow.Success(map[string]any{
			OutCloudFormationURL: resp.CloudFormationURL,
			OutTemplateURL:       resp.TemplateURL,
			OutStackName:         resp.StackName,
			OutExternalID:        resp.ExternalID,
		})
	}
}

// deployInstructions is shown whenever the run pauses for the role ARN.
func deployInstructions(prior workflow.Outputs) string {
	return fmt.Sprintf(
		"Deploy the CloudFormation template %s in the AWS account (console: %s, suggested stack name: %s), "+
			"then run again with the %s output of the stack as the cross-account role ARN, or enable the stack lookup.",
		prior.String(StepValidateAndInitiate, OutTemplateURL),
		prior.String(StepValidateAndInitiate, OutCloudFormationURL),
		prior.String(StepValidateAndInitiate, OutStackName),
		StackOutputRoleARN,
	)
}

func crossAccountRole(in Input, stacks StackClientFactory) stepFunc {
	return func(ctx context.Context, _ graphql.Client, prior workflow.Outputs) workflow.Result {
		initiated := prior[StepValidateAndInitiate]

		if in.RoleARN != "" {
			return workflow.Success(map[string]any{OutRoleARN: in.RoleARN, OutRoleSource: "input"})
		}
		if in.StackLookup == nil {
			return workflow.NeedsInput(deployInstructions(prior), initiated)
		}

		stackName := in.StackLookup.StackName
		if stackName == "" {
			stackName = prior.String(StepValidateAndInitiate, OutStackName)
		}
		api, err := stacks(ctx, in.StackLookup.Region)
		if err != nil {
			return workflow.Fail(err)
		}
		roleARN, err := LookupRoleARN(ctx, api, stackName)
		var notReady *StackNotReadyError
		switch {
		case errors.As(err, &notReady):
			return workflow.NeedsInput(notReady.Error()+". "+deployInstructions(prior), initiated)
		case err != nil:
			return workflow.Fail(err)
		}
		if err := ValidateRoleARN(roleARN, in.AccountID); err != nil {
			return workflow.Fail(err)
		}
		return workflow.Success(map[string]any{OutRoleARN: roleARN, OutRoleSource: "cloudformation:" + stackName})
	}
}

func finalizeProtection(in Input) stepFunc {
	return func(ctx context.Context, client graphql.Client, _ workflow.Outputs) workflow.Result {
		accounts, err := NewManager(client).FinalizeProtection(ctx, in)
		if err != nil {
			return workflow.Fail(err)
		}
		return workflow.Success(map[string]any{OutChildAccounts: accounts})
	}
}

func registerArtifacts(in Input) stepFunc {
	return func(ctx context.Context, client graphql.Client, prior workflow.Outputs) workflow.Result {
		roleARN := prior.String(StepCrossAccountRole, OutRoleARN)
		if roleARN == "" {
			return workflow.Failf("no cross-account role ARN recorded by %s", StepCrossAccountRole)
		}
		mappings, err := NewManager(client).RegisterArtifacts(ctx, in.AccountID, roleARN)
		if err != nil {
			return workflow.Fail(err)
		}
		return workflow.Success(map[string]any{OutMappings: mappings})
	}
}
