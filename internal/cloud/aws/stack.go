package aws

import (
	"context"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// DescribeStacksAPI is the one CloudFormation call the role lookup needs.
type DescribeStacksAPI interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

var _ DescribeStacksAPI = (*cloudformation.Client)(nil)

// StackClientFactory returns a CloudFormation client for region.
type StackClientFactory func(ctx context.Context, region string) (DescribeStacksAPI, error)

// NewStackClient builds a CloudFormation client from the default AWS
// credential chain (environment, shared config, SSO, instance role).
func NewStackClient(ctx context.Context, region string) (DescribeStacksAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return cloudformation.NewFromConfig(cfg), nil
}

// StackNotReadyError means the stack cannot provide the role ARN yet. The
// operator has to deploy or finish deploying it.
type StackNotReadyError struct {
	StackName string
	Reason    string
}

func (e *StackNotReadyError) Error() string {
	return fmt.Sprintf("stack %q: %s", e.StackName, e.Reason)
}

var completeStatuses = map[cftypes.StackStatus]bool{
	cftypes.StackStatusCreateComplete:         true,
	cftypes.StackStatusUpdateComplete:         true,
	cftypes.StackStatusUpdateRollbackComplete: true,
	cftypes.StackStatusImportComplete:         true,
}

// LookupRoleARN reads the CrossAccountRoleARN output of stackName. A missing
// stack, an incomplete deployment or a missing output is a
// *StackNotReadyError; anything else is returned as is.
func LookupRoleARN(ctx context.Context, api DescribeStacksAPI, stackName string) (string, error) {
	out, err := api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: awssdk.String(stackName)})
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return "", &StackNotReadyError{StackName: stackName, Reason: "stack does not exist"}
		}
		return "", fmt.Errorf("describe stack %q: %w", stackName, err)
	}
	if len(out.Stacks) == 0 {
		return "", &StackNotReadyError{StackName: stackName, Reason: "stack does not exist"}
	}

	stack := out.Stacks[0]
	if !completeStatuses[stack.StackStatus] {
		return "", &StackNotReadyError{StackName: stackName, Reason: fmt.Sprintf("stack status is %s", stack.StackStatus)}
	}
	for _, o := range stack.Outputs {
		if awssdk.ToString(o.OutputKey) == StackOutputRoleARN && awssdk.ToString(o.OutputValue) != "" {
			return awssdk.ToString(o.OutputValue), nil
		}
	}
	return "", &StackNotReadyError{StackName: stackName, Reason: "no " + StackOutputRoleARN + " output"}
}
