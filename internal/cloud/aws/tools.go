package aws

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/tools"
)

const toolNameAccountAdd = "aws_account_add"

// AWSTools returns the MCP tools for AWS onboarding. stacks may be nil.
func AWSTools(runner tools.WorkflowRunner, filter *safety.Filter, stacks StackClientFactory, audit *safety.AuditLogger) []tools.Registration {
	return []tools.Registration{
		toolAccountAdd(runner, filter, stacks, audit),
	}
}

func toolAccountAdd(runner tools.WorkflowRunner, filter *safety.Filter, stacks StackClientFactory, audit *safety.AuditLogger) tools.Registration {
	tool := mcp.NewTool(toolNameAccountAdd,
		mcp.WithDescription("Onboard an AWS account into Rubrik Security Cloud for cloud-native protection. "+
			"Without a role ARN or stack lookup the run pauses after RSC returns the CloudFormation template; "+
			"deploy it and call again with role_arn (or stack_region) to finish. Safe to call again with the same arguments."),
		mcp.WithString("account_id",
			mcp.Required(),
			mcp.Description("The 12 digit AWS account ID."),
		),
		mcp.WithString("account_name",
			mcp.Required(),
			mcp.Description("A descriptive name for the account in RSC."),
		),
		mcp.WithString("regions",
			mcp.Required(),
			mcp.Description("Comma separated regions to protect, e.g. US_EAST_1,EU_WEST_2."),
		),
		mcp.WithString("role_arn",
			mcp.Description("The CrossAccountRoleARN output of the deployed CloudFormation stack."),
		),
		mcp.WithString("stack_region",
			mcp.Description("AWS region of the deployed stack. When set, the role ARN is read from the stack outputs."),
		),
		mcp.WithString("stack_name",
			mcp.Description("Stack name for the lookup. Defaults to the stack name suggested by RSC."),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		in := Input{
			AccountID:   req.GetString("account_id", ""),
			AccountName: req.GetString("account_name", ""),
			Regions:     NormalizeRegions([]string{req.GetString("regions", "")}),
			RoleARN:     req.GetString("role_arn", ""),
		}
		if region := req.GetString("stack_region", ""); region != "" {
			in.StackLookup = &StackLookup{Region: region, StackName: req.GetString("stack_name", "")}
		}
		params := in.params()

		steps, err := Plan(in, filter, stacks)
		if err != nil {
			tools.LogAudit(audit, toolNameAccountAdd, params, "error: "+err.Error(), start)
			return tools.ErrorResult(err.Error()), nil
		}

		state, err := runner.Run(ctx, WorkflowName, steps)
		tools.LogAudit(audit, toolNameAccountAdd, params, tools.ResultLabel(state, err), start)
		return tools.WorkflowResult(state, err), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
