package sla

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/paginate"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/tools"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/workflow"
)

const toolNameSLAList = "sla_list"

// SLATools returns the MCP tools for SLA domains.
func SLATools(runner tools.WorkflowRunner, audit *safety.AuditLogger, opts ...paginate.Option) []tools.Registration {
	return []tools.Registration{
		toolSLAList(runner, audit, opts),
	}
}

func toolSLAList(runner tools.WorkflowRunner, audit *safety.AuditLogger, opts []paginate.Option) tools.Registration {
	tool := mcp.NewTool(toolNameSLAList,
		mcp.WithDescription("List every SLA domain in Rubrik Security Cloud with its hourly, daily, weekly, monthly and yearly snapshot schedules. Read-only."),
	)

	handler := func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		state, err := runner.Run(ctx, WorkflowName, []workflow.Step{ListStep(opts...)})
		tools.LogAudit(audit, toolNameSLAList, nil, tools.ResultLabel(state, err), start)
		if err != nil {
			return tools.WorkflowResult(state, err), nil
		}

		domains := DomainsFrom(state)
		if domains == nil {
			domains = []Domain{}
		}
		return tools.JSONResult(domains), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
