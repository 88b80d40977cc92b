package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
)

const toolNameGraphQLQuery = "graphql_query"

// GraphQLTools returns the raw GraphQL escape hatch. Each call authenticates
// through scope, so no token outlives a tool call.
func GraphQLTools(scope graphql.Scope, audit *safety.AuditLogger) []Registration {
	return []Registration{
		toolGraphQLQuery(scope, audit),
	}
}

func toolGraphQLQuery(scope graphql.Scope, audit *safety.AuditLogger) Registration {
	tool := mcp.NewTool(toolNameGraphQLQuery,
		mcp.WithDescription("Execute an arbitrary GraphQL query or mutation against the Rubrik Security Cloud API. Use when direct API access is needed beyond the provided tools."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The GraphQL query or mutation string to execute."),
		),
		mcp.WithString("variables",
			mcp.Description("Optional JSON object string of variables to pass with the query."),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		query := req.GetString("query", "")
		variablesStr := req.GetString("variables", "")

		params := map[string]any{"query": query}

		if strings.TrimSpace(query) == "" {
			LogAudit(audit, toolNameGraphQLQuery, params, "error: empty query", start)
			return ErrorResult("query is required"), nil
		}

		parsedVars, err := graphql.ParseVariables(variablesStr)
		if err != nil {
			LogAudit(audit, toolNameGraphQLQuery, params, "error: "+err.Error(), start)
			return ErrorResult(err.Error()), nil
		}
		// Parsed so nested credential keys are redacted by the audit logger.
		if parsedVars != nil {
			params["variables"] = parsedVars
		}

		var parsed any
		err = scope(ctx, func(ctx context.Context, client graphql.Client) error {
			data, err := client.Execute(ctx, query, parsedVars)
			if err != nil {
				return err
			}
			// Unmarshal into any so JSONResult can re-indent it.
			return json.Unmarshal(data, &parsed)
		})
		if err != nil {
			LogAudit(audit, toolNameGraphQLQuery, params, "error: "+err.Error(), start)
			return ErrorResult(err.Error()), nil
		}

		LogAudit(audit, toolNameGraphQLQuery, params, "ok", start)
		return JSONResult(parsed), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
