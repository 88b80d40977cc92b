package azure

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/tools"
)

const toolNameSubscriptionAdd = "azure_subscription_add"

// AzureTools returns the MCP tools for Azure onboarding. A nil confirm gets a
// tracker with the default TTL.
func AzureTools(runner tools.WorkflowRunner, filter *safety.Filter, confirm *safety.ConfirmationTracker, audit *safety.AuditLogger) []tools.Registration {
	if confirm == nil {
		confirm = safety.NewConfirmationTracker(0)
	}
	return []tools.Registration{
		toolSubscriptionAdd(runner, filter, confirm, audit),
	}
}

func toolSubscriptionAdd(runner tools.WorkflowRunner, filter *safety.Filter, confirm *safety.ConfirmationTracker, audit *safety.AuditLogger) tools.Registration {
	tool := mcp.NewTool(toolNameSubscriptionAdd,
		mcp.WithDescription("Onboard an Azure subscription into Rubrik Security Cloud without OAuth. "+
			"The first call returns the permissions of the custom role to assign and a confirmation token; "+
			"call again with the same arguments and the token once the role is assigned."),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Azure AD application (client) ID.")),
		mcp.WithString("app_secret", mcp.Required(), mcp.Description("Azure AD application secret value.")),
		mcp.WithString("app_name", mcp.Description("Azure AD application name. Defaults to rubrik-rsc-app.")),
		mcp.WithString("tenant_domain", mcp.Required(), mcp.Description("Tenant domain, e.g. contoso.onmicrosoft.com.")),
		mcp.WithString("cloud_type", mcp.Description("AZUREPUBLICCLOUD (default) or AZUREGOVERNMENTCLOUD.")),
		mcp.WithBoolean("should_replace", mcp.Description("Replace app credentials already stored in RSC.")),
		mcp.WithString("subscription_id", mcp.Required(), mcp.Description("Azure subscription ID (GUID).")),
		mcp.WithString("subscription_name", mcp.Required(), mcp.Description("A descriptive name for the subscription.")),
		mcp.WithString("regions", mcp.Required(), mcp.Description("Comma separated regions to protect, e.g. UKSOUTH,EASTUS.")),
		mcp.WithString("feature_type", mcp.Required(), mcp.Description("Feature to enable, e.g. CLOUD_NATIVE_BLOB_PROTECTION.")),
		mcp.WithString("resource_group", mcp.Description("Resource group name for features that need one.")),
		mcp.WithString("resource_group_region", mcp.Description("Resource group region. Required with resource_group.")),
		mcp.WithString("confirmation_token", mcp.Description("Token returned by a prior call, confirming the role is assigned.")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		in := Input{
			AppID:            req.GetString("app_id", ""),
			AppName:          req.GetString("app_name", ""),
			AppSecret:        req.GetString("app_secret", ""),
			TenantDomain:     req.GetString("tenant_domain", ""),
			CloudType:        req.GetString("cloud_type", ""),
			ShouldReplace:    req.GetBool("should_replace", false),
			SubscriptionID:   req.GetString("subscription_id", ""),
			SubscriptionName: req.GetString("subscription_name", ""),
			Regions:          NormalizeRegions([]string{req.GetString("regions", "")}),
			FeatureType:      req.GetString("feature_type", ""),
		}
		if name, region := req.GetString("resource_group", ""), req.GetString("resource_group_region", ""); name != "" || region != "" {
			in.ResourceGroup = &ResourceGroup{Name: name, Region: region}
		}
		in = in.WithDefaults()
		params := in.params()

		ack := tokenAck{confirm: confirm, token: req.GetString("confirmation_token", ""), resource: in.SubscriptionID}
		steps, err := Plan(in, filter, ack)
		if err != nil {
			tools.LogAudit(audit, toolNameSubscriptionAdd, params, "error: "+err.Error(), start)
			return tools.ErrorResult(err.Error()), nil
		}

		state, err := runner.Run(ctx, WorkflowName, steps)
		tools.LogAudit(audit, toolNameSubscriptionAdd, params, tools.ResultLabel(state, err), start)

		if err == nil && state.Pause() != nil && state.Pause().Name == StepRoleAssignment {
			perms, _ := state.Output(StepRoleAssignment)[OutPermissions].([]FeaturePermission)
			return tools.ConfirmPrompt(confirm, toolNameSubscriptionAdd, in.SubscriptionID, describePermissions(perms)), nil
		}
		return tools.WorkflowResult(state, err), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// tokenAck consumes the confirmation token only once the run reaches the
// role-assignment step. Invalid input or an earlier failed step leaves it
// usable for a retry.
type tokenAck struct {
	confirm  *safety.ConfirmationTracker
	token    string
	resource string
}

func (a tokenAck) Acknowledge(context.Context, AckRequest) (bool, error) {
	return a.confirm.Confirm(a.token, toolNameSubscriptionAdd, a.resource), nil
}

func describePermissions(perms []FeaturePermission) string {
	var b strings.Builder
	_ = WritePermissions(&b, perms)
	b.WriteString("\n")
	b.WriteString(RoleAssignmentInstructions)
	return b.String()
}
