package azure

import (
	"context"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/workflow"
)

// Output keys.
const (
	OutPermissions   = "permissions"
	OutAcknowledged  = "acknowledged"
	OutTenantID      = "tenantId"
	OutSubscriptions = "subscriptions"
)

// RoleAssignmentInstructions is the pause reason of the role-assignment step.
const RoleAssignmentInstructions = "Create a custom Azure role with the required permissions, assign it to the " +
	"application at the subscription scope, then run again and confirm the assignment."

// Plan validates in against filter and returns the onboarding steps. ack
// decides whether the role assignment is confirmed; nil pauses there.
func Plan(in Input, filter *safety.Filter, ack Acknowledger) ([]workflow.Step, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := filter.Check("Azure subscription", in.SubscriptionID); err != nil {
		return nil, err
	}
	if ack == nil {
		ack = Acknowledged(false)
	}

	params := in.params()
	return []workflow.Step{
		{Name: StepSetAppCredentials, Input: params, Execute: setAppCredentials(in)},
		{Name: StepRequiredPermissions, Input: params, Execute: requiredPermissions(in)},
		{Name: StepRoleAssignment, Input: params, Execute: roleAssignment(in, ack)},
		{Name: StepAddSubscription, Input: params, Execute: addSubscription(in)},
	}, nil
}

type stepFunc = func(ctx context.Context, client graphql.Client, prior workflow.Outputs) workflow.Result

func setAppCredentials(in Input) stepFunc {
	return func(ctx context.Context, client graphql.Client, _ workflow.Outputs) workflow.Result {
		if err := NewManager(client).SetAppCredentials(ctx, in); err != nil {
			return workflow.Fail(err)
		}
		return workflow.Success(map[string]any{"tenantDomain": in.TenantDomain})
	}
}

func requiredPermissions(in Input) stepFunc {
	return func(ctx context.Context, client graphql.Client, _ workflow.Outputs) workflow.Result {
		perms, err := NewManager(client).RequiredPermissions(ctx, in.FeatureType)
		if err != nil {
			return workflow.Fail(err)
		}
		return workflow.Success(map[string]any{OutPermissions: perms})
	}
}

func roleAssignment(in Input, ack Acknowledger) stepFunc {
	return func(ctx context.Context, _ graphql.Client, prior workflow.Outputs) workflow.Result {
		perms, _ := prior[StepRequiredPermissions][OutPermissions].([]FeaturePermission)
		ok, err := ack.Acknowledge(ctx, AckRequest{SubscriptionID: in.SubscriptionID, Permissions: perms})
		if err != nil {
			return workflow.Fail(err)
		}
		if !ok {
			return workflow.NeedsInput(RoleAssignmentInstructions, map[string]any{OutPermissions: perms})
		}
		return workflow.Success(map[string]any{OutAcknowledged: true})
	}
}

func addSubscription(in Input) stepFunc {
	return func(ctx context.Context, client graphql.Client, _ workflow.Outputs) workflow.Result {
		res, err := NewManager(client).AddSubscription(ctx, in)
		if res == nil {
			return workflow.Fail(err)
		}
		out := map[string]any{OutTenantID: res.TenantID, OutSubscriptions: res.Status}
		if err != nil {
			return workflow.FailWith(err, out)
		}
		return workflow.Success(out)
	}
}
