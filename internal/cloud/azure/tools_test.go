package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/tools"
)

var tokenPattern = regexp.MustCompile(`confirmation_token="([a-f0-9]+)"`)

func toolArgs(extra map[string]any) map[string]any {
	args := map[string]any{
		"app_id":            "app-id",
		"app_secret":        "app-secret",
		"tenant_domain":     "contoso.onmicrosoft.com",
		"subscription_id":   testSubscription,
		"subscription_name": "prod",
		"regions":           "uksouth,eastus",
		"feature_type":      "CLOUD_NATIVE_BLOB_PROTECTION",
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func call(t *testing.T, reg tools.Registration, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := reg.Handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return res, tc.Text
}

func Test_SubscriptionAdd_TokenRoundTrip(t *testing.T) {
	tenant := newAzureTenant()
	runner, fake := newAzureRunner(t, tenant)
	var buf bytes.Buffer
	reg := AzureTools(runner, nil, safety.NewConfirmationTracker(time.Minute), safety.NewAuditLogger(&buf))[0]

	// First call: permissions and a token.
	_, text := call(t, reg, toolArgs(nil))
	for _, want := range []string{"Acknowledgment required", "Microsoft.Storage/*/read", RoleAssignmentInstructions} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q\n%s", want, text)
		}
	}
	m := tokenPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		t.Fatalf("no token in prompt:\n%s", text)
	}
	if len(tenant.subscriptions) != 0 {
		t.Fatal("subscription added before acknowledgment")
	}

	// Second call with the token: the subscription is added.
	res, text := call(t, reg, toolArgs(map[string]any{"confirmation_token": m[1]}))
	if res.IsError {
		t.Fatalf("unexpected error result:\n%s", text)
	}
	var summary tools.RunSummary
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		t.Fatalf("result is not a run summary: %v\n%s", err, text)
	}
	if summary.Outcome != "completed" {
		t.Errorf("outcome = %s, want completed", summary.Outcome)
	}
	if tenant.subscriptions[testSubscription] == "" {
		t.Error("subscription was not added")
	}
	if fake.DeleteCalls() != 2 {
		t.Errorf("sessions deleted = %d, want 2", fake.DeleteCalls())
	}
	if strings.Contains(buf.String(), "app-secret") {
		t.Error("audit log leaked the app secret")
	}
}

func Test_SubscriptionAdd_TokenBoundToSubscription(t *testing.T) {
	tenant := newAzureTenant()
	runner, _ := newAzureRunner(t, tenant)
	confirm := safety.NewConfirmationTracker(time.Minute)
	reg := AzureTools(runner, nil, confirm, nil)[0]

	token := confirm.RequestConfirmation("azure_subscription_add", "11111111-2222-3333-4444-555555555555", "")
	_, text := call(t, reg, toolArgs(map[string]any{"confirmation_token": token}))

	if !strings.Contains(text, "Acknowledgment required") {
		t.Errorf("a token for another subscription must not confirm:\n%s", text)
	}
	if len(tenant.subscriptions) != 0 {
		t.Error("subscription added with a foreign token")
	}
}

func Test_SubscriptionAdd_InvalidInput(t *testing.T) {
	tenant := newAzureTenant()
	runner, fake := newAzureRunner(t, tenant)
	reg := AzureTools(runner, nil, nil, nil)[0]

	res, text := call(t, reg, toolArgs(map[string]any{"subscription_id": "prod"}))
	if !res.IsError || !strings.Contains(text, "not a GUID") {
		t.Errorf("IsError = %v, text = %s", res.IsError, text)
	}
	if len(fake.Calls()) != 0 || fake.TokenCalls() != 0 {
		t.Error("invalid input must not reach RSC")
	}
}

func Test_SubscriptionAdd_TokenSurvivesInvalidInput(t *testing.T) {
	tenant := newAzureTenant()
	runner, _ := newAzureRunner(t, tenant)
	confirm := safety.NewConfirmationTracker(time.Minute)
	reg := AzureTools(runner, nil, confirm, nil)[0]

	token := confirm.RequestConfirmation(toolNameSubscriptionAdd, testSubscription, "")
	res, _ := call(t, reg, toolArgs(map[string]any{"confirmation_token": token, "resource_group": "rg-only"}))
	if !res.IsError {
		t.Fatal("expected an error result for a resource group without a region")
	}
	if confirm.Pending() != 1 {
		t.Fatalf("pending tokens = %d, want 1", confirm.Pending())
	}

	res, text := call(t, reg, toolArgs(map[string]any{"confirmation_token": token}))
	if res.IsError || strings.Contains(text, "Acknowledgment required") {
		t.Fatalf("retry with the same token did not complete:\n%s", text)
	}
	if tenant.subscriptions[testSubscription] == "" {
		t.Error("subscription was not added on retry")
	}
}

func Test_SubscriptionAdd_TokenSurvivesEarlyStepFailure(t *testing.T) {
	tenant := newAzureTenant()
	tenant.rejectCredentials = true
	runner, _ := newAzureRunner(t, tenant)
	confirm := safety.NewConfirmationTracker(time.Minute)
	reg := AzureTools(runner, nil, confirm, nil)[0]

	token := confirm.RequestConfirmation(toolNameSubscriptionAdd, testSubscription, "")
	res, text := call(t, reg, toolArgs(map[string]any{"confirmation_token": token}))
	if !res.IsError || !strings.Contains(text, StepSetAppCredentials) {
		t.Fatalf("expected a failed set-app-credentials step:\n%s", text)
	}
	if confirm.Pending() != 1 {
		t.Fatalf("pending tokens = %d, want 1", confirm.Pending())
	}

	tenant.mu.Lock()
	tenant.rejectCredentials = false
	tenant.mu.Unlock()
	res, text = call(t, reg, toolArgs(map[string]any{"confirmation_token": token}))
	if res.IsError {
		t.Fatalf("retry failed:\n%s", text)
	}
	if confirm.Pending() != 0 {
		t.Errorf("token not consumed after the role-assignment step, pending = %d", confirm.Pending())
	}
}
