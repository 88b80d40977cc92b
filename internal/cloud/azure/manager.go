package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
)

const mutationSetAppCredentials = `mutation AzureSetCustomerAppCredentialsMutation($input: SetAzureCloudAccountCustomerAppCredentialsInput!) {
  setAzureCloudAccountCustomerAppCredentials(input: $input)
}`

const queryFeaturePermissions = `query AllCurrentFeaturePermissionsForCloudAccountsQuery($cloudVendor: CloudVendor!, $cloudAccountIds: [UUID!], $permissionsGroupFilters: [FeatureWithPermissionsGroups!]) {
  allCurrentFeaturePermissionsForCloudAccounts(
    cloudVendor: $cloudVendor
    cloudAccountIds: $cloudAccountIds
    permissionsGroupFilters: $permissionsGroupFilters
  ) {
    featurePermissions {
      feature
      permissionsGroupVersions {
        version
        permissionsGroup
      }
      permissionJson
    }
  }
}`

const mutationAddWithoutOAuth = `mutation AzureCloudAccountAddWithoutOAuthMutation($input: AddAzureCloudAccountWithoutOauthInput!) {
  addAzureCloudAccountWithoutOauth(input: $input) {
    tenantId
    status {
      error
      azureSubscriptionRubrikId
      azureSubscriptionNativeId
    }
  }
}`

// Errors returned by Manager.
var (
	ErrCredentialsRejected = errors.New("RSC did not accept the app credentials")
	ErrNoPermissions       = errors.New("RSC returned no required permissions")
	ErrEmptyResponse       = errors.New("RSC returned an empty response")
)

// Manager wraps the Azure cloud account calls.
type Manager struct {
	client graphql.Client
}

// NewManager returns a Manager bound to an authenticated client.
func NewManager(client graphql.Client) *Manager {
	return &Manager{client: client}
}

// SetAppCredentials stores the customer application credentials in RSC.
func (m *Manager) SetAppCredentials(ctx context.Context, in Input) error {
	vars := map[string]any{"input": map[string]any{
		"appId":            in.AppID,
		"appName":          in.AppName,
		"appSecretKey":     in.AppSecret,
		"tenantDomainName": in.TenantDomain,
		"azureCloudType":   in.CloudType,
		"shouldReplace":    in.ShouldReplace,
	}}

	var resp setCredentialsData
	if err := m.do(ctx, mutationSetAppCredentials, vars, &resp); err != nil {
		return fmt.Errorf("set app credentials: %w", err)
	}
	if resp.Result == nil || !*resp.Result {
		return fmt.Errorf("set app credentials: %w", ErrCredentialsRejected)
	}
	return nil
}

// RequiredPermissions returns the role permissions featureType needs.
func (m *Manager) RequiredPermissions(ctx context.Context, featureType string) ([]FeaturePermission, error) {
	vars := map[string]any{
		"cloudVendor":     cloudVendorAzure,
		"cloudAccountIds": nil,
		"permissionsGroupFilters": []map[string]any{{
			"featureType":       featureType,
			"permissionsGroups": []string{permissionsGroupBasic, permissionsGroupRecovery},
		}},
	}

	var resp permissionsData
	if err := m.do(ctx, queryFeaturePermissions, vars, &resp); err != nil {
		return nil, fmt.Errorf("required permissions: %w", err)
	}
	if len(resp.Result) == 0 || len(resp.Result[0].FeaturePermissions) == 0 {
		return nil, fmt.Errorf("required permissions for %s: %w", featureType, ErrNoPermissions)
	}
	return resp.Result[0].FeaturePermissions, nil
}

// AddSubscription adds the subscription. A status entry carrying an error is
// reported as a failure.
func (m *Manager) AddSubscription(ctx context.Context, in Input) (*AddResult, error) {
	feature := map[string]any{
		"featureType":   in.FeatureType,
		"policyVersion": 0,
		"permissionsGroups": []map[string]any{
			{"permissionsGroup": permissionsGroupBasic, "version": 2},
			{"permissionsGroup": permissionsGroupRecovery, "version": 3},
		},
	}
	if rg := in.ResourceGroup; rg != nil && rg.Name != "" && rg.Region != "" {
		feature["resourceGroup"] = map[string]any{"name": rg.Name, "region": rg.Region}
	}

	vars := map[string]any{"input": map[string]any{
		"tenantDomainName": in.TenantDomain,
		"azureCloudType":   in.CloudType,
		"subscriptions": []map[string]any{{
			"features":     []map[string]any{feature},
			"subscription": map[string]any{"name": in.SubscriptionName, "nativeId": in.SubscriptionID},
		}},
		"regions":        in.Regions,
		"isAsynchronous": false,
	}}

	var resp addData
	if err := m.do(ctx, mutationAddWithoutOAuth, vars, &resp); err != nil {
		return nil, fmt.Errorf("add subscription: %w", err)
	}
	if resp.Result == nil || len(resp.Result.Status) == 0 {
		return nil, fmt.Errorf("add subscription: %w", ErrEmptyResponse)
	}
	var errs []error
	for _, s := range resp.Result.Status {
		if s.Error != "" {
			errs = append(errs, fmt.Errorf("subscription %s: %s", s.NativeID, s.Error))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return resp.Result, fmt.Errorf("add subscription: %w", err)
	}
	return resp.Result, nil
}

func (m *Manager) do(ctx context.Context, query string, vars map[string]any, out any) error {
	data, err := m.client.Execute(ctx, query, vars)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
