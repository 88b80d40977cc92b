package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
)

const mutationValidateAndCreate = `mutation AwsCloudAccountValidateAndInitiateMutation($input: ValidateAndCreateAwsCloudAccountInput!) {
  validateAndCreateAwsCloudAccount(input: $input) {
    validateResponse {
      invalidAwsAccounts {
        nativeId
        message
      }
    }
    initiateResponse {
      cloudFormationUrl
      templateUrl
      stackName
      externalId
      awsIamPairId
      featureVersions {
        feature
        version
        permissionsGroupVersions {
          permissionsGroup
          version
        }
      }
    }
  }
}`

const mutationFinalize = `mutation AwsCloudAccountProcessMutation($input: FinalizeAwsCloudAccountProtectionInput!) {
  finalizeAwsCloudAccountProtection(input: $input) {
    awsChildAccounts {
      id
      nativeId
    }
  }
}`

const mutationRegisterArtifacts = `mutation RegisterAwsFeatureArtifactsMutation($input: RegisterAwsFeatureArtifactsInput!) {
  registerAwsFeatureArtifacts(input: $input) {
    allAwsNativeIdtoRscIdMappings {
      awsCloudAccountId
      awsNativeId
      message
    }
  }
}`

// ErrEmptyResponse is returned when RSC answers a mutation with null.
var ErrEmptyResponse = errors.New("RSC returned an empty response")

// Manager wraps the AWS cloud account mutations.
type Manager struct {
	client graphql.Client
}

// NewManager returns a Manager bound to an authenticated client.
func NewManager(client graphql.Client) *Manager {
	return &Manager{client: client}
}

func childAccounts(in Input) []map[string]any {
	return []map[string]any{{
		"nativeId":    in.AccountID,
		"accountName": in.AccountName,
		"cloudType":   cloudTypeStandard,
	}}
}

func featuresWithPermissionsGroups() []map[string]any {
	return []map[string]any{{
		"featureType":       featureCloudNativeProtection,
		"permissionsGroups": []string{permissionsGroupBasic},
	}}
}

// ValidateAndInitiate asks RSC to validate the account and returns the
// CloudFormation template to deploy.
func (m *Manager) ValidateAndInitiate(ctx context.Context, in Input) (*InitiateResponse, error) {
	vars := map[string]any{"input": map[string]any{
		"action":                        actionCreate,
		"features":                      []string{featureCloudNativeProtection},
		"awsChildAccounts":              childAccounts(in),
		"featuresWithPermissionsGroups": featuresWithPermissionsGroups(),
	}}

	var resp validateAndCreateData
	if err := m.do(ctx, mutationValidateAndCreate, vars, &resp); err != nil {
		return nil, fmt.Errorf("validate and initiate: %w", err)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("validate and initiate: %w", ErrEmptyResponse)
	}
	if v := resp.Result.ValidateResponse; v != nil && len(v.InvalidAwsAccounts) > 0 {
		msgs := make([]string, 0, len(v.InvalidAwsAccounts))
		for _, a := range v.InvalidAwsAccounts {
			msgs = append(msgs, fmt.Sprintf("%s: %s", a.NativeID, a.Message))
		}
		return nil, fmt.Errorf("validate and initiate: invalid AWS account: %s", strings.Join(msgs, "; "))
	}
	if resp.Result.InitiateResponse == nil {
		return nil, fmt.Errorf("validate and initiate: %w", ErrEmptyResponse)
	}
	return resp.Result.InitiateResponse, nil
}

// FinalizeProtection enables protection in the given regions.
func (m *Manager) FinalizeProtection(ctx context.Context, in Input) ([]ChildAccount, error) {
	vars := map[string]any{"input": map[string]any{
		"action":                        actionCreate,
		"awsChildAccounts":              childAccounts(in),
		"features":                      []string{featureCloudNativeProtection},
		"awsRegions":                    in.Regions,
		"featuresWithPermissionsGroups": featuresWithPermissionsGroups(),
	}}

	var resp finalizeData
	if err := m.do(ctx, mutationFinalize, vars, &resp); err != nil {
		return nil, fmt.Errorf("finalize protection: %w", err)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("finalize protection: %w", ErrEmptyResponse)
	}
	return resp.Result.AwsChildAccounts, nil
}

// RegisterArtifacts registers the cross-account role ARN.
func (m *Manager) RegisterArtifacts(ctx context.Context, accountID, roleARN string) ([]Mapping, error) {
	vars := map[string]any{"input": map[string]any{
		"awsArtifacts": []map[string]any{{
			"awsNativeId": accountID,
			"features":    []string{featureCloudNativeProtection},
			"externalArtifacts": []map[string]any{{
				"externalArtifactKey":   artifactCrossAccountRoleARN,
				"externalArtifactValue": roleARN,
			}},
		}},
		"cloudType": cloudTypeStandard,
	}}

	var resp registerData
	if err := m.do(ctx, mutationRegisterArtifacts, vars, &resp); err != nil {
		return nil, fmt.Errorf("register feature artifacts: %w", err)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("register feature artifacts: %w", ErrEmptyResponse)
	}
	return resp.Result.Mappings, nil
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
