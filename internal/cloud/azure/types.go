// Package azure onboards an Azure subscription into Rubrik Security Cloud
// without OAuth, using a customer-owned Azure AD application.
package azure

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Step names, in execution order.
const (
	StepSetAppCredentials   = "set-app-credentials"
	StepRequiredPermissions = "required-permissions"
	StepRoleAssignment      = "role-assignment"
	StepAddSubscription     = "add-subscription"
)

// WorkflowName identifies Azure onboarding runs.
const WorkflowName = "azure-add"

// Defaults for optional inputs.
const (
	DefaultAppName   = "rubrik-rsc-app"
	DefaultCloudType = "AZUREPUBLICCLOUD"
)

const (
	cloudVendorAzure         = "AZURE"
	permissionsGroupBasic    = "BASIC"
	permissionsGroupRecovery = "RECOVERY"
)

// ResourceGroup is where RSC creates resources for features that need one.
type ResourceGroup struct {
	Name   string
	Region string
}

// Input describes the application and subscription to onboard.
type Input struct {
	AppID         string
	AppName       string
	AppSecret     string
	TenantDomain  string
	CloudType     string
	ShouldReplace bool

	SubscriptionID   string
	SubscriptionName string
	Regions          []string
	FeatureType      string
	ResourceGroup    *ResourceGroup
}

// WithDefaults fills the optional fields.
func (in Input) WithDefaults() Input {
	if in.AppName == "" {
		in.AppName = DefaultAppName
	}
	if in.CloudType == "" {
		in.CloudType = DefaultCloudType
	}
	in.CloudType = strings.ToUpper(in.CloudType)
	in.FeatureType = strings.ToUpper(in.FeatureType)
	return in
}

// Validate checks the input before anything is sent to RSC.
func (in Input) Validate() error {
	var errs []error
	required := []struct{ name, value string }{
		{"app ID", in.AppID},
		{"app secret", in.AppSecret},
		{"tenant domain", in.TenantDomain},
		{"subscription name", in.SubscriptionName},
		{"feature type", in.FeatureType},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}
	if _, err := uuid.Parse(in.SubscriptionID); err != nil {
		errs = append(errs, fmt.Errorf("subscription ID %q is not a GUID", in.SubscriptionID))
	}
	if len(in.Regions) == 0 {
		errs = append(errs, errors.New("at least one region is required"))
	}
	if rg := in.ResourceGroup; rg != nil && (rg.Name == "") != (rg.Region == "") {
		errs = append(errs, errors.New("resource group needs both a name and a region"))
	}
	return errors.Join(errs...)
}

// params is the audited view of the input. The app secret is never included.
func (in Input) params() map[string]any {
	p := map[string]any{
		"app_id":            in.AppID,
		"app_name":          in.AppName,
		"tenant_domain":     in.TenantDomain,
		"cloud_type":        in.CloudType,
		"should_replace":    in.ShouldReplace,
		"subscription_id":   in.SubscriptionID,
		"subscription_name": in.SubscriptionName,
		"regions":           in.Regions,
		"feature_type":      in.FeatureType,
	}
	if in.ResourceGroup != nil {
		p["resource_group"] = in.ResourceGroup.Name
		p["resource_group_region"] = in.ResourceGroup.Region
	}
	return p
}

// NormalizeRegions accepts regions as separate values or comma/space
// separated lists and returns them upper-cased without duplicates.
func NormalizeRegions(raw []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range raw {
		for _, f := range strings.FieldsFunc(r, func(c rune) bool { return c == ',' || c == ' ' }) {
			region := strings.ToUpper(strings.TrimSpace(f))
			if region == "" || seen[region] {
				continue
			}
			seen[region] = true
			out = append(out, region)
		}
	}
	return out
}

// PermissionsGroupVersion is one permissions group of a feature.
type PermissionsGroupVersion struct {
	PermissionsGroup string `json:"permissionsGroup"`
	Version          int    `json:"version"`
}

// FeaturePermission is the Azure role definition RSC needs for a feature.
type FeaturePermission struct {
	Feature                  string                    `json:"feature"`
	PermissionsGroupVersions []PermissionsGroupVersion `json:"permissionsGroupVersions"`
	PermissionJSON           string                    `json:"permissionJson"`
}

// Pretty returns the permission JSON indented, or the raw string when it is
// not JSON.
func (p FeaturePermission) Pretty() string {
	if p.PermissionJSON == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(p.PermissionJSON), "", "  "); err != nil {
		return p.PermissionJSON
	}
	return buf.String()
}

// SubscriptionStatus is the per-subscription result of the add mutation.
type SubscriptionStatus struct {
	Error    string `json:"error"`
	RubrikID string `json:"azureSubscriptionRubrikId"`
	NativeID string `json:"azureSubscriptionNativeId"`
}

// AddResult is the result of the add mutation.
type AddResult struct {
	TenantID string               `json:"tenantId"`
	Status   []SubscriptionStatus `json:"status"`
}

type setCredentialsData struct {
	Result *bool `json:"setAzureCloudAccountCustomerAppCredentials"`
}

type permissionsData struct {
	Result []struct {
		FeaturePermissions []FeaturePermission `json:"featurePermissions"`
	} `json:"allCurrentFeaturePermissionsForCloudAccounts"`
}

type addData struct {
	Result *AddResult `json:"addAzureCloudAccountWithoutOauth"`
}
