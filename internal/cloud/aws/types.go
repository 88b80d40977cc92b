// Package aws onboards an AWS account into Rubrik Security Cloud for
// cloud-native protection.
//
// Onboarding is four steps. The second needs a cross-account IAM role that
// only exists once the customer has deployed the CloudFormation template
// returned by the first, so a run without a role ARN pauses there and is
// resumed by running again with the ARN (or with a stack lookup).
package aws

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Step names, in execution order.
const (
	StepValidateAndInitiate = "validate-and-initiate"
	StepCrossAccountRole    = "cross-account-role"
	StepFinalizeProtection  = "finalize-protection"
	StepRegisterArtifacts   = "register-feature-artifacts"
)

// WorkflowName identifies AWS onboarding runs.
const WorkflowName = "aws-add"

const (
	featureCloudNativeProtection = "CLOUD_NATIVE_PROTECTION"
	permissionsGroupBasic        = "BASIC"
	cloudTypeStandard            = "STANDARD"
	actionCreate                 = "CREATE"
	artifactCrossAccountRoleARN  = "CROSSACCOUNT_ROLE_ARN"

	// StackOutputRoleARN is the CloudFormation output holding the role ARN.
	StackOutputRoleARN = "CrossAccountRoleARN"
)

var accountIDPattern = regexp.MustCompile(`^[0-9]{12}$`)

// StackLookup asks the cross-account-role step to read the role ARN from a
// deployed CloudFormation stack instead of a flag.
type StackLookup struct {
	// StackName defaults to the stack name suggested by RSC.
	StackName string
	// Region is the AWS region the stack was deployed in.
	Region string
}

// Input describes the account to onboard.
type Input struct {
	AccountID   string
	AccountName string
	Regions     []string
	RoleARN     string
	StackLookup *StackLookup
}

// Validate checks the input before anything is sent to RSC.
func (in Input) Validate() error {
	var errs []error
	if !accountIDPattern.MatchString(in.AccountID) {
		errs = append(errs, fmt.Errorf("account ID %q must be 12 digits", in.AccountID))
	}
	if strings.TrimSpace(in.AccountName) == "" {
		errs = append(errs, errors.New("account name is required"))
	}
	if len(in.Regions) == 0 {
		errs = append(errs, errors.New("at least one region is required"))
	}
	if in.RoleARN != "" {
		if err := ValidateRoleARN(in.RoleARN, in.AccountID); err != nil {
			errs = append(errs, err)
		}
	}
	if in.StackLookup != nil && in.StackLookup.Region == "" {
		errs = append(errs, errors.New("stack lookup needs an AWS region"))
	}
	return errors.Join(errs...)
}

// params is the audited view of the input.
func (in Input) params() map[string]any {
	p := map[string]any{
		"account_id":   in.AccountID,
		"account_name": in.AccountName,
		"regions":      in.Regions,
	}
	if in.RoleARN != "" {
		p["role_arn"] = in.RoleARN
	}
	return p
}

// NormalizeRegions accepts regions as separate values, comma separated lists
// or both, in either AWS ("us-east-1") or RSC ("US_EAST_1") spelling, and
// returns them in RSC spelling without duplicates.
func NormalizeRegions(raw []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range raw {
		for _, f := range strings.FieldsFunc(r, func(c rune) bool { return c == ',' || c == ' ' }) {
			region := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(f), "-", "_"))
			if region == "" || seen[region] {
				continue
			}
			seen[region] = true
			out = append(out, region)
		}
	}
	return out
}

// InitiateResponse is what RSC returns once the account is validated.
type InitiateResponse struct {
	CloudFormationURL string `json:"cloudFormationUrl"`
	TemplateURL       string `json:"templateUrl"`
	StackName         string `json:"stackName"`
	ExternalID        string `json:"externalId"`
	AwsIamPairID      string `json:"awsIamPairId"`
}

// InvalidAccount is one account RSC refused to onboard.
type InvalidAccount struct {
	NativeID string `json:"nativeId"`
	Message  string `json:"message"`
}

// ChildAccount is an AWS account known to RSC.
type ChildAccount struct {
	ID       string `json:"id"`
	NativeID string `json:"nativeId"`
}

// Mapping links an AWS account to its RSC cloud account.
type Mapping struct {
	AwsCloudAccountID string `json:"awsCloudAccountId"`
	AwsNativeID       string `json:"awsNativeId"`
	Message           string `json:"message"`
}

type validateAndCreateData struct {
	Result *struct {
		ValidateResponse *struct {
			InvalidAwsAccounts []InvalidAccount `json:"invalidAwsAccounts"`
		} `json:"validateResponse"`
		InitiateResponse *InitiateResponse `json:"initiateResponse"`
	} `json:"validateAndCreateAwsCloudAccount"`
}

type finalizeData struct {
	Result *struct {
		AwsChildAccounts []ChildAccount `json:"awsChildAccounts"`
	} `json:"finalizeAwsCloudAccountProtection"`
}

type registerData struct {
	Result *struct {
		Mappings []Mapping `json:"allAwsNativeIdtoRscIdMappings"`
	} `json:"registerAwsFeatureArtifacts"`
}
