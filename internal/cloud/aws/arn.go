package aws

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// ValidateRoleARN checks that s is an IAM role ARN in accountID.
func ValidateRoleARN(s, accountID string) error {
	parsed, err := arn.Parse(s)
	if err != nil {
		return fmt.Errorf("cross-account role ARN %q: %w", s, err)
	}
	if parsed.Service != "iam" {
		return fmt.Errorf("cross-account role ARN %q: service is %q, want iam", s, parsed.Service)
	}
	if !strings.HasPrefix(parsed.Resource, "role/") || len(parsed.Resource) == len("role/") {
		return fmt.Errorf("cross-account role ARN %q: resource %q is not an IAM role", s, parsed.Resource)
	}
	if accountID != "" && parsed.AccountID != accountID {
		return fmt.Errorf("cross-account role ARN %q belongs to account %s, not %s", s, parsed.AccountID, accountID)
	}
	return nil
}
