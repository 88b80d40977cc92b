// Package safety provides account filtering, acknowledgment tokens and audit
// logging for onboarding operations that change an RSC tenant.
package safety

import (
	"fmt"
	"path/filepath"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/config"
)

// Filter decides which cloud accounts may be onboarded. Entries are glob
// patterns as understood by filepath.Match, matched against AWS account IDs
// and Azure subscription IDs.
//
// Rules:
//   - If both lists are empty (or nil), every account is allowed.
//   - Denylist always takes priority over the allowlist.
//   - If a non-empty allowlist is present, an account must match at least one
//     allowlist pattern to be permitted (after the denylist check).
type Filter struct {
	allowlist []string
	denylist  []string
}

// NewFilter constructs a Filter from the provided allowlist and denylist
// pattern slices. Either or both may be nil or empty.
func NewFilter(allowlist, denylist []string) *Filter {
	return &Filter{
		allowlist: allowlist,
		denylist:  denylist,
	}
}

// NewAccountFilter builds the Filter configured under safety.accounts.
func NewAccountFilter(cfg config.SafetyConfig) *Filter {
	return NewFilter(cfg.Accounts.Allowlist, cfg.Accounts.Denylist)
}

// IsAllowed reports whether id is permitted by this filter. A nil Filter
// allows everything.
func (f *Filter) IsAllowed(id string) bool {
	if f == nil {
		return true
	}

	for _, pattern := range f.denylist {
		if matchGlob(pattern, id) {
			return false
		}
	}

	if len(f.allowlist) == 0 {
		return true
	}

	for _, pattern := range f.allowlist {
		if matchGlob(pattern, id) {
			return true
		}
	}

	return false
}

// Check returns a *NotAllowedError when id is filtered out.
func (f *Filter) Check(kind, id string) error {
	if f.IsAllowed(id) {
		return nil
	}
	return &NotAllowedError{Kind: kind, ID: id}
}

// NotAllowedError reports an account rejected by the configured filter.
type NotAllowedError struct {
	Kind string
	ID   string
}

func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("safety: %s %q is not allowed by safety.accounts", e.Kind, e.ID)
}

// matchGlob returns true when name matches the given glob pattern.
// filepath.Match errors (malformed patterns) are treated as non-matching.
func matchGlob(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		return false
	}
	return matched
}
