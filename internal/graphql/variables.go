package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Scope runs fn with an authenticated Client and releases the session
// afterwards. session.Factory.Do has this signature.
type Scope func(ctx context.Context, fn func(ctx context.Context, client Client) error) error

// ParseVariables decodes a JSON object of variables. An empty string yields
// nil so the request omits the variables entirely.
func ParseVariables(s string) (map[string]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(s), &vars); err != nil {
		return nil, fmt.Errorf("parse variables JSON: %w", err)
	}
	return vars, nil
}
