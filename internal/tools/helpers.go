// Package tools provides shared helper utilities for MCP tool handlers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/workflow"
)

// WorkflowRunner runs a workflow with a fresh session. *workflow.Runner
// satisfies it.
type WorkflowRunner interface {
	Run(ctx context.Context, name string, steps []workflow.Step) (*workflow.State, error)
}

var _ WorkflowRunner = (*workflow.Runner)(nil)

// JSONResult marshals v to indented JSON and returns an mcp.CallToolResult.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("error marshaling result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// ErrorResult returns an mcp.CallToolResult that describes an error condition.
func ErrorResult(msg string) *mcp.CallToolResult {
	res := mcp.NewToolResultText(fmt.Sprintf("error: %s", msg))
	res.IsError = true
	return res
}

// LogAudit logs a tool invocation to the audit logger, silently ignoring a nil logger.
func LogAudit(audit *safety.AuditLogger, toolName string, params map[string]any, result string, start time.Time) {
	if audit == nil {
		return
	}
	_ = audit.Log(safety.AuditEntry{
		Timestamp: start,
		Tool:      toolName,
		Params:    params,
		Result:    result,
		Duration:  time.Since(start),
	})
}

// ConfirmPrompt issues an acknowledgment token and returns the prompt result.
func ConfirmPrompt(confirm *safety.ConfirmationTracker, toolName, resource, description string) *mcp.CallToolResult {
	token := confirm.RequestConfirmation(toolName, resource, description)
	return mcp.NewToolResultText(fmt.Sprintf(
		"Acknowledgment required for %s on %q.\n\n%s\n\nOnce done, call %s again with the same arguments and confirmation_token=%q.",
		toolName, resource, description, toolName, token,
	))
}

// RunSummary is the tool-facing view of a workflow.State.
type RunSummary struct {
	RunID         string               `json:"run_id"`
	Workflow      string               `json:"workflow"`
	Outcome       workflow.Outcome     `json:"outcome"`
	Steps         []workflow.StepState `json:"steps"`
	TeardownError string               `json:"teardown_error,omitempty"`
}

// Summarize builds a RunSummary from state.
func Summarize(state *workflow.State) RunSummary {
	s := RunSummary{
		RunID:    state.RunID,
		Workflow: state.Workflow,
		Outcome:  state.Outcome(),
		Steps:    state.Steps,
	}
	if state.TeardownErr != nil {
		s.TeardownError = state.TeardownErr.Error()
	}
	return s
}

// WorkflowResult renders the outcome of a run. A run that never reached its
// first step (authentication failed) is a plain error; otherwise the summary
// is returned and flagged as an error when a step failed.
func WorkflowResult(state *workflow.State, err error) *mcp.CallToolResult {
	if state == nil || (err != nil && state.Failure() == nil) {
		if err == nil {
			err = fmt.Errorf("workflow returned no state")
		}
		return ErrorResult(err.Error())
	}
	res := JSONResult(Summarize(state))
	res.IsError = err != nil
	return res
}

// ResultLabel is the audit result string for a finished run.
func ResultLabel(state *workflow.State, err error) string {
	switch {
	case err != nil:
		return "error: " + err.Error()
	case state == nil:
		return "error: no state"
	default:
		return string(state.Outcome())
	}
}
