// Package workflow runs an ordered list of steps against a single RSC
// session and records how far the run got.
package workflow

import (
	"context"
	"fmt"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
)

// Status is the position of one step in a run.
type Status string

const (
	StatusPending               Status = "pending"
	StatusSucceeded             Status = "succeeded"
	StatusFailed                Status = "failed"
	StatusAwaitingExternalInput Status = "awaiting_external_input"
)

// Outcome summarises a whole run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePaused    Outcome = "paused"
	OutcomeFailed    Outcome = "failed"
)

// Outputs holds the output of every step that has succeeded so far, keyed by
// step name.
type Outputs map[string]map[string]any

// String returns the string value stored under key by step, or "".
func (o Outputs) String(step, key string) string {
	s, _ := o[step][key].(string)
	return s
}

// Step is one unit of a workflow. Input is fingerprinted and written to the
// audit trail; it is never interpreted by the runner.
type Step struct {
	Name    string
	Input   map[string]any
	Execute func(ctx context.Context, client graphql.Client, prior Outputs) Result
}

type resultKind int

const (
	kindSuccess resultKind = iota
	kindNeedsInput
	kindFail
)

// Result is what a step reports. Build one with Success, NeedsInput or Fail.
type Result struct {
	kind   resultKind
	output map[string]any
	reason string
	err    error
}

// Success reports a finished step and its output.
func Success(output map[string]any) Result {
	return Result{kind: kindSuccess, output: output}
}

// NeedsInput pauses the run until an operator supplies what reason describes.
// Output is kept so the operator can see what the step already learned.
func NeedsInput(reason string, output map[string]any) Result {
	return Result{kind: kindNeedsInput, reason: reason, output: output}
}

// Fail stops the run.
func Fail(err error) Result {
	if err == nil {
		err = fmt.Errorf("step failed without an error")
	}
	return Result{kind: kindFail, err: err}
}

// FailWith stops the run and keeps what the step learned before failing.
func FailWith(err error, output map[string]any) Result {
	r := Fail(err)
	r.output = output
	return r
}

// Failf is Fail with a formatted error.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Errorf(format, args...))
}

func (r Result) status() Status {
	switch r.kind {
	case kindSuccess:
		return StatusSucceeded
	case kindNeedsInput:
		return StatusAwaitingExternalInput
	default:
		return StatusFailed
	}
}

// StepState is the recorded state of one step.
type StepState struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Output      map[string]any `json:"output,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Err         error          `json:"-"`
	Error       string         `json:"error,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
}

// State is the full record of a run.
type State struct {
	RunID       string      `json:"run_id"`
	Workflow    string      `json:"workflow"`
	Steps       []StepState `json:"steps"`
	TeardownErr error       `json:"-"`
}

func newState(runID, name string, steps []Step) *State {
	st := &State{RunID: runID, Workflow: name, Steps: make([]StepState, len(steps))}
	for i, s := range steps {
		st.Steps[i] = StepState{Name: s.Name, Status: StatusPending}
	}
	return st
}

// Outcome reports completed when every step succeeded, paused when a step is
// awaiting external input and failed otherwise, including a run that never
// got to its first step.
func (s *State) Outcome() Outcome {
	if s.Pause() != nil {
		return OutcomePaused
	}
	for _, st := range s.Steps {
		if st.Status != StatusSucceeded {
			return OutcomeFailed
		}
	}
	return OutcomeCompleted
}

// Pause returns the step awaiting external input, or nil.
func (s *State) Pause() *StepState {
	return s.find(StatusAwaitingExternalInput)
}

// Failure returns the failed step, or nil.
func (s *State) Failure() *StepState {
	return s.find(StatusFailed)
}

// Output returns the output recorded by the named step.
func (s *State) Output(step string) map[string]any {
	for _, st := range s.Steps {
		if st.Name == step {
			return st.Output
		}
	}
	return nil
}

func (s *State) find(status Status) *StepState {
	for i := range s.Steps {
		if s.Steps[i].Status == status {
			return &s.Steps[i]
		}
	}
	return nil
}

// StepError is returned by Runner.Run when a step fails.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow: step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
