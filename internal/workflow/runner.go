package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/mitchellh/hashstructure"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/metrics"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/safety"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/session"
)

// Runner executes workflows. Each Run authenticates a fresh session from
// Sessions and releases it before returning.
type Runner struct {
	Sessions session.Factory
	Log      logr.Logger
	Audit    *safety.AuditLogger
	Metrics  *metrics.Recorder
}

// Run executes steps in order and stops at the first step that does not
// succeed. The returned error is nil when the run completed or paused, a
// *StepError when a step failed, or the session error when authentication
// failed (all steps are then left pending). A teardown failure is stored in
// State.TeardownErr and never changes the returned error.
func (r *Runner) Run(ctx context.Context, name string, steps []Step) (*State, error) {
	state := newState(uuid.NewString(), name, steps)
	log := r.Log.WithValues("workflow", name, "run", state.RunID)

	sess := r.Sessions()
	if err := sess.Open(ctx); err != nil {
		log.Error(err, "authentication failed")
		return state, err
	}
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			state.TeardownErr = err
			log.Error(err, "session teardown failed")
		}
	}()

	outputs := Outputs{}
	for i, step := range steps {
		ss := &state.Steps[i]
		ss.Fingerprint = Fingerprint(step.Input)

		log.V(1).Info("running step", "step", step.Name, "index", i+1, "of", len(steps))
		start := time.Now()
		res := step.Execute(ctx, sess, outputs)
		elapsed := time.Since(start)

		ss.Status = res.status()
		ss.Output = res.output
		ss.Reason = res.reason
		if res.err != nil {
			ss.Err = res.err
			ss.Error = res.err.Error()
		}

		r.Metrics.ObserveStep(name, string(ss.Status))
		r.audit(state, step, ss, start, elapsed)

		switch ss.Status {
		case StatusSucceeded:
			outputs[step.Name] = res.output
			log.Info("step succeeded", "step", step.Name)
		case StatusAwaitingExternalInput:
			log.Info("step awaiting external input", "step", step.Name, "reason", res.reason)
			return state, nil
		default:
			log.Error(res.err, "step failed", "step", step.Name)
			return state, &StepError{Step: step.Name, Err: res.err}
		}
	}
	return state, nil
}

func (r *Runner) audit(state *State, step Step, ss *StepState, start time.Time, elapsed time.Duration) {
	if r.Audit == nil {
		return
	}
	result := string(ss.Status)
	switch {
	case ss.Err != nil:
		result += ": " + ss.Error
	case ss.Reason != "":
		result += ": " + ss.Reason
	}
	if err := r.Audit.Log(safety.AuditEntry{
		Timestamp:   start,
		RunID:       state.RunID,
		Workflow:    state.Workflow,
		Step:        step.Name,
		Fingerprint: ss.Fingerprint,
		Params:      step.Input,
		Result:      result,
		Duration:    elapsed,
	}); err != nil {
		r.Log.Error(err, "write audit entry", "step", step.Name)
	}
}

// Fingerprint hashes a step input so that two runs with the same input can
// be matched in the audit trail. It returns "" when input cannot be hashed.
func Fingerprint(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	h, err := hashstructure.Hash(input, nil)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", h)
}
