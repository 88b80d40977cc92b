package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/tools"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/workflow"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRun prints the state of every step. A paused run ends with the reason
// the operator has to act on.
func writeRun(w io.Writer, format string, state *workflow.State) error {
	if state == nil {
		return nil
	}
	if format == "json" {
		return writeJSON(w, tools.Summarize(state))
	}

	fmt.Fprintf(w, "Run %s (%s): %s\n", state.RunID, state.Workflow, state.Outcome())
	for i, st := range state.Steps {
		fmt.Fprintf(w, "  %d. %-28s %s\n", i+1, st.Name, st.Status)
		if st.Status == workflow.StatusSucceeded || st.Status == workflow.StatusFailed {
			writeOutput(w, st.Output)
		}
		if st.Error != "" {
			fmt.Fprintf(w, "     error: %s\n", st.Error)
		}
	}
	if state.TeardownErr != nil {
		fmt.Fprintf(w, "warning: session teardown failed: %v\n", state.TeardownErr)
	}
	if p := state.Pause(); p != nil {
		fmt.Fprintf(w, "\nWaiting at %s:\n%s\n", p.Name, p.Reason)
	}
	return nil
}

func writeOutput(w io.Writer, out map[string]any) {
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "     %s: %s\n", k, formatValue(out[k]))
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "-"
	case fmt.Stringer:
		return v.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(string(b))
}

// runResult prints state and returns the run error. A pause is not an error.
func runResult(w io.Writer, format string, state *workflow.State, err error) error {
	if werr := writeRun(w, format, state); werr != nil && err == nil {
		err = werr
	}
	return err
}
