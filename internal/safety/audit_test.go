package safety

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func Test_AuditLogger_Log_Cases(t *testing.T) {
	tests := []struct {
		name     string
		entry    AuditEntry
		validate func(t *testing.T, parsed map[string]any)
	}{
		{
			name: "workflow step entry",
			entry: AuditEntry{
				Timestamp:   time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
				RunID:       "run-1",
				Workflow:    "aws-add-account",
				Step:        "finalize-protection",
				Fingerprint: "1234",
				Result:      "succeeded",
				Duration:    150 * time.Millisecond,
			},
			validate: func(t *testing.T, parsed map[string]any) {
				t.Helper()
				if parsed["run_id"] != "run-1" {
					t.Errorf("run_id = %v, want %q", parsed["run_id"], "run-1")
				}
				if parsed["step"] != "finalize-protection" {
					t.Errorf("step = %v, want %q", parsed["step"], "finalize-protection")
				}
				if parsed["fingerprint"] != "1234" {
					t.Errorf("fingerprint = %v, want %q", parsed["fingerprint"], "1234")
				}
				if _, ok := parsed["tool"]; ok {
					t.Error("empty tool should be omitted")
				}
			},
		},
		{
			name: "tool entry with params",
			entry: AuditEntry{
				Timestamp: time.Now(),
				Tool:      "sla_list",
				Params:    map[string]any{"format": "json"},
				Result:    "ok",
			},
			validate: func(t *testing.T, parsed map[string]any) {
				t.Helper()
				params, ok := parsed["params"].(map[string]any)
				if !ok {
					t.Fatalf("params is %T, want map[string]any", parsed["params"])
				}
				if params["format"] != "json" {
					t.Errorf("params.format = %v, want %q", params["format"], "json")
				}
			},
		},
		{
			name: "secrets are redacted",
			entry: AuditEntry{
				Timestamp: time.Now(),
				Tool:      "azure_subscription_add",
				Params: map[string]any{
					"app_secret_key": "hunter2",
					"client_secret":  "s3cret",
					"tenant":         "acme.onmicrosoft.com",
				},
				Result: "ok",
			},
			validate: func(t *testing.T, parsed map[string]any) {
				t.Helper()
				params := parsed["params"].(map[string]any)
				if params["app_secret_key"] != redacted || params["client_secret"] != redacted {
					t.Errorf("secrets not redacted: %v", params)
				}
				if params["tenant"] != "acme.onmicrosoft.com" {
					t.Errorf("tenant = %v, want it untouched", params["tenant"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewAuditLogger(&buf)
			if logger == nil {
				t.Fatal("NewAuditLogger() returned nil")
			}

			if err := logger.Log(tt.entry); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			output := strings.TrimSpace(buf.String())
			var parsed map[string]any
			if err := json.Unmarshal([]byte(output), &parsed); err != nil {
				t.Fatalf("output is not valid JSON: %v\noutput: %s", err, output)
			}
			tt.validate(t, parsed)
		})
	}
}

func Test_AuditLogger_Log_MultipleEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := NewAuditLogger(&buf)

	for _, step := range []string{"validate-and-initiate", "cross-account-role", "finalize-protection"} {
		if err := logger.Log(AuditEntry{Timestamp: time.Now(), Step: step, Result: "succeeded"}); err != nil {
			t.Fatalf("Log(%s): %v", step, err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	for i, line := range lines {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
}

func Test_AuditLogger_NilWriter(t *testing.T) {
	logger := NewAuditLogger(nil)
	if logger != nil {
		t.Fatal("NewAuditLogger(nil) should return nil")
	}
	if err := logger.Log(AuditEntry{}); !errors.Is(err, ErrNilWriter) {
		t.Errorf("Log on nil logger = %v, want ErrNilWriter", err)
	}
}

func Test_AuditLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := NewAuditLogger(&buf)

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_ = logger.Log(AuditEntry{Timestamp: time.Now(), Tool: "sla_list", Result: "ok"})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != writers {
		t.Errorf("got %d lines, want %d", len(lines), writers)
	}
}

func Test_RedactParams_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"client_secret": "x", "name": "y"}
	out := RedactParams(in)

	if in["client_secret"] != "x" {
		t.Errorf("input was modified: %v", in)
	}
	if out["client_secret"] != redacted {
		t.Errorf("output not redacted: %v", out)
	}
	if RedactParams(nil) != nil {
		t.Error("RedactParams(nil) should be nil")
	}
}

func Test_RedactParams_Nested(t *testing.T) {
	in := map[string]any{
		"variables": map[string]any{
			"input": map[string]any{"appId": "a", "appSecretKey": "s"},
			"list":  []any{map[string]any{"password": "p"}, "plain"},
		},
	}
	out := RedactParams(in)

	vars := out["variables"].(map[string]any)
	input := vars["input"].(map[string]any)
	if input["appId"] != "a" || input["appSecretKey"] != redacted {
		t.Errorf("input = %v", input)
	}
	list := vars["list"].([]any)
	if list[0].(map[string]any)["password"] != redacted || list[1] != "plain" {
		t.Errorf("list = %v", list)
	}
	if in["variables"].(map[string]any)["input"].(map[string]any)["appSecretKey"] != "s" {
		t.Error("nested input was modified")
	}
}
