package cmd

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestNewRootCmd tests the newRootCmd function.
func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()

	if diff := cmp.Diff("cxone-report <scan-id>", cmd.Use); diff != "" {
		t.Errorf("cmd.Use mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Generate and send Checkmarx security scan reports", cmd.Short); diff != "" {
		t.Errorf("cmd.Short mismatch (-want +got):\n%s", diff)
	}

	flags := []string{
		"config", "env-file", "list-projects", "output", "metrics-file",
		"history-db-type", "history-db-path", "history-db-dsn", "history-db-instance",
		"history-db-user", "history-db-password", "history-db-name",
	}
	for _, flag := range flags {
		f := cmd.PersistentFlags().Lookup(flag)
		if f == nil {
			t.Errorf("flag %s should be defined", flag)
		}
	}
	if got := cmd.PersistentFlags().Lookup("config").DefValue; got != "config.json" {
		t.Errorf("expected config to default to config.json, got %s", got)
	}
}

func executeRootCmd(args ...string) error {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

// TestArgs_MissingScanID tests that the scan ID is required.
func TestArgs_MissingScanID(t *testing.T) {
	err := executeRootCmd()
	if err == nil {
		t.Fatal("expected an error but got nil")
	}
	if diff := cmp.Diff("accepts 1 arg(s), received 0", err.Error()); diff != "" {
		t.Errorf("error message mismatch (-want +got):\n%s", diff)
	}
}

// TestArgs_TooManyScanIDs tests that only a single scan ID is accepted.
func TestArgs_TooManyScanIDs(t *testing.T) {
	err := executeRootCmd("scan-1", "scan-2")
	if err == nil {
		t.Fatal("expected an error but got nil")
	}
	if diff := cmp.Diff("accepts 1 arg(s), received 2", err.Error()); diff != "" {
		t.Errorf("error message mismatch (-want +got):\n%s", diff)
	}
}

// TestPreRunE_InvalidOutput tests the preRunE function with an unsupported output format.
func TestPreRunE_InvalidOutput(t *testing.T) {
	err := executeRootCmd("scan-1", "--output", "xml")
	if err == nil {
		t.Fatal("expected an error but got nil")
	}
	if diff := cmp.Diff("output has an invalid value: xml (options: none|json|yaml)", err.Error()); diff != "" {
		t.Errorf("error message mismatch (-want +got):\n%s", diff)
	}
}

// TestPreRunE_InvalidHistoryDBType tests the preRunE function with an unsupported database type.
func TestPreRunE_InvalidHistoryDBType(t *testing.T) {
	err := executeRootCmd("scan-1", "--history-db-type", "mysql")
	if err == nil {
		t.Fatal("expected an error but got nil")
	}
	want := "history-db-type has an invalid value: mysql (options: none|sqlite|postgres|cloudsql)"
	if diff := cmp.Diff(want, err.Error()); diff != "" {
		t.Errorf("error message mismatch (-want +got):\n%s", diff)
	}
}

// TestPreRunE_InvalidFlag tests the preRunE function with an invalid flag.
func TestPreRunE_InvalidFlag(t *testing.T) {
	err := executeRootCmd("--invalid-flag", "value")
	if err == nil {
		t.Fatal("expected an error but got nil")
	}
	if diff := cmp.Diff("unknown flag: --invalid-flag", err.Error()); diff != "" {
		t.Errorf("error message mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteResponse(t *testing.T) {
	response := map[string]interface{}{"reportId": "r-1"}
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: outputNone, want: ""},
		{format: outputJSON, want: "{\n  \"reportId\": \"r-1\"\n}\n"},
		{format: outputYAML, want: "reportId: r-1\n"},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeResponse(&buf, tt.format, response)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
