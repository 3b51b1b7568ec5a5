package cmd

import (
	"bytes"
	"strings"
	"testing"
)

// executeCommand runs the root command with args and captures stdout and
// stderr separately.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	rootCmd := NewRootCommand()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "--help")
	if err != nil {
		t.Fatalf("--help returned error: %v", err)
	}

	if !strings.Contains(stdout, "minrow") {
		t.Errorf("Help text should mention minrow, got: %s", stdout)
	}
	if !strings.Contains(stdout, "minimum") {
		t.Errorf("Help text should describe the minimum row, got: %s", stdout)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "minrow" {
		t.Errorf("Expected Use to be 'minrow', got '%s'", cmd.Use)
	}

	want := map[string]bool{"scan": false, "history": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Expected subcommand %q", name)
		}
	}
}

func TestRootCommandVersion(t *testing.T) {
	stdout, _, err := executeCommand(t, "--version")
	if err != nil {
		t.Fatalf("--version returned error: %v", err)
	}
	if !strings.Contains(stdout, Version) {
		t.Errorf("version output %q should contain %q", stdout, Version)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := executeCommand(t, "bogus")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}
