package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err = root.Execute()
	return buf.String(), err
}

func TestVersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	output, err := executeCommand(cmd, "--version")
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "staticd version 0.1.0") {
		t.Errorf("Expected version information, got: %s", output)
	}
}

func TestHelpFlag(t *testing.T) {
	cmd := NewRootCmd()
	output, err := executeCommand(cmd, "--help")
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	// Check for required help content
	requiredContent := []string{
		"staticd",
		"--config",
		"--debug",
		"--read-timeout",
		"--max-connections",
	}

	for _, content := range requiredContent {
		if !strings.Contains(output, content) {
			t.Errorf("Expected help output to contain %q, got: %s", content, output)
		}
	}
}

func TestMissingArguments(t *testing.T) {
	cmd := NewRootCmd()
	output, err := executeCommand(cmd)
	if err == nil {
		t.Error("Expected an error when port and directory are missing")
	}
	if !strings.Contains(output, "Usage") {
		t.Errorf("Expected usage output, got: %s", output)
	}
}

func TestInvalidPortArgument(t *testing.T) {
	cmd := NewRootCmd()
	_, err := executeCommand(cmd, "not-a-port", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "invalid port") {
		t.Errorf("Expected invalid port error, got: %v", err)
	}
}

func TestNonexistentDirectoryArgument(t *testing.T) {
	cmd := NewRootCmd()
	_, err := executeCommand(cmd, "0", "/definitely/not/a/directory")
	if err == nil {
		t.Error("Expected an error for a nonexistent base directory")
	}
}
