package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		checkOutput func(string) bool
	}{
		{
			name: "version command shows version info",
			args: []string{"version"},
			checkOutput: func(output string) bool {
				return strings.Contains(output, "Lectra Transcription API") &&
					strings.Contains(output, "Version:      v"+Version) &&
					strings.Contains(output, "OS/Arch:")
			},
		},
		{
			name: "version command with --short flag",
			args: []string{"version", "--short"},
			checkOutput: func(output string) bool {
				return output == "v"+Version+"\n"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			if err := cmd.Execute(); err != nil {
				t.Errorf("Execute() error = %v", err)
			}

			if !tt.checkOutput(buf.String()) {
				t.Errorf("Unexpected output %q", buf.String())
			}
		})
	}
}

func TestVersionCommandFlags(t *testing.T) {
	cmd := NewRootCmd()
	versionCmd, _, err := cmd.Find([]string{"version"})
	if err != nil {
		t.Fatalf("Failed to find version command: %v", err)
	}

	shortFlag := versionCmd.Flags().Lookup("short")
	if shortFlag == nil {
		t.Fatal("Expected short flag to be registered")
	}
	if shortFlag.Shorthand != "s" {
		t.Errorf("Expected short flag shorthand to be 's', got %s", shortFlag.Shorthand)
	}
}
