package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/lectra-api/pkg/config"
)

func TestMigrateCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedOutput string
	}{
		{
			name:           "migrate command with help",
			args:           []string{"migrate", "--help"},
			expectedOutput: "Manage the SQLite transcript store schema",
		},
		{
			name:           "migrate up subcommand",
			args:           []string{"migrate", "up", "--help"},
			expectedOutput: "Apply the current schema",
		},
		{
			name:           "migrate status subcommand",
			args:           []string{"migrate", "status", "--help"},
			expectedOutput: "Display the current status",
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
			if !strings.Contains(buf.String(), tt.expectedOutput) {
				t.Errorf("Expected output to contain %q, got %q", tt.expectedOutput, buf.String())
			}
		})
	}
}

func TestMigrateUpAndStatus(t *testing.T) {
	cfg := config.DatabaseConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "lectra.db")}

	var before bytes.Buffer
	require.NoError(t, migrateStatus(&before, cfg))
	assert.Regexp(t, `transcriptions\s+pending`, before.String())

	var dry bytes.Buffer
	require.NoError(t, migrateUp(&dry, cfg, true))
	assert.Contains(t, dry.String(), "would migrate transcriptions")

	var still bytes.Buffer
	require.NoError(t, migrateStatus(&still, cfg))
	assert.Regexp(t, `transcriptions\s+pending`, still.String())

	var up bytes.Buffer
	require.NoError(t, migrateUp(&up, cfg, false))
	assert.Contains(t, up.String(), "Migrated 1 table(s)")

	var after bytes.Buffer
	require.NoError(t, migrateStatus(&after, cfg))
	assert.Regexp(t, `transcriptions\s+applied`, after.String())
}

func TestMigrateRejectsSupabaseBackend(t *testing.T) {
	err := migrateUp(new(bytes.Buffer), config.DatabaseConfig{Backend: "supabase"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only apply to the sqlite backend")
}
