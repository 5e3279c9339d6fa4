package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/killallgit/lectra-api/pkg/config"
)

// skipConfig marks commands that run without loading configuration
const skipConfig = "skip-config"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lectra-api",
	Short: "Lectra transcription API server",
	Long: `Lectra API - the backend of the Lectra voice-note app

Upload a recording, get it transcribed by a speech provider, and keep a
searchable history of transcriptions.

Features:
  • Speech recognition via Google Speech-to-Text or OpenAI Whisper
  • Transcript storage in SQLite or Supabase
  • Audio storage on the local filesystem or in Supabase Storage
  • History, search, edit and soft delete over a REST API
  • Client commands for browsing and exporting transcriptions`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides logging.level")
}

// loadConfig loads the configuration when a command needs it
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	if err := config.Init(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	applyLogLevel(logLevel(cmd))
	return nil
}

// logLevel returns the --log-level flag, falling back to logging.level
func logLevel(cmd *cobra.Command) string {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = config.GetString("logging.level")
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return "info"
	}
	return level
}

// applyLogLevel switches gin between debug and release output
func applyLogLevel(level string) {
	if level == "debug" {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
