package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/killallgit/lectra-api/internal/database"
	"github.com/killallgit/lectra-api/pkg/config"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the SQLite transcript store schema.

The schema is derived from the models and applied with GORM auto-migration.
Supabase deployments manage their schema in the Supabase project instead.

Available subcommands:
  up      - Create or update tables
  status  - Show which tables exist`,
}

// migrateUpCmd applies the schema
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or update tables",
	Long: `Apply the current schema to the SQLite database.

Missing tables, columns and indexes are created. Existing data is kept.`,
	RunE: runMigrateUp,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of the database schema.

Lists every table the service owns and whether it exists yet.`,
	RunE: runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateCmd.PersistentFlags().Bool("dry-run", false, "show what would be done without making changes")
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return migrateUp(cmd.OutOrStdout(), cfg.Database, dryRun)
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	return migrateStatus(cmd.OutOrStdout(), cfg.Database)
}

func openSQLite(cfg config.DatabaseConfig) (*database.DB, error) {
	if cfg.Backend != "" && cfg.Backend != "sqlite" {
		return nil, fmt.Errorf("migrations only apply to the sqlite backend, configured backend is %q", cfg.Backend)
	}
	return database.Initialize(cfg.Path, cfg.LogQueries)
}

func migrateUp(out io.Writer, cfg config.DatabaseConfig, dryRun bool) error {
	db, err := openSQLite(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		for _, name := range tableNames(db) {
			fmt.Fprintf(out, "  would migrate %s\n", name)
		}
		return nil
	}

	if err := db.Migrate(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d table(s) in %s\n", len(database.Models()), cfg.Path)
	return nil
}

func migrateStatus(out io.Writer, cfg config.DatabaseConfig) error {
	db, err := openSQLite(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintln(out, "Database Migration Status")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "Database: %s\n\n", cfg.Path)

	migrator := db.Migrator()
	for _, model := range database.Models() {
		state := "pending"
		if migrator.HasTable(model) {
			state = "applied"
		}
		fmt.Fprintf(out, "  %-20s %s\n", tableName(db, model), state)
	}
	return nil
}

func tableNames(db *database.DB) []string {
	names := make([]string, 0, len(database.Models()))
	for _, model := range database.Models() {
		names = append(names, tableName(db, model))
	}
	return names
}

func tableName(db *database.DB, model any) string {
	stmt := db.Model(model).Statement
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}
