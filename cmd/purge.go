package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/killallgit/lectra-api/internal/services/transcriptions"
	"github.com/killallgit/lectra-api/pkg/config"
)

// purgeCmd permanently removes transcriptions
var purgeCmd = &cobra.Command{
	Use:   "purge <id>...",
	Short: "Permanently delete transcriptions",
	Long: `Physically remove transcription rows from the configured store.

Unlike DELETE on the API, which only marks a row deleted, purge removes it
for good, whether or not it was soft-deleted first. The audio blob is left
for the orphan sweeper.

Example:
  lectra-api purge 3f1c... --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	yes, _ := cmd.Flags().GetBool("yes")

	app := newApplication()
	defer app.Close()

	repo, err := buildRepository(cfg, app)
	if err != nil {
		return err
	}

	return purge(cmd.Context(), repo, args, yes, cmd.InOrStdin(), cmd.OutOrStdout())
}

func purge(ctx context.Context, repo transcriptions.Repository, ids []string, yes bool, in io.Reader, out io.Writer) error {
	if !yes {
		fmt.Fprintf(out, "WARNING: This will permanently delete %d transcription(s). Continue? (y/N): ", len(ids))
		response, _ := bufio.NewReader(in).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Purge cancelled")
			return nil
		}
	}

	var failed int
	for _, id := range ids {
		err := repo.HardDelete(ctx, id)
		switch {
		case errors.Is(err, transcriptions.ErrNotFound):
			fmt.Fprintf(out, "%s: not found\n", id)
			failed++
		case err != nil:
			return fmt.Errorf("purging %s: %w", id, err)
		default:
			fmt.Fprintf(out, "%s: purged\n", id)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d transcription(s) not found", failed, len(ids))
	}
	return nil
}
