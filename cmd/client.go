package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/killallgit/lectra-api/internal/models"
	"github.com/killallgit/lectra-api/pkg/client"
	"github.com/killallgit/lectra-api/pkg/config"
	"github.com/killallgit/lectra-api/pkg/export"
)

const previewLength = 60

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List transcriptions, newest first",
	Long: `List transcriptions from a running Lectra API.

Example:
  lectra-api history
  lectra-api history --all --filter standup
  lectra-api history --search invoice --ids`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one transcription",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a transcription as plain text",
	Long: `Write the plain-text export of a transcription.

The file is named after the recording, e.g. Team_sync_1736955000000.txt.
Use --output - to print to stdout instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "Upload a recording and print its transcription",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <text>",
	Short: "Replace the text of a transcription",
	Args:  cobra.ExactArgs(2),
	RunE:  runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a transcription through the API",
	Long: `Delete a transcription through the API. The row is only marked deleted;
use purge on the server host to remove it for good.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, showCmd, exportCmd, transcribeCmd, editCmd, deleteCmd} {
		c.Flags().String("api-url", "", "API base URL (overrides client.api_url)")
		rootCmd.AddCommand(c)
	}

	historyCmd.Flags().Int("limit", 20, "page size")
	historyCmd.Flags().Int("offset", 0, "page offset")
	historyCmd.Flags().Bool("all", false, "follow pages until the end of the history")
	historyCmd.Flags().String("search", "", "server-side search term")
	historyCmd.Flags().String("filter", "", "filter loaded rows locally by text")
	historyCmd.Flags().Bool("ids", false, "print ids only")

	exportCmd.Flags().StringP("output", "o", ".", "directory to write into, or - for stdout")

	transcribeCmd.Flags().StringP("language", "l", "en-US", "BCP-47 language of the recording")
}

// newClientStore builds a cached API client from client.* configuration
func newClientStore(cmd *cobra.Command) (*client.Store, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}

	baseURL, _ := cmd.Flags().GetString("api-url")
	if baseURL == "" {
		baseURL = cfg.Client.APIURL
	}

	api := client.New(client.Config{
		BaseURL:       baseURL,
		Timeout:       cfg.Client.Timeout,
		MaxAttempts:   cfg.Client.RetryAttempts,
		QueryAttempts: cfg.Client.QueryAttempts,
	})
	return client.NewStore(api, nil), nil
}

type historyOptions struct {
	Limit  int
	Offset int
	All    bool
	Search string
	Filter string
	IDs    bool
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := newClientStore(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	var opts historyOptions
	opts.Limit, _ = flags.GetInt("limit")
	opts.Offset, _ = flags.GetInt("offset")
	opts.All, _ = flags.GetBool("all")
	opts.Search, _ = flags.GetString("search")
	opts.Filter, _ = flags.GetString("filter")
	opts.IDs, _ = flags.GetBool("ids")

	return listHistory(cmd.Context(), store, opts, cmd.OutOrStdout(), time.Now())
}

func listHistory(ctx context.Context, store *client.Store, opts historyOptions, out io.Writer, now time.Time) error {
	var items []models.Transcription
	var total int64

	switch {
	case opts.Search != "":
		page, err := store.Search(ctx, opts.Search, opts.Limit, opts.Offset)
		if err != nil {
			return err
		}
		items, total = page.Items, page.Total
	case opts.All:
		q := store.InfiniteHistory(opts.Limit)
		for q.HasNextPage() {
			page, err := q.FetchNextPage(ctx)
			if err != nil {
				return err
			}
			total = page.Total
		}
		items = q.Items()
	default:
		page, err := store.History(ctx, opts.Limit, opts.Offset)
		if err != nil {
			return err
		}
		items, total = page.Items, page.Total
	}

	items = client.FilterLocal(items, opts.Filter)

	if opts.IDs {
		for _, id := range client.IDs(items) {
			fmt.Fprintln(out, id)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tWORDS\tTEXT")
	for _, t := range items {
		words := "-"
		if t.WordCount != nil {
			words = fmt.Sprint(*t.WordCount)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, export.FormatRelative(t.CreatedAt, now), words, preview(t.TranscriptionText))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d transcription(s)\n", len(items), total)
	return nil
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength-3]) + "..."
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := newClientStore(cmd)
	if err != nil {
		return err
	}
	t, err := store.Transcription(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printTranscription(cmd.OutOrStdout(), t)
	return nil
}

func printTranscription(out io.Writer, t models.Transcription) {
	fmt.Fprintf(out, "ID:        %s\n", t.ID)
	fmt.Fprintf(out, "File:      %s\n", t.AudioFileName)
	fmt.Fprintf(out, "Date:      %s\n", export.FormatDateTime(t.CreatedAt))
	fmt.Fprintf(out, "Language:  %s\n", t.LanguageCode)
	if t.AudioDurationSeconds != nil {
		fmt.Fprintf(out, "Duration:  %s\n", export.FormatDuration(*t.AudioDurationSeconds))
	}
	if t.AudioFileSizeBytes != nil {
		fmt.Fprintf(out, "Size:      %s\n", export.FormatFileSize(*t.AudioFileSizeBytes))
	}
	if t.WordCount != nil {
		fmt.Fprintf(out, "Words:     %d\n", *t.WordCount)
	}
	if t.AudioFileURL != nil {
		fmt.Fprintf(out, "Audio:     %s\n", *t.AudioFileURL)
	}
	fmt.Fprintf(out, "\n%s\n", t.TranscriptionText)
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := newClientStore(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")

	t, err := store.Transcription(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	path, err := exportTranscription(t, output, cmd.OutOrStdout(), time.Now())
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", path)
	}
	return nil
}

// exportTranscription writes the text export into dir and returns the path.
// dir "-" writes to out instead and returns "".
func exportTranscription(t models.Transcription, dir string, out io.Writer, now time.Time) (string, error) {
	if dir == "-" {
		return "", export.WriteText(out, t)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, export.FileName(t, "txt", now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := export.WriteText(f, t); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, f.Close()
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	store, err := newClientStore(cmd)
	if err != nil {
		return err
	}
	language, _ := cmd.Flags().GetString("language")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading recording: %w", err)
	}

	res, err := store.Transcribe(cmd.Context(), filepath.Base(args[0]), data, language)
	if err != nil {
		return err
	}
	printTranscribeResult(cmd.OutOrStdout(), res)
	return nil
}

func printTranscribeResult(out io.Writer, res *client.TranscribeResult) {
	if res.Message != "" {
		fmt.Fprintln(out, res.Message)
	}
	if res.ID != "" {
		fmt.Fprintf(out, "ID:     %s\n", res.ID)
	}
	if res.AudioURL != nil {
		fmt.Fprintf(out, "Audio:  %s\n", *res.AudioURL)
	}
	if res.Warning != "" {
		fmt.Fprintf(out, "Warning: %s\n", res.Warning)
	}
	if res.Transcription != "" {
		fmt.Fprintf(out, "\n%s\n", res.Transcription)
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	store, err := newClientStore(cmd)
	if err != nil {
		return err
	}
	t, err := store.UpdateText(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	printTranscription(cmd.OutOrStdout(), t)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	store, err := newClientStore(cmd)
	if err != nil {
		return err
	}
	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: deleted\n", args[0])
	return nil
}
