package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescribe/internal/config"
	"github.com/nao1215/sitescribe/internal/database"
)

// defaultHistoryLimit is the number of sessions listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scrape sessions",
		Long: `History lists the sessions recorded by 'sitescribe scrape', newest first.

Examples:
  # Show the 20 most recent sessions
  sitescribe history

  # Only sessions seeded on one host
  sitescribe history --host docs.example.com

  # Machine-readable output
  sitescribe history --json -n 100

  # Remove a session (any unique ID prefix works)
  sitescribe history --delete 3f2a9c1b`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("host", "",
		"Only list sessions seeded on this host")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of sessions to list (0 = all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the list in JSON format")
	cmd.Flags().String("delete", "",
		"Delete the session with this ID instead of listing")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// historyEntry is the JSON shape of one listed session.
type historyEntry struct {
	ID           string `json:"id"`
	SeedURL      string `json:"seed_url"`
	Instructions string `json:"instructions,omitempty"`
	StartedAt    string `json:"started_at"`
	Documents    int    `json:"documents"`
	PagesFetched int    `json:"pages_fetched"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	deleteID, err := cmd.Flags().GetString("delete")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	store, err := openHistory(cmd)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No sessions recorded yet.")
		fmt.Fprintln(out, "\nUse 'sitescribe scrape <url>' to scrape a site.")
		return nil
	}
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()

	if deleteID != "" {
		if err := store.DeleteSession(ctx, deleteID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		fmt.Fprintf(out, "Deleted session %s\n", deleteID)
		return nil
	}

	summaries, err := store.ListSessions(ctx, host, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeHistoryJSON(out, summaries)
	}
	writeHistoryText(out, summaries)
	return nil
}

// openHistory opens the existing history database without creating one.
func openHistory(cmd *cobra.Command) (*database.Store, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	return database.Open(dbDir, opts)
}

func sessionStatus(sum database.SessionSummary) string {
	switch {
	case sum.Error != "":
		return "failed"
	case sum.Truncated:
		return "partial"
	default:
		return "ok"
	}
}

func writeHistoryJSON(w io.Writer, summaries []database.SessionSummary) error {
	entries := make([]historyEntry, 0, len(summaries))
	for _, sum := range summaries {
		entries = append(entries, historyEntry{
			ID:           sum.ID,
			SeedURL:      sum.SeedURL,
			Instructions: sum.Instructions,
			StartedAt:    sum.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			Documents:    sum.Documents,
			PagesFetched: sum.Stats.PagesFetched,
			Status:       sessionStatus(sum),
			Error:        sum.Error,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

func writeHistoryText(w io.Writer, summaries []database.SessionSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}

	fmt.Fprintf(w, "Sessions (%d):\n\n", len(summaries))
	fmt.Fprintf(w, "  %-8s  %-19s  %-7s  %5s  %5s  %s\n", "ID", "Started", "Status", "Docs", "Pages", "Seed")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 72))

	for _, sum := range summaries {
		fmt.Fprintf(w, "  %-8s  %-19s  %-7s  %5d  %5d  %s\n",
			shortID(sum.ID),
			sum.StartedAt.Local().Format("2006-01-02 15:04:05"),
			sessionStatus(sum),
			sum.Documents,
			sum.Stats.PagesFetched,
			sum.SeedURL,
		)
	}

	fmt.Fprintln(w, "\nUse 'sitescribe show <id>' to print a session.")
}
