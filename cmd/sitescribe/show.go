package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescribe/internal/config"
	"github.com/nao1215/sitescribe/internal/report"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a recorded scrape session",
		Long: `Show prints a session recorded by 'sitescribe scrape': its keywords, crawl
statistics, skipped pages and documents. Any unique prefix of the session ID
is accepted; 'sitescribe history' lists the IDs.

Examples:
  # Human-readable session report
  sitescribe show 3f2a9c1b

  # Re-export only the documents as JSON
  sitescribe show --documents -f json -o docs.json 3f2a9c1b`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().StringP("format", "f", config.FormatText,
		"Output format: json, markdown or text")
	cmd.Flags().StringP("output", "o", "",
		"Write to this file instead of stdout")
	cmd.Flags().Bool("documents", false,
		"Print only the documents, in the same shape as 'scrape' output")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) (err error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	documentsOnly, err := cmd.Flags().GetBool("documents")
	if err != nil {
		return err
	}

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	session, err := store.GetSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(outputPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeOut())
	}()

	// Verbose text reports include the failure message of each skipped page.
	var w report.Writer
	if format == config.FormatText {
		w = report.NewTextWriter(out, report.WithVerbose(getBoolFlag(cmd, "verbose")))
	} else {
		w, err = report.New(format, out, getVersion())
		if err != nil {
			return err
		}
	}

	if documentsOnly {
		_, err = w.WriteDocuments(session.Documents)
	} else {
		_, err = w.WriteSession(session)
	}
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
