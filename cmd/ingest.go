package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gurukul-labs/gurukul/internal/app"
	"github.com/gurukul-labs/gurukul/internal/config"
	"github.com/gurukul-labs/gurukul/internal/retrieval"
)

var (
	ingestSubject string
	ingestClass   int
	ingestChapter string
	ingestSource  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a chapter text file into the content store",
	Long: `Ingest reads a plain-text chapter export and stores it as embedded,
searchable chunks. Pages are separated by form-feed characters (\f), the
convention used by pdftotext; a file without form feeds is treated as a
single page.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), cmd, args[0])
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSubject, "subject", "", "subject the chapter belongs to (required)")
	ingestCmd.Flags().IntVar(&ingestClass, "class", 0, "class number the chapter belongs to (required)")
	ingestCmd.Flags().StringVar(&ingestChapter, "chapter", "", "chapter name (required)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source document name (defaults to the file name)")
	_ = ingestCmd.MarkFlagRequired("subject")
	_ = ingestCmd.MarkFlagRequired("class")
	_ = ingestCmd.MarkFlagRequired("chapter")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context, cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied CLI argument
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	source := ingestSource
	if source == "" {
		source = filepath.Base(path)
	}

	doc := retrieval.DocumentInput{
		Subject:   ingestSubject,
		ClassNo:   ingestClass,
		Chapter:   ingestChapter,
		SourcePDF: source,
	}
	for i, text := range strings.Split(string(data), "\f") {
		doc.Pages = append(doc.Pages, retrieval.PageText{Number: i + 1, Text: text})
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	report, err := a.Retrieval.IngestDocument(ctx, doc)
	fmt.Fprintf(cmd.OutOrStdout(), "ingested %d chunks (%d failed) from %d pages\n",
		report.Chunks, report.Failed, len(doc.Pages))
	if err != nil {
		return fmt.Errorf("some chunks failed: %w", err)
	}
	return nil
}
