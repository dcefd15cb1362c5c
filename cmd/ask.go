package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gurukul-labs/gurukul/internal/app"
	"github.com/gurukul-labs/gurukul/internal/config"
)

var (
	askSubject string
	askClass   int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against ingested content",
	Long: `Ask retrieves the most relevant chunks for the question within the
given subject and class, and prints an answer grounded strictly on them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), cmd, strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVar(&askSubject, "subject", "", "subject to search within (required)")
	askCmd.Flags().IntVar(&askClass, "class", 0, "class number to search within (required)")
	_ = askCmd.MarkFlagRequired("subject")
	_ = askCmd.MarkFlagRequired("class")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, cmd *cobra.Command, question string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	answer, err := a.Retrieval.Answer(ctx, question, askClass, askSubject)
	if err != nil {
		return fmt.Errorf("answering: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
