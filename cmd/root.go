// Package cmd implements the gurukul command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gurukul",
	Short: "Gurukul - retrieval-grounded answers over school textbook content",
	Long: `Gurukul ingests textbook chapters into a vector store and answers
student questions grounded strictly on the retrieved material.

Commands:
  serve    start the HTTP API server
  ingest   ingest a chapter text file into the content store
  ask      ask a question against ingested content
  version  show version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
