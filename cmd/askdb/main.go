package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "askdb",
	Short: "Answer natural-language questions from a relational database",
	Long: `askdb turns a question into SQL with an LLM, runs it against the configured
MySQL, PostgreSQL, Oracle or SQL Server database and answers in plain language.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, schemaCmd, askCmd, tokenCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
