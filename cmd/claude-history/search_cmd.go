package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/claudehistory/internal/cli"
	"github.com/sgx-labs/claudehistory/internal/corpus"
	"github.com/sgx-labs/claudehistory/internal/history"
)

func searchCmd(g *globalFlags) *cobra.Command {
	var (
		limit   int
		project string
		jsonOut bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search past conversations",
		Long: `Rank messages from every session log by how many word pairs of the
query they contain.

Examples:
  claude-history search "retry budget"
  claude-history search --project api --limit 10 flaky test timeout`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				return userError("Empty search query", "Provide a search term: claude-history search \"your query\"")
			}
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			results, stats, err := a.searcher.Search(cmd.Context(), history.Query{
				Text:    query,
				Limit:   limit,
				Project: project,
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, results)
			}
			cli.PrintResults(out, results)
			if verbose {
				cli.PrintScanStats(cmd.ErrOrStderr(), stats)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of results (default from config)")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Only search projects matching this name")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print scan statistics to stderr")
	return cmd
}

func statsCmd(g *globalFlags) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show how much history is searchable",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			stats, err := a.searcher.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			cli.PrintStats(cmd.OutOrStdout(), a.cfg.Corpus.Root, stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func contextCmd(g *globalFlags) *cobra.Command {
	var (
		lines   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "context <file> <line>",
		Short: "Show the conversation around a search result",
		Long: `Print the records surrounding a line of a session log. The file is the
value shown by search (project/session.jsonl) or a bare session file name.

Example:
  claude-history context my-project/0f3c9a1e-77b2.jsonl 42 --lines 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := strconv.Atoi(args[1])
			if err != nil {
				return userError(fmt.Sprintf("Invalid line number %q", args[1]), "Use the line value printed by search")
			}
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			win, err := a.searcher.Context(cmd.Context(), args[0], line, lines)
			if err != nil {
				if errors.Is(err, corpus.ErrFileNotFound) {
					return userError(err.Error(), "Pass the file exactly as search prints it")
				}
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), win)
			}
			cli.PrintWindow(cmd.OutOrStdout(), win)
			return nil
		},
	}
	cmd.Flags().IntVar(&lines, "lines", 0, "Records on each side of the target (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
