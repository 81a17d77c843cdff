// Package main is the entrypoint for the claude-history CLI.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/claudehistory/internal/config"
	"github.com/sgx-labs/claudehistory/internal/corpus"
	"github.com/sgx-labs/claudehistory/internal/history"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	root       string
	configPath string
	logLevel   string
}

func (g *globalFlags) overrides() config.Overrides {
	return config.Overrides{
		ConfigPath: g.configPath,
		Root:       g.root,
		LogLevel:   g.logLevel,
	}
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "claude-history",
		Short: "Search past Claude Code conversations",
		Long:  "claude-history searches the session logs Claude Code keeps under ~/.claude/projects, from the command line or as an MCP server.",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(versionCmd())
	root.AddCommand(mcpCmd(g))
	root.AddCommand(searchCmd(g))
	root.AddCommand(statsCmd(g))
	root.AddCommand(contextCmd(g))
	root.AddCommand(configCmd(g))
	root.AddCommand(setupSubCmd(g))

	root.PersistentFlags().StringVar(&g.root, "root", "", "Session log directory (default ~/.claude/projects)")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file path")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the claude-history version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "claude-history %s\n", Version)
			return nil
		},
	}
}

// app is the loaded configuration plus the searcher built from it.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	level      *slog.LevelVar
	searcher   *history.Searcher
}

func loadApp(g *globalFlags) (*app, error) {
	cfg, path, err := config.Load(g.overrides())
	if err != nil {
		if errors.Is(err, config.ErrNoRoot) {
			return nil, userError(err.Error(), "Pass --root or set CLAUDE_HISTORY_ROOT to your Claude Code projects directory")
		}
		return nil, err
	}
	level := new(slog.LevelVar)
	logger := cfg.Log.NewLogger(os.Stderr, level)
	return &app{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		level:      level,
		searcher:   history.New(newCorpus(cfg, logger), cfg.HistoryOptions(), logger),
	}, nil
}

func newCorpus(cfg *config.Config, logger *slog.Logger) *corpus.Corpus {
	return corpus.New(cfg.CorpusOptions(corpus.SlogReporter{Logger: logger}))
}

// ---------- error helpers ----------

type historyError struct {
	message string
	hint    string
}

func (e *historyError) Error() string {
	return fmt.Sprintf("%s\n  Hint: %s", e.message, e.hint)
}

func userError(message, hint string) error {
	return &historyError{message: message, hint: hint}
}
