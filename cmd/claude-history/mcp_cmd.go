package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/claudehistory/internal/config"
	mcpserver "github.com/sgx-labs/claudehistory/internal/mcp"
)

func mcpCmd(g *globalFlags) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Serve the search_history, search_stats and get_context tools over stdio.

When a config file is in use it is watched, and changes apply to the next
query without restarting the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.configPath != "" && !noWatch {
				startConfigWatcher(ctx, a, g.overrides())
			}
			a.logger.Info("mcp server starting", "root", a.cfg.Corpus.Root, "workers", a.cfg.Corpus.Workers, "config", a.configPath)
			return mcpserver.New(a.searcher, Version, a.logger).Serve(ctx)
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the config file on change")
	return cmd
}

// startConfigWatcher applies config file changes to the running server.
// Failures to start are logged, not fatal.
func startConfigWatcher(ctx context.Context, a *app, o config.Overrides) {
	w, err := config.NewWatcher(a.configPath, o, a.reload, a.logger)
	if err != nil {
		a.logger.Warn("config hot reload disabled", "path", a.configPath, "error", err)
		return
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			a.logger.Warn("config watcher stopped", "error", err)
		}
	}()
}

// reload swaps the searcher's corpus and options and applies the new log
// level. The log format is fixed when the handler is built.
func (a *app) reload(cfg *config.Config) {
	cfg.Log.ApplyLevel(a.level)
	if cfg.Log.Format != a.cfg.Log.Format {
		a.logger.Warn("log format change takes effect after restart", "format", cfg.Log.Format)
	}
	a.searcher.Reconfigure(newCorpus(cfg, a.logger), cfg.HistoryOptions())
}
