package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sgx-labs/claudehistory/internal/cli"
	"github.com/sgx-labs/claudehistory/internal/config"
	mcpserver "github.com/sgx-labs/claudehistory/internal/mcp"
	"github.com/sgx-labs/claudehistory/internal/setup"
)

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage claude-history configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.Load(g.overrides())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.ShowConfig(cfg, path))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print path to the config file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FindConfigFile(g.configPath)
			if path == "" {
				return userError("No config file found", "Run 'claude-history config init' to create "+config.UserConfigPath())
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				path = config.UserConfigPath()
			}
			if path == "" {
				return userError("Cannot determine config location", "Pass --config with a file path")
			}
			path = config.ExpandHome(path)
			if err := config.GenerateConfig(path, force); err != nil {
				return userError(err.Error(), "Pass --force to overwrite it")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.AddCommand(initCmd)

	return cmd
}

// ---------- setup ----------

func setupSubCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Set up integrations (MCP)",
	}

	var (
		dir    string
		remove bool
	)
	mcpSetupCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Register or remove the claude-history MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}
			out := cmd.OutOrStdout()
			if remove {
				return setup.RemoveMCP(dir, out)
			}
			root := g.root
			if root != "" {
				abs, err := filepath.Abs(config.ExpandHome(root))
				if err != nil {
					return err
				}
				root = abs
			}
			if setup.MCPInstalled(dir) {
				fmt.Fprintf(out, "  %s already registered, updating\n", mcpserver.ServerName)
			}
			if err := setup.SetupMCP(dir, root, out); err != nil {
				return err
			}
			if portable, ok := setup.MCPUsesPortablePath(dir); ok && !portable {
				fmt.Fprintf(out, "  %s!%s Command is an absolute path; re-run 'claude-history setup mcp' if the binary moves.\n", cli.Yellow, cli.Reset)
			}
			fmt.Fprintf(out, "\n  Available MCP tools (%s):\n", mcpserver.ServerName)
			fmt.Fprintln(out, "    search_history  Search past conversations")
			fmt.Fprintln(out, "    search_stats    Searchable message and project counts")
			fmt.Fprintln(out, "    get_context     Read the conversation around a result")
			return nil
		},
	}
	mcpSetupCmd.Flags().StringVar(&dir, "dir", "", "Directory containing .mcp.json (default current directory)")
	mcpSetupCmd.Flags().BoolVar(&remove, "remove", false, "Remove the server instead of adding it")
	cmd.AddCommand(mcpSetupCmd)

	return cmd
}
