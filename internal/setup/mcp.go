// Package setup registers claude-history with MCP clients.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sgx-labs/claudehistory/internal/config"
	"github.com/sgx-labs/claudehistory/internal/mcp"
)

// MCPFileName is the project-level MCP client config file.
const MCPFileName = ".mcp.json"

// binaryName is the executable looked up when writing the server command.
const binaryName = "claude-history"

// mcpFile keeps every top-level key of .mcp.json so that rewriting it does
// not drop settings owned by other tools.
type mcpFile struct {
	Servers map[string]mcpServer
	Extra   map[string]json.RawMessage
}

type mcpServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

func readMCPFile(path string) (*mcpFile, error) {
	f := &mcpFile{Servers: map[string]mcpServer{}, Extra: map[string]json.RawMessage{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(data, &f.Extra); err != nil {
		return f, fmt.Errorf("parse %s: %w", MCPFileName, err)
	}
	if raw, ok := f.Extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &f.Servers); err != nil {
			return f, fmt.Errorf("parse %s mcpServers: %w", MCPFileName, err)
		}
		delete(f.Extra, "mcpServers")
	}
	return f, nil
}

func (f *mcpFile) write(path string) error {
	out := make(map[string]any, len(f.Extra)+1)
	for k, v := range f.Extra {
		out[k] = v
	}
	out["mcpServers"] = f.Servers
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", MCPFileName, err)
	}
	return nil
}

// SetupMCP registers the server in <dir>/.mcp.json. A non-empty root is
// passed to the server through the environment.
func SetupMCP(dir, root string, w io.Writer) error {
	path := filepath.Join(dir, MCPFileName)
	f, err := readMCPFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	server := mcpServer{
		Command: detectBinaryPath(),
		Args:    []string{"mcp"},
	}
	if root != "" {
		server.Env = map[string]string{config.EnvRoot: root}
	}
	f.Servers[mcp.ServerName] = server

	if err := f.write(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "  → %s (MCP server %q)\n", path, mcp.ServerName)
	return nil
}

// RemoveMCP removes the server from <dir>/.mcp.json.
func RemoveMCP(dir string, w io.Writer) error {
	path := filepath.Join(dir, MCPFileName)
	f, err := readMCPFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", MCPFileName, err)
		}
		return err
	}

	if _, ok := f.Servers[mcp.ServerName]; !ok {
		fmt.Fprintf(w, "  %s not registered in %s\n", mcp.ServerName, path)
		return nil
	}
	delete(f.Servers, mcp.ServerName)

	if err := f.write(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "  Removed %s from %s\n", mcp.ServerName, path)
	return nil
}

// MCPInstalled reports whether the server is registered in <dir>/.mcp.json.
func MCPInstalled(dir string) bool {
	f, err := readMCPFile(filepath.Join(dir, MCPFileName))
	if err != nil {
		return false
	}
	_, ok := f.Servers[mcp.ServerName]
	return ok
}

// MCPUsesPortablePath reports whether the registered command is a bare
// binary name resolved through PATH rather than an absolute path. exists is
// false when the server is not registered.
func MCPUsesPortablePath(dir string) (portable, exists bool) {
	f, err := readMCPFile(filepath.Join(dir, MCPFileName))
	if err != nil {
		return false, false
	}
	s, ok := f.Servers[mcp.ServerName]
	if !ok {
		return false, false
	}
	return !filepath.IsAbs(s.Command) && filepath.Base(s.Command) == s.Command, true
}

func detectBinaryPath() string {
	if p, err := exec.LookPath(binaryName); err == nil {
		return p
	}

	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, ".local", "bin", binaryName),
		filepath.Join(home, "go", "bin", binaryName),
		"/usr/local/bin/" + binaryName,
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	// Fall back to the bare name and hope it's in PATH at runtime.
	return binaryName
}
