// Package mcp implements the MCP server for claude-history.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sgx-labs/claudehistory/internal/corpus"
	"github.com/sgx-labs/claudehistory/internal/history"
)

// ServerName identifies the server to MCP clients and in .mcp.json.
const ServerName = "claude-history"

// Server exposes a Searcher as MCP tools.
type Server struct {
	searcher *history.Searcher
	version  string
	logger   *slog.Logger
}

// New returns a Server backed by s.
func New(s *history.Searcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{searcher: s, version: version, logger: logger}
}

// Serve runs the MCP server on stdio until ctx is done or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.MCPServer().Run(ctx, &mcp.StdioTransport{})
}

// MCPServer builds the protocol server with all tools registered.
func (s *Server) MCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: s.version,
	}, nil)
	s.registerTools(server)
	return server
}

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_history",
		Description: "Search past Claude Code conversations for messages relevant to a query. Use this to recall earlier decisions, fixes, or discussions across all projects.\n\nArgs:\n  query: Free-text query; at least two distinct words (or CJK characters) are needed to match\n  limit: Number of results (default 3, max 100)\n  project: Optional project name filter, matched fuzzily against project directories\n\nReturns a JSON array of ranked results with project, session, file, line, score and a snippet around the match. Pass file and line to get_context to read the surrounding conversation.",
	}, s.handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_stats",
		Description: "Report how much conversation history is searchable.\n\nReturns total_messages, the number of projects, and the sorted project list.",
	}, s.handleStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_context",
		Description: "Read the conversation around a search result.\n\nArgs:\n  file: File as returned by search_history (project/session.jsonl) or a bare session file name\n  line: Line number of the message (1-based)\n  context_lines: Records to include on each side (default 5, max 50)\n\nReturns the surrounding messages with the target marked is_target, or {\"error\": ...}.",
	}, s.handleContext)
}

// Tool input types

type searchInput struct {
	Query   string `json:"query" jsonschema:"Free-text search query"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Number of results (default 3, max 100)"`
	Project string `json:"project,omitempty" jsonschema:"Restrict the search to projects matching this name"`
}

type contextInput struct {
	File         string `json:"file" jsonschema:"Session file as returned by search_history"`
	Line         int    `json:"line" jsonschema:"1-based line number of the target message"`
	ContextLines int    `json:"context_lines,omitempty" jsonschema:"Records on each side of the target (default 5, max 50)"`
}

type emptyInput struct{}

// Tool handlers

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input searchInput) (*mcp.CallToolResult, any, error) {
	results, stats, err := s.searcher.Search(ctx, history.Query{
		Text:    input.Query,
		Limit:   input.Limit,
		Project: input.Project,
	})
	if err != nil {
		s.logger.Warn("search failed", "query", input.Query, "error", err)
		return textResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}
	s.logger.Debug("search", "query", input.Query, "results", len(results), "messages", stats.Messages)
	return jsonResult(results), nil, nil
}

func (s *Server) handleStats(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.searcher.Stats(ctx)
	if err != nil {
		s.logger.Warn("stats failed", "error", err)
		return textResult(fmt.Sprintf("Stats error: %v", err)), nil, nil
	}
	return jsonResult(stats), nil, nil
}

func (s *Server) handleContext(ctx context.Context, req *mcp.CallToolRequest, input contextInput) (*mcp.CallToolResult, any, error) {
	w, err := s.searcher.Context(ctx, input.File, input.Line, input.ContextLines)
	if err != nil {
		if !errors.Is(err, corpus.ErrFileNotFound) {
			s.logger.Warn("get_context failed", "file", input.File, "error", err)
		}
		return jsonResult(map[string]string{"error": err.Error()}), nil, nil
	}
	return jsonResult(w), nil, nil
}

// Helpers

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return textResult(fmt.Sprintf("Encoding error: %v", err))
	}
	return textResult(string(data))
}
