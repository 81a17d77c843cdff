// Package config provides configuration for the claude-history binary.
// Loads from: CLI flags > env vars > config.toml > built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sgx-labs/claudehistory/internal/corpus"
	"github.com/sgx-labs/claudehistory/internal/history"
	"github.com/sgx-labs/claudehistory/internal/rank"
)

// ErrNoRoot is returned when no usable corpus root is configured.
var ErrNoRoot = errors.New("no usable corpus root")

// Environment variables read by Load.
const (
	EnvConfig   = "CLAUDE_HISTORY_CONFIG"
	EnvRoot     = "CLAUDE_HISTORY_ROOT"
	EnvWorkers  = "CLAUDE_HISTORY_WORKERS"
	EnvTieBreak = "CLAUDE_HISTORY_TIE_BREAK"
	EnvSanitize = "CLAUDE_HISTORY_SANITIZE"
	EnvLogLevel = "CLAUDE_HISTORY_LOG_LEVEL"
)

// LocalConfigName is the per-directory config file checked before the user
// config.
const LocalConfigName = ".claude-history.toml"

// DefaultRoot is where Claude Code keeps its per-project session logs.
const DefaultRoot = "~/.claude/projects"

// Config holds all claude-history configuration, loaded from TOML + env + flags.
type Config struct {
	Corpus  CorpusConfig  `toml:"corpus"`
	Search  SearchConfig  `toml:"search"`
	Context ContextConfig `toml:"context"`
	Log     LogConfig     `toml:"log"`
}

// CorpusConfig locates the session logs and controls how they are read.
type CorpusConfig struct {
	Root           string  `toml:"root"`
	Workers        int     `toml:"workers"`          // concurrent file scanners
	FilesPerSecond float64 `toml:"files_per_second"` // 0 = unthrottled
}

// SearchConfig tunes ranking.
type SearchConfig struct {
	DefaultLimit  int    `toml:"default_limit"`
	MaxLimit      int    `toml:"max_limit"`
	MaxTokens     int    `toml:"max_tokens"`
	DecayBase     int    `toml:"decay_base"`
	SnippetRadius int    `toml:"snippet_radius"`
	TieBreak      string `toml:"tie_break"` // "mtime" (default) or "insertion"
	Sanitize      bool   `toml:"sanitize"`
}

// ContextConfig bounds get_context windows.
type ContextConfig struct {
	DefaultLines    int `toml:"default_lines"`
	MaxLines        int `toml:"max_lines"`
	MaxContentChars int `toml:"max_content_chars"`
}

// LogConfig controls diagnostic output on stderr.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // "text" (default) or "json"
}

// DefaultConfig returns a Config with all built-in defaults.
func DefaultConfig() *Config {
	o := history.DefaultOptions()
	return &Config{
		Corpus: CorpusConfig{
			Root:    DefaultRoot,
			Workers: 1,
		},
		Search: SearchConfig{
			DefaultLimit:  o.DefaultLimit,
			MaxLimit:      o.MaxLimit,
			MaxTokens:     o.MaxTokens,
			DecayBase:     o.DecayBase,
			SnippetRadius: o.SnippetRadius,
			TieBreak:      o.TieBreak.String(),
			Sanitize:      o.Sanitize,
		},
		Context: ContextConfig{
			DefaultLines:    o.ContextLines,
			MaxLines:        o.MaxContextLines,
			MaxContentChars: o.MaxContentChars,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Overrides carries values set by command-line flags. Empty fields are unset.
type Overrides struct {
	ConfigPath string
	Root       string
	LogLevel   string
}

// Load merges all configuration sources: defaults < TOML file < env vars <
// flags, then validates the result. It returns the config file that was read,
// or "" when none was found.
func Load(o Overrides) (*Config, string, error) {
	path := FindConfigFile(o.ConfigPath)
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, path, err
	}
	if o.Root != "" {
		cfg.Corpus.Root = o.Root
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFrom reads defaults, the TOML file at path (if any) and env vars. It
// does not validate.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			meta, err := toml.DecodeFile(path, cfg)
			if err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
			warnUnknownKeys(meta, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvRoot); v != "" {
		cfg.Corpus.Root = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Corpus.Workers = n
		} else {
			fmt.Fprintf(os.Stderr, "claude-history: WARNING: %s=%q is not a number (ignored)\n", EnvWorkers, v)
		}
	}
	if v := os.Getenv(EnvTieBreak); v != "" {
		cfg.Search.TieBreak = v
	}
	if v := os.Getenv(EnvSanitize); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Search.Sanitize = b
		} else {
			fmt.Fprintf(os.Stderr, "claude-history: WARNING: %s=%q is not a boolean (ignored)\n", EnvSanitize, v)
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

// FindConfigFile returns the config file to read: explicit if set, then
// $CLAUDE_HISTORY_CONFIG, then ./.claude-history.toml, then the user config
// if it exists. Returns "" when there is none.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return ExpandHome(explicit)
	}
	if v := os.Getenv(EnvConfig); v != "" {
		return ExpandHome(v)
	}
	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, LocalConfigName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if p := UserConfigPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// UserConfigPath returns $XDG_CONFIG_HOME/claude-history/config.toml,
// defaulting to ~/.config.
func UserConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "claude-history", "config.toml")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Validate resolves the corpus root and resets out-of-range values to their
// defaults. Only an unusable root is an error.
func (c *Config) Validate() error {
	root, err := validateRoot(c.Corpus.Root)
	if err != nil {
		return err
	}
	c.Corpus.Root = root

	def := DefaultConfig()
	if c.Corpus.Workers < 1 {
		c.Corpus.Workers = 1
	}
	if limit := 4 * runtime.NumCPU(); c.Corpus.Workers > limit {
		c.Corpus.Workers = limit
	}
	if c.Corpus.FilesPerSecond < 0 {
		c.Corpus.FilesPerSecond = 0
	}
	resetIfBelow(&c.Search.MaxLimit, 1, def.Search.MaxLimit)
	resetIfBelow(&c.Search.DefaultLimit, 1, def.Search.DefaultLimit)
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		c.Search.DefaultLimit = c.Search.MaxLimit
	}
	resetIfBelow(&c.Search.MaxTokens, 2, def.Search.MaxTokens)
	resetIfBelow(&c.Search.DecayBase, 2, def.Search.DecayBase)
	resetIfBelow(&c.Search.SnippetRadius, 1, def.Search.SnippetRadius)
	tb, err := rank.ParseTieBreak(c.Search.TieBreak)
	if err != nil {
		fmt.Fprintf(os.Stderr, "claude-history: WARNING: %v, using %q\n", err, tb)
	}
	c.Search.TieBreak = tb.String()
	resetIfBelow(&c.Context.MaxLines, 1, def.Context.MaxLines)
	resetIfBelow(&c.Context.DefaultLines, 1, def.Context.DefaultLines)
	if c.Context.DefaultLines > c.Context.MaxLines {
		c.Context.DefaultLines = c.Context.MaxLines
	}
	resetIfBelow(&c.Context.MaxContentChars, 1, def.Context.MaxContentChars)
	if _, err := ParseLevel(c.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "claude-history: WARNING: %v, using \"info\"\n", err)
		c.Log.Level = "info"
	}
	if c.Log.Format != "json" {
		c.Log.Format = "text"
	}
	return nil
}

func resetIfBelow(v *int, floor, def int) {
	if *v < floor {
		*v = def
	}
}

// validateRoot expands and absolutizes root, refusing paths that would turn
// a scan into a walk of the whole filesystem (/, /home, /Users, ...).
func validateRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("%w: corpus.root is empty", ErrNoRoot)
	}
	abs, err := filepath.Abs(ExpandHome(root))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRoot, err)
	}
	abs = filepath.Clean(abs)

	dangerous := []string{"/", "/home", "/Users", "/tmp", "/var", "/etc", "/opt"}
	if home, err := os.UserHomeDir(); err == nil {
		dangerous = append(dangerous, filepath.Clean(home))
	}
	if runtime.GOOS == "windows" && len(abs) >= 3 {
		driveRoot := abs[:3]
		dangerous = append(dangerous, driveRoot, filepath.Join(driveRoot, "Users"), filepath.Join(driveRoot, "Windows"))
	}
	resolved, rerr := filepath.EvalSymlinks(abs)
	for _, d := range dangerous {
		if abs == d {
			return "", fmt.Errorf("%w: %s is too broad", ErrNoRoot, abs)
		}
		if rerr != nil {
			continue
		}
		if resolved == d {
			return "", fmt.Errorf("%w: %s resolves to %s which is too broad", ErrNoRoot, abs, resolved)
		}
		// macOS links /tmp and /var into /private.
		if rd, err := filepath.EvalSymlinks(d); err == nil && resolved == rd {
			return "", fmt.Errorf("%w: %s resolves to %s which is too broad", ErrNoRoot, abs, resolved)
		}
	}
	return abs, nil
}

// TieBreakOrder returns the configured tie-break. Call after Validate.
func (c *Config) TieBreakOrder() rank.TieBreak {
	tb, _ := rank.ParseTieBreak(c.Search.TieBreak)
	return tb
}

// HistoryOptions maps the search and context sections to query options.
func (c *Config) HistoryOptions() history.Options {
	return history.Options{
		DefaultLimit:    c.Search.DefaultLimit,
		MaxLimit:        c.Search.MaxLimit,
		MaxTokens:       c.Search.MaxTokens,
		DecayBase:       c.Search.DecayBase,
		SnippetRadius:   c.Search.SnippetRadius,
		TieBreak:        c.TieBreakOrder(),
		Sanitize:        c.Search.Sanitize,
		ContextLines:    c.Context.DefaultLines,
		MaxContextLines: c.Context.MaxLines,
		MaxContentChars: c.Context.MaxContentChars,
	}
}

// CorpusOptions maps the corpus section to corpus options.
func (c *Config) CorpusOptions(r corpus.Reporter) corpus.Options {
	return corpus.Options{
		Root:           c.Corpus.Root,
		Workers:        c.Corpus.Workers,
		FilesPerSecond: c.Corpus.FilesPerSecond,
		Reporter:       r,
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// NewLogger returns a logger writing to w in the configured format. The
// logger reads its level from lv, which is set to the configured level; keep
// lv to change the level later with ApplyLevel. A nil lv is allocated.
func (c LogConfig) NewLogger(w io.Writer, lv *slog.LevelVar) *slog.Logger {
	if lv == nil {
		lv = new(slog.LevelVar)
	}
	c.ApplyLevel(lv)
	opts := &slog.HandlerOptions{Level: lv}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ApplyLevel sets lv to the configured level.
func (c LogConfig) ApplyLevel(lv *slog.LevelVar) {
	level, _ := ParseLevel(c.Level)
	lv.Set(level)
}

// ShowConfig returns cfg as TOML.
func ShowConfig(cfg *Config, path string) string {
	var b strings.Builder
	b.WriteString("# Effective claude-history configuration (merged from all sources)\n")
	if path != "" {
		fmt.Fprintf(&b, "# Config file: %s\n", path)
	} else {
		b.WriteString("# Config file: none (built-in defaults)\n")
	}
	b.WriteString("\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		fmt.Fprintf(&b, "# Error encoding config: %v\n", err)
	}
	return b.String()
}

// GenerateConfig writes a commented default config to path. An existing file
// is only replaced when force is set.
func GenerateConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(generateTOMLContent()), 0o600)
}

func generateTOMLContent() string {
	d := DefaultConfig()
	var b strings.Builder
	b.WriteString("# claude-history configuration\n")
	b.WriteString("#\n")
	b.WriteString("# Priority: CLI flags > environment variables > this file > built-in defaults\n")
	b.WriteString("# Environment variables: CLAUDE_HISTORY_ROOT, CLAUDE_HISTORY_WORKERS,\n")
	b.WriteString("#   CLAUDE_HISTORY_TIE_BREAK, CLAUDE_HISTORY_SANITIZE, CLAUDE_HISTORY_LOG_LEVEL\n\n")

	b.WriteString("[corpus]\n")
	fmt.Fprintf(&b, "root = %q\n", d.Corpus.Root)
	b.WriteString("# Files scanned concurrently. Results do not depend on this value.\n")
	fmt.Fprintf(&b, "workers = %d\n", d.Corpus.Workers)
	b.WriteString("# Cap on log files opened per second; 0 = unthrottled\n")
	b.WriteString("files_per_second = 0.0\n\n")

	b.WriteString("[search]\n")
	fmt.Fprintf(&b, "default_limit = %d\n", d.Search.DefaultLimit)
	fmt.Fprintf(&b, "max_limit = %d\n", d.Search.MaxLimit)
	b.WriteString("# Query words beyond this many are ignored\n")
	fmt.Fprintf(&b, "max_tokens = %d\n", d.Search.MaxTokens)
	b.WriteString("# Weight drops by this factor per rank layer (ranks 1-3 | 4-15 | 16-63 | ...)\n")
	fmt.Fprintf(&b, "decay_base = %d\n", d.Search.DecayBase)
	b.WriteString("# Characters shown on each side of the first match\n")
	fmt.Fprintf(&b, "snippet_radius = %d\n", d.Search.SnippetRadius)
	b.WriteString("# Order among equal scores: \"mtime\" (newest session first) or \"insertion\" (scan order)\n")
	fmt.Fprintf(&b, "tie_break = %q\n", d.Search.TieBreak)
	b.WriteString("# Replace snippets that look like prompt injection. Off by default because\n")
	b.WriteString("# transcripts routinely discuss prompts and instructions.\n")
	fmt.Fprintf(&b, "sanitize = %t\n\n", d.Search.Sanitize)

	b.WriteString("[context]\n")
	fmt.Fprintf(&b, "default_lines = %d\n", d.Context.DefaultLines)
	fmt.Fprintf(&b, "max_lines = %d\n", d.Context.MaxLines)
	fmt.Fprintf(&b, "max_content_chars = %d\n\n", d.Context.MaxContentChars)

	b.WriteString("[log]\n")
	b.WriteString("# debug | info | warn | error\n")
	fmt.Fprintf(&b, "level = %q\n", d.Log.Level)
	b.WriteString("# text | json\n")
	fmt.Fprintf(&b, "format = %q\n", d.Log.Format)
	return b.String()
}

// configSuggestions maps common wrong keys to the correct TOML key name.
var configSuggestions = map[string]string{
	"path":            "root",
	"dir":             "root",
	"directory":       "root",
	"projects":        "root",
	"threads":         "workers",
	"concurrency":     "workers",
	"limit":           "default_limit",
	"top_k":           "default_limit",
	"topk":            "default_limit",
	"radius":          "snippet_radius",
	"tiebreak":        "tie_break",
	"tie-break":       "tie_break",
	"decay":           "decay_base",
	"lines":           "default_lines",
	"context_lines":   "default_lines",
	"max_chars":       "max_content_chars",
	"rate":            "files_per_second",
	"files_per_sec":   "files_per_second",
	"sanitize_output": "sanitize",
}

// warnUnknownKeys prints warnings for unrecognized config keys.
func warnUnknownKeys(meta toml.MetaData, configPath string) {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return
	}

	fname := filepath.Base(configPath)
	for _, key := range undecoded {
		keyStr := key.String()
		lastPart := key[len(key)-1]

		if suggestion, ok := configSuggestions[lastPart]; ok {
			fmt.Fprintf(os.Stderr, "claude-history: WARNING: unknown key %q in %s, did you mean %q?\n",
				keyStr, fname, suggestion)
		} else {
			fmt.Fprintf(os.Stderr, "claude-history: WARNING: unknown key %q in %s (will be ignored)\n",
				keyStr, fname)
		}
	}
}
