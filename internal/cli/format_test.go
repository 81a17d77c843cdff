package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/sgx-labs/claudehistory/internal/corpus"
	"github.com/sgx-labs/claudehistory/internal/history"
)

func TestFormatNumber(t *testing.T) {
	tests := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-1234:    "-1,234",
		10000000: "10,000,000",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d): expected %q, got %q", in, want, got)
		}
	}
}

func TestShortenHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	if got := ShortenHome(filepath.Join(home, ".claude", "projects")); got != filepath.Join("~", ".claude", "projects") {
		t.Errorf("unexpected shortened path %q", got)
	}
	if got := ShortenHome(home + "x/other"); got != home+"x/other" {
		t.Errorf("expected sibling path unchanged, got %q", got)
	}
}

func TestPadRight_WideCharacters(t *testing.T) {
	tests := []struct {
		in    string
		width int
	}{
		{"abc", 6},
		{"中文", 6},
		{"中文中文中文", 5},
		{"abcdefgh", 4},
	}
	for _, tt := range tests {
		got := PadRight(tt.in, tt.width)
		if w := runewidth.StringWidth(got); w != tt.width {
			t.Errorf("PadRight(%q, %d): expected width %d, got %d (%q)", tt.in, tt.width, tt.width, w, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	got := Truncate(strings.Repeat("中", 20), 11)
	if w := runewidth.StringWidth(got); w > 11 {
		t.Errorf("expected at most 11 columns, got %d (%q)", w, got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis, got %q", got)
	}
}

func TestOneLine(t *testing.T) {
	if got := OneLine("a\n\n b\tc  "); got != "a b c" {
		t.Errorf("expected %q, got %q", "a b c", got)
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, nil)
	if !strings.Contains(buf.String(), "No matching messages") {
		t.Errorf("expected empty message, got %q", buf.String())
	}

	buf.Reset()
	PrintResults(&buf, []history.Result{{
		Rank: 1, Score: 1, Weight: 1, Hits: 1, Normalized: 1,
		Project: "proj", Role: "user", File: "proj/a.jsonl", Line: 7,
		Snippet: "multi\nline snippet",
	}})
	out := buf.String()
	for _, want := range []string{"proj/a.jsonl:7", "score 1.0000", "multi line snippet"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrintWindow(t *testing.T) {
	var buf bytes.Buffer
	PrintWindow(&buf, corpus.Window{
		File:       "proj/a.jsonl",
		TargetLine: 2,
		Range:      "1-3",
		Total:      3,
		Messages: []corpus.ContextLine{
			{Line: 1, Type: "user", Content: "question"},
			{Line: 2, Type: "assistant", Content: "answer\n[Tool: Bash]", IsTarget: true},
		},
	})
	out := buf.String()
	if !strings.Contains(out, "lines 1-3 of 3") || !strings.Contains(out, "[Tool: Bash]") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Count(out, "> ") != 1 {
		t.Errorf("expected exactly one target marker:\n%s", out)
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	PrintStats(&buf, "/data/projects", history.Stats{TotalMessages: 1234, Projects: 2, ProjectList: []string{"a", "b"}})
	out := buf.String()
	if !strings.Contains(out, "1,234") || !strings.Contains(out, "Projects") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
