// Package cli provides shared formatting helpers for CLI output.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/sgx-labs/claudehistory/internal/corpus"
	"github.com/sgx-labs/claudehistory/internal/history"
)

// ANSI color constants.
const (
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Red     = "\033[31m"
	Cyan    = "\033[36m"
	DimCyan = "\033[2;36m"
	Dim     = "\033[2m"
	Bold    = "\033[1m"
	Reset   = "\033[0m"
)

// Box width is the inner content width (between the border characters).
const boxWidth = 40

// Margin is the left indent for all branded output.
const margin = "  "

// SnippetWidth is the terminal column budget for one snippet line.
const SnippetWidth = 100

// ShortenHome replaces $HOME prefix with ~.
func ShortenHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home || strings.HasPrefix(path, home+string(os.PathSeparator)) {
		return "~" + path[len(home):]
	}
	return path
}

// FormatNumber adds comma separators (1234 -> "1,234").
func FormatNumber(n int) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return FormatNumber(n/1000) + "," + fmt.Sprintf("%03d", n%1000)
}

// Header prints a small heavy-border box with a title.
func Header(w io.Writer, title string) {
	fmt.Fprintln(w)
	heavyTop := margin + "┏" + strings.Repeat("━", boxWidth) + "┓"
	heavyBottom := margin + "┗" + strings.Repeat("━", boxWidth) + "┛"

	padded := PadRight("  "+title, boxWidth)

	fmt.Fprintf(w, "%s%s%s\n", Cyan, heavyTop, Reset)
	fmt.Fprintf(w, "%s%s┃%s┃%s\n", Cyan, margin, padded, Reset)
	fmt.Fprintf(w, "%s%s%s\n", Cyan, heavyBottom, Reset)
}

// Section prints a section divider line: ── Name ─────────────────
func Section(w io.Writer, name string) {
	prefix := "── " + name + " "
	remaining := max(boxWidth+2-runewidth.StringWidth(prefix), 0)
	rule := prefix + strings.Repeat("─", remaining)
	fmt.Fprintf(w, "\n%s%s%s%s\n\n", margin, Cyan, rule, Reset)
}

// PadRight pads s with spaces to exactly width terminal columns, truncating
// when s is wider. Wide (CJK) characters count as two columns.
func PadRight(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "")
	}
	return runewidth.FillRight(s, width)
}

// Truncate shortens s to at most width terminal columns, ending with "...".
func Truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

// OneLine collapses runs of whitespace, including newlines, into single
// spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PrintResults writes ranked search results in a human-readable layout.
func PrintResults(w io.Writer, results []history.Result) {
	if len(results) == 0 {
		fmt.Fprintf(w, "%sNo matching messages.%s\n", Dim, Reset)
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s%d.%s %s%s%s %s%s:%d%s\n",
			Bold, r.Rank, Reset,
			Cyan, r.Project, Reset,
			Dim, r.File, r.Line, Reset)
		fmt.Fprintf(w, "   %s%s%s  score %.4f  hits %d  weight %g\n",
			roleColor(r.Role), r.Role, Reset, r.Score, r.Hits, r.Weight)
		fmt.Fprintf(w, "   %s\n\n", Truncate(OneLine(r.Snippet), SnippetWidth))
	}
}

// PrintScanStats writes a one-line scan summary.
func PrintScanStats(w io.Writer, s corpus.ScanStats) {
	fmt.Fprintf(w, "%sscanned %s messages in %s files (%d unreadable, %d malformed lines)%s\n",
		Dim, FormatNumber(s.Messages), FormatNumber(s.Files), s.FilesSkipped, s.Malformed, Reset)
}

// PrintStats writes corpus statistics.
func PrintStats(w io.Writer, root string, s history.Stats) {
	Header(w, "Claude history")
	fmt.Fprintf(w, "%sRoot:%s      %s\n", Bold, Reset, ShortenHome(root))
	fmt.Fprintf(w, "%sMessages:%s  %s\n", Bold, Reset, FormatNumber(s.TotalMessages))
	fmt.Fprintf(w, "%sProjects:%s  %s\n", Bold, Reset, FormatNumber(s.Projects))
	if len(s.ProjectList) > 0 {
		Section(w, "Projects")
		for _, p := range s.ProjectList {
			fmt.Fprintf(w, "%s%s\n", margin, p)
		}
	}
}

// PrintWindow writes a context window, marking the target line.
func PrintWindow(w io.Writer, win corpus.Window) {
	fmt.Fprintf(w, "%s%s%s  lines %s of %d\n\n", Bold, win.File, Reset, win.Range, win.Total)
	if len(win.Messages) == 0 {
		fmt.Fprintf(w, "%sNo records in range.%s\n", Dim, Reset)
		return
	}
	for _, m := range win.Messages {
		marker := "  "
		if m.IsTarget {
			marker = Yellow + "> " + Reset
		}
		fmt.Fprintf(w, "%s%s%5d%s %s%s%s\n", marker, Dim, m.Line, Reset, roleColor(m.Type), m.Type, Reset)
		for _, line := range strings.Split(m.Content, "\n") {
			fmt.Fprintf(w, "        %s\n", line)
		}
		fmt.Fprintln(w)
	}
}

func roleColor(role string) string {
	switch role {
	case "user":
		return Green
	case "assistant":
		return Cyan
	default:
		return Dim
	}
}
