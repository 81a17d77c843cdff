package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrFileNotFound is returned when a requested log file is not in the corpus.
var ErrFileNotFound = errors.New("file not found")

// ContextLine is one record shown in a context window.
type ContextLine struct {
	Line     int    `json:"line"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	IsTarget bool   `json:"is_target"`
}

// Window is a range of records around a target line of one log file.
type Window struct {
	File       string        `json:"file"`
	TargetLine int           `json:"target_line"`
	Range      string        `json:"context_range"`
	Messages   []ContextLine `json:"messages"`
	Total      int           `json:"total_messages"`
}

// Resolve maps a file reference to a log file under root. name is either a
// relative path as returned in search results (project/name.jsonl) or a bare
// file name, looked up across projects in sorted order. References that are
// absolute, contain null bytes, or resolve outside root are not found.
func (c *Corpus) Resolve(name string) (File, error) {
	notFound := fmt.Errorf("%w: %s", ErrFileNotFound, name)
	if name == "" || strings.ContainsRune(name, 0) || filepath.IsAbs(name) {
		return File{}, notFound
	}
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(name)))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return File{}, notFound
	}

	if !strings.Contains(clean, "/") {
		for _, f := range c.Files() {
			if filepath.Base(f.Rel) == clean && c.within(f.Path) {
				return f, nil
			}
		}
		return File{}, notFound
	}

	parts := strings.Split(clean, "/")
	if len(parts) != 2 || !isLogName(parts[1]) || strings.HasPrefix(parts[0], ".") {
		return File{}, notFound
	}
	full := filepath.Join(c.root, parts[0], parts[1])
	if !c.within(full) {
		return File{}, notFound
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return File{}, notFound
	}
	return File{
		Path:    full,
		Rel:     clean,
		Project: parts[0],
		Session: SessionID(parts[1]),
		ModTime: info.ModTime(),
	}, nil
}

// isLogName reports whether name is a file Files would list.
func isLogName(name string) bool {
	return !strings.HasPrefix(name, ".") && filepath.Ext(name) == LogExt
}

// within reports whether path, with symlinks resolved, stays inside root.
func (c *Corpus) within(path string) bool {
	root, err := filepath.EvalSymlinks(c.root)
	if err != nil {
		return false
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		// Nonexistent files are reported as not found by the caller.
		resolved = path
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return false
	}
	return strings.HasPrefix(resolved, root+string(filepath.Separator))
}

// WindowOptions bounds a context window.
type WindowOptions struct {
	Lines    int // records on each side of the target
	MaxChars int // per-record content cap in characters; 0 keeps everything
}

// ReadWindow returns the records of file whose line numbers fall within
// opts.Lines of line. The reported range is [max(1, line-n), line+n]. When
// that range lies entirely past the end of the file, the last 2n+1 lines are
// returned instead so the caller still sees how the session ended. Records
// that fail to parse are skipped.
func (c *Corpus) ReadWindow(ctx context.Context, name string, line int, opts WindowOptions) (Window, error) {
	f, err := c.Resolve(name)
	if err != nil {
		return Window{}, err
	}
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		return Window{}, fmt.Errorf("read %s: %w", name, err)
	}
	defer fh.Close()

	type entry struct {
		n    int
		data []byte
	}
	var (
		entries []entry
		last    int
	)
	err = eachLine(fh, func(n int, data []byte) {
		entries = append(entries, entry{n: n, data: append([]byte(nil), data...)})
		last = n
	})
	if err != nil {
		return Window{}, fmt.Errorf("read %s: %w", name, err)
	}

	n := max(opts.Lines, 0)
	start := max(1, line-n)
	end := line + n
	w := Window{
		File:       f.Rel,
		TargetLine: line,
		Range:      fmt.Sprintf("%d-%d", start, end),
		Messages:   []ContextLine{},
		Total:      len(entries),
	}

	from, to := start, end
	if from > last {
		from, to = max(1, last-2*n), last
	}

	for _, e := range entries {
		if e.n < from || e.n > to {
			continue
		}
		rec, err := ParseLine(e.data)
		if err != nil {
			c.reporter.SkipRecord(f.Path, e.n, err)
			continue
		}
		typ := rec.Type
		if typ == "" {
			typ = "unknown"
		}
		w.Messages = append(w.Messages, ContextLine{
			Line:     e.n,
			Type:     typ,
			Content:  truncate(rec.Message.Content.Display(), opts.MaxChars),
			IsTarget: e.n == line,
		})
	}
	return w, nil
}

// truncate caps s at max characters, marking the cut with "...".
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
