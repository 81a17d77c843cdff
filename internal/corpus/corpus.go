// Package corpus discovers and reads session logs stored as
// <root>/<project>/<session>.jsonl.
package corpus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// LogExt is the extension of session log files.
const LogExt = ".jsonl"

// sessionIDLen is the length of the session identifier taken from a file name.
const sessionIDLen = 8

// Options configures a Corpus.
type Options struct {
	Root           string   // directory holding one subdirectory per project
	Workers        int      // files scanned concurrently; <= 1 scans sequentially
	FilesPerSecond float64  // file open rate limit; 0 disables throttling
	Reporter       Reporter // receives skipped files and records; nil discards
}

// Corpus is a read-only view of a session log directory. It holds no state
// between calls: every operation reads the files again.
type Corpus struct {
	root     string
	workers  int
	limiter  *rate.Limiter
	reporter Reporter
}

// New returns a Corpus for opts.Root.
func New(opts Options) *Corpus {
	c := &Corpus{
		root:     opts.Root,
		workers:  opts.Workers,
		reporter: opts.Reporter,
	}
	if c.workers < 1 {
		c.workers = 1
	}
	if c.reporter == nil {
		c.reporter = discard{}
	}
	if opts.FilesPerSecond > 0 {
		burst := int(opts.FilesPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.FilesPerSecond), burst)
	}
	return c
}

// File is one session log.
type File struct {
	Path    string    // absolute or root-joined path
	Rel     string    // project/name.jsonl, slash-separated
	Project string    // parent directory name
	Session string    // first characters of the base name
	ModTime time.Time // modification time at discovery
	Index   int       // position in sorted discovery order
}

// Message is a searchable user or assistant message.
type Message struct {
	Project string    `json:"project"`
	Role    string    `json:"type"`
	Text    string    `json:"content"`
	Session string    `json:"session"`
	File    string    `json:"file"`
	Line    int       `json:"line"`
	ModTime time.Time `json:"-"`
	Seq     uint64    `json:"-"`
}

// ScanStats summarizes one scan.
type ScanStats struct {
	Files        int `json:"files"`
	FilesSkipped int `json:"files_skipped"`
	Lines        int `json:"lines"`
	Malformed    int `json:"malformed"`
	Messages     int `json:"messages"`
}

func (s *ScanStats) add(o ScanStats) {
	s.Files += o.Files
	s.FilesSkipped += o.FilesSkipped
	s.Lines += o.Lines
	s.Malformed += o.Malformed
	s.Messages += o.Messages
}

// SessionID returns the session identifier for a log file name.
func SessionID(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	r := []rune(stem)
	if len(r) > sessionIDLen {
		r = r[:sessionIDLen]
	}
	return string(r)
}

// Projects returns the sorted names of the project directories under root.
func (c *Corpus) Projects() []string {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		c.reporter.SkipFile(c.root, err)
		return nil
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.Type()&os.ModeSymlink != 0 {
			path := filepath.Join(c.root, e.Name())
			if info, err := os.Stat(path); err != nil || !info.IsDir() || !c.within(path) {
				continue
			}
		} else if !e.IsDir() {
			continue
		}
		out = append(out, e.Name())
	}
	return out
}

// Files lists the session logs one level below root, sorted by relative
// path. When projects is non-empty only those project directories are read.
func (c *Corpus) Files(projects ...string) []File {
	if len(projects) == 0 {
		projects = c.Projects()
	} else {
		projects = append([]string(nil), projects...)
		sort.Strings(projects)
	}

	var files []File
	for _, project := range projects {
		dir := filepath.Join(c.root, project)
		entries, err := os.ReadDir(dir)
		if err != nil {
			c.reporter.SkipFile(dir, err)
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !isLogName(name) {
				continue
			}
			if e.Type()&os.ModeSymlink != 0 && !c.within(filepath.Join(dir, name)) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				c.reporter.SkipFile(filepath.Join(dir, name), err)
				continue
			}
			files = append(files, File{
				Path:    filepath.Join(dir, name),
				Rel:     project + "/" + name,
				Project: project,
				Session: SessionID(name),
				ModTime: info.ModTime(),
				Index:   len(files),
			})
		}
	}
	return files
}

// Visit is called for each qualifying message. worker identifies the
// scanning goroutine, in [0, Workers()); calls with the same worker value
// never overlap.
type Visit func(worker int, m Message)

// Workers returns the number of concurrent scanners Scan uses.
func (c *Corpus) Workers() int {
	return c.workers
}

// Scan reads every file and calls visit for each qualifying message.
// Unreadable files and malformed records are reported and skipped; only
// context cancellation stops the scan early.
func (c *Corpus) Scan(ctx context.Context, files []File, visit Visit) (ScanStats, error) {
	workers := min(c.workers, max(len(files), 1))
	perWorker := make([]ScanStats, workers)

	if workers == 1 {
		for _, f := range files {
			if err := c.scanFile(ctx, f, 0, visit, &perWorker[0]); err != nil {
				return perWorker[0], err
			}
		}
		return perWorker[0], nil
	}

	jobs := make(chan File)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for f := range jobs {
				if err := c.scanFile(gctx, f, w, visit, &perWorker[w]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()

	var total ScanStats
	for _, s := range perWorker {
		total.add(s)
	}
	return total, err
}

func (c *Corpus) scanFile(ctx context.Context, f File, worker int, visit Visit, stats *ScanStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		stats.FilesSkipped++
		c.reporter.SkipFile(f.Path, err)
		return nil
	}
	defer fh.Close()
	stats.Files++

	err = eachLine(fh, func(n int, line []byte) {
		stats.Lines++
		rec, err := ParseLine(line)
		if err != nil {
			stats.Malformed++
			c.reporter.SkipRecord(f.Path, n, err)
			return
		}
		role, text, ok := rec.Candidate()
		if !ok {
			return
		}
		stats.Messages++
		visit(worker, Message{
			Project: f.Project,
			Role:    role,
			Text:    text,
			Session: f.Session,
			File:    f.Rel,
			Line:    n,
			ModTime: f.ModTime,
			Seq:     uint64(f.Index)<<32 | uint64(n),
		})
	})
	if err != nil {
		// Messages read before the failure have already been visited.
		c.reporter.SkipFile(f.Path, err)
	}
	return nil
}

// eachLine calls fn with the 1-based number and content of every non-blank
// line. Lines of any length are supported.
func eachLine(r io.Reader, fn func(n int, line []byte)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	n := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			n++
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				fn(n, trimmed)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line %d: %w", n+1, err)
		}
	}
}
