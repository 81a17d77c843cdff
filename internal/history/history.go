// Package history answers search, statistics and context queries over a
// session log corpus. Every call rescans the corpus; nothing is cached
// between queries.
package history

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync/atomic"

	"github.com/sgx-labs/claudehistory/internal/corpus"
	"github.com/sgx-labs/claudehistory/internal/rank"
	"github.com/sgx-labs/claudehistory/internal/sanitize"
)

// Options tunes query behavior.
type Options struct {
	DefaultLimit    int
	MaxLimit        int
	MaxTokens       int
	DecayBase       int
	SnippetRadius   int
	TieBreak        rank.TieBreak
	Sanitize        bool
	ContextLines    int
	MaxContextLines int
	MaxContentChars int
}

// DefaultOptions returns the built-in query settings.
func DefaultOptions() Options {
	return Options{
		DefaultLimit:    3,
		MaxLimit:        100,
		MaxTokens:       rank.MaxTokens,
		DecayBase:       rank.DefaultDecayBase,
		SnippetRadius:   rank.DefaultSnippetRadius,
		TieBreak:        rank.TieBreakModTime,
		Sanitize:        false,
		ContextLines:    5,
		MaxContextLines: 50,
		MaxContentChars: 2000,
	}
}

// Result is one ranked search hit.
type Result struct {
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
	Hits       int     `json:"hits"`
	Normalized float64 `json:"normalized"`
	Project    string  `json:"project"`
	Role       string  `json:"type"`
	Session    string  `json:"session"`
	File       string  `json:"file"`
	Line       int     `json:"line"`
	Snippet    string  `json:"snippet"`
}

// Stats summarizes the searchable corpus.
type Stats struct {
	TotalMessages int      `json:"total_messages"`
	Projects      int      `json:"projects"`
	ProjectList   []string `json:"project_list"`
}

// Query is a search request. Limit <= 0 selects the default limit; Project,
// when set, restricts the search to matching project directories.
type Query struct {
	Text    string
	Limit   int
	Project string
}

type state struct {
	corpus *corpus.Corpus
	opts   Options
}

// Searcher runs queries against a corpus. It is safe for concurrent use and
// can be reconfigured between queries.
type Searcher struct {
	state  atomic.Pointer[state]
	logger *slog.Logger
}

// New returns a Searcher over c.
func New(c *corpus.Corpus, opts Options, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Searcher{logger: logger}
	s.Reconfigure(c, opts)
	return s
}

// Reconfigure replaces the corpus and options used by subsequent queries.
// Queries already running finish with the previous settings.
func (s *Searcher) Reconfigure(c *corpus.Corpus, opts Options) {
	s.state.Store(&state{corpus: c, opts: opts})
}

// Limit resolves a requested result count against the configured bounds.
func (o Options) Limit(n int) int {
	if n <= 0 {
		n = o.DefaultLimit
	}
	if o.MaxLimit > 0 && n > o.MaxLimit {
		n = o.MaxLimit
	}
	return max(n, 1)
}

// Lines resolves a requested context radius against the configured bounds.
func (o Options) Lines(n int) int {
	if n <= 0 {
		n = o.ContextLines
	}
	if o.MaxContextLines > 0 && n > o.MaxContextLines {
		n = o.MaxContextLines
	}
	return max(n, 0)
}

// Search returns the messages that best match q, best first. A query with
// fewer than two distinct tokens matches nothing. The returned slice is
// never nil.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Result, corpus.ScanStats, error) {
	st := s.state.Load()
	opts := st.opts
	results := []Result{}

	pairs := rank.Pairs(rank.Tokenize(q.Text, opts.MaxTokens))
	if len(pairs) == 0 {
		return results, corpus.ScanStats{}, nil
	}
	limit := opts.Limit(q.Limit)

	files, ok := s.files(st.corpus, q.Project)
	if !ok {
		return results, corpus.ScanStats{}, nil
	}

	selectors := make([]*rank.Selector[corpus.Message], st.corpus.Workers())
	for i := range selectors {
		selectors[i] = rank.NewSelector[corpus.Message](limit, opts.TieBreak)
	}
	stats, err := st.corpus.Scan(ctx, files, func(w int, m corpus.Message) {
		hits := rank.CountHits(m.Text, pairs)
		if hits == 0 {
			return
		}
		selectors[w].Insert(rank.Scored[corpus.Message]{
			Hits:       hits,
			Normalized: float64(hits) / float64(len(pairs)),
			ModTime:    m.ModTime,
			Seq:        m.Seq,
			Value:      m,
		})
	})
	if err != nil {
		return results, stats, err
	}
	s.logger.Debug("search scan", "files", stats.Files, "skipped", stats.FilesSkipped,
		"malformed", stats.Malformed, "messages", stats.Messages)

	top := selectors[0]
	for _, other := range selectors[1:] {
		top.Merge(other)
	}
	for i, sc := range top.Drain(limit) {
		m := sc.Value
		weight := rank.Weight(i+1, opts.DecayBase)
		snippet := rank.Snippet(m.Text, pairs, opts.SnippetRadius)
		if opts.Sanitize {
			snippet = sanitize.Text(ctx, snippet)
		}
		results = append(results, Result{
			Rank:       i + 1,
			Score:      round4(sc.Normalized * weight),
			Weight:     weight,
			Hits:       sc.Hits,
			Normalized: round4(sc.Normalized),
			Project:    m.Project,
			Role:       m.Role,
			Session:    m.Session,
			File:       m.File,
			Line:       m.Line,
			Snippet:    snippet,
		})
	}
	return results, stats, nil
}

// files lists the logs to scan. ok is false when a project filter was given
// and matched nothing.
func (s *Searcher) files(c *corpus.Corpus, project string) ([]corpus.File, bool) {
	if project == "" {
		return c.Files(), true
	}
	matched := corpus.MatchProjects(project, c.Projects())
	if len(matched) == 0 {
		s.logger.Debug("no project matches filter", "project", project)
		return nil, false
	}
	return c.Files(matched...), true
}

// Stats counts the qualifying messages in the corpus and the projects that
// hold at least one.
func (s *Searcher) Stats(ctx context.Context) (Stats, error) {
	c := s.state.Load().corpus
	counts := make([]map[string]int, c.Workers())
	for i := range counts {
		counts[i] = map[string]int{}
	}
	scan, err := c.Scan(ctx, c.Files(), func(w int, m corpus.Message) {
		counts[w][m.Project]++
	})
	if err != nil {
		return Stats{}, err
	}
	s.logger.Debug("stats scan", "files", scan.Files, "skipped", scan.FilesSkipped, "malformed", scan.Malformed)

	projects := map[string]bool{}
	out := Stats{ProjectList: []string{}}
	for _, m := range counts {
		for p, n := range m {
			out.TotalMessages += n
			projects[p] = true
		}
	}
	for p := range projects {
		out.ProjectList = append(out.ProjectList, p)
	}
	sort.Strings(out.ProjectList)
	out.Projects = len(out.ProjectList)
	return out, nil
}

// Context returns the records around line in file. lines <= 0 selects the
// default radius.
func (s *Searcher) Context(ctx context.Context, file string, line, lines int) (corpus.Window, error) {
	st := s.state.Load()
	w, err := st.corpus.ReadWindow(ctx, file, line, corpus.WindowOptions{
		Lines:    st.opts.Lines(lines),
		MaxChars: st.opts.MaxContentChars,
	})
	if err != nil {
		return corpus.Window{}, err
	}
	if st.opts.Sanitize {
		for i := range w.Messages {
			w.Messages[i].Content = sanitize.Tags(w.Messages[i].Content)
		}
	}
	return w, nil
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
