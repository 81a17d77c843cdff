package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeLog(t *testing.T, root, rel string, lines ...string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func userLine(text string) string {
	return `{"type":"user","message":{"content":"` + text + `"}}`
}

func assistantLine(text string) string {
	return `{"type":"assistant","message":{"content":[{"type":"text","text":"` + text + `"}]}}`
}

func testCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeLog(t, root, "alpha/0123456789abcdef.jsonl",
		userLine("how do I configure the build cache here"),
		`{"broken json`,
		"",
		assistantLine("The build cache lives under the cache directory and can be tuned with flags."),
		userLine("short"),
	)
	writeLog(t, root, "beta/fedcba9876543210.jsonl",
		userLine("what is the default cache size for builds"),
	)
	writeLog(t, root, "beta/notes.txt", userLine("not a session log at all, ignored"))
	writeLog(t, root, ".hidden/aaaaaaaa.jsonl", userLine("hidden project should never be scanned"))
	writeLog(t, root, "gamma/deep/nested.jsonl", userLine("nested logs are below discovery depth"))
	return root
}

func TestSessionID(t *testing.T) {
	tests := map[string]string{
		"0123456789abcdef.jsonl": "01234567",
		"abc.jsonl":              "abc",
		"dir/abcdefghij.jsonl":   "abcdefgh",
	}
	for in, want := range tests {
		if got := SessionID(in); got != want {
			t.Errorf("SessionID(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestFiles_Discovery(t *testing.T) {
	c := New(Options{Root: testCorpus(t)})

	if got, want := c.Projects(), []string{"alpha", "beta", "gamma"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected projects %v, got %v", want, got)
	}

	files := c.Files()
	var rels []string
	for i, f := range files {
		rels = append(rels, f.Rel)
		if f.Index != i {
			t.Errorf("expected index %d for %s, got %d", i, f.Rel, f.Index)
		}
	}
	want := []string{"alpha/0123456789abcdef.jsonl", "beta/fedcba9876543210.jsonl"}
	if !reflect.DeepEqual(rels, want) {
		t.Errorf("expected files %v, got %v", want, rels)
	}
	if files[0].Project != "alpha" || files[0].Session != "01234567" {
		t.Errorf("unexpected file metadata: %+v", files[0])
	}

	only := c.Files("beta")
	if len(only) != 1 || only[0].Project != "beta" {
		t.Errorf("expected only beta files, got %+v", only)
	}
}

func TestFiles_SymlinkedProjects(t *testing.T) {
	root := t.TempDir()
	writeLog(t, root, ".store/real/abcdefgh.jsonl", userLine("reached through a linked project"))
	outside := t.TempDir()
	writeLog(t, outside, "elsewhere/ijklmnop.jsonl", userLine("outside the corpus root entirely"))
	if err := os.Symlink(filepath.Join(root, ".store", "real"), filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "elsewhere"), filepath.Join(root, "escaped")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, ".store", "real", "abcdefgh.jsonl"), filepath.Join(root, "filelink")); err != nil {
		t.Fatal(err)
	}
	c := New(Options{Root: root})

	if got, want := c.Projects(), []string{"linked"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected projects %v, got %v", want, got)
	}
	files := c.Files()
	if len(files) != 1 || files[0].Rel != "linked/abcdefgh.jsonl" {
		t.Errorf("expected the linked project's log, got %+v", files)
	}
}

func TestScan_QualifyingMessages(t *testing.T) {
	rep := &CountingReporter{}
	c := New(Options{Root: testCorpus(t), Reporter: rep})

	var got []Message
	stats, err := c.Scan(context.Background(), c.Files(), func(_ int, m Message) {
		got = append(got, m)
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d: %+v", len(got), got)
	}
	if got[0].Line != 1 || got[0].Role != "user" || got[0].File != "alpha/0123456789abcdef.jsonl" {
		t.Errorf("unexpected first message: %+v", got[0])
	}
	// Blank lines still count toward physical line numbers.
	if got[1].Line != 4 || got[1].Role != "assistant" {
		t.Errorf("unexpected second message: %+v", got[1])
	}
	if got[2].Project != "beta" || got[2].Session != "fedcba98" {
		t.Errorf("unexpected third message: %+v", got[2])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Seq <= got[i-1].Seq {
			t.Errorf("expected increasing seq, got %d after %d", got[i].Seq, got[i-1].Seq)
		}
	}

	if stats.Files != 2 || stats.Malformed != 1 || stats.Messages != 3 || stats.Lines != 5 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if rep.Records.Load() != 1 {
		t.Errorf("expected 1 reported record, got %d", rep.Records.Load())
	}
}

func TestScan_ParallelMatchesSequential(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"p1", "p2", "p3"} {
		for _, s := range []string{"aaaaaaaa", "bbbbbbbb", "cccccccc", "dddddddd"} {
			writeLog(t, root, p+"/"+s+".jsonl",
				userLine("first question about "+p+" in session "+s),
				userLine("second question about "+p+" in session "+s),
			)
		}
	}

	collect := func(workers int) map[uint64]Message {
		c := New(Options{Root: root, Workers: workers})
		var mu sync.Mutex
		out := map[uint64]Message{}
		stats, err := c.Scan(context.Background(), c.Files(), func(_ int, m Message) {
			mu.Lock()
			out[m.Seq] = m
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("Scan(workers=%d): %v", workers, err)
		}
		if stats.Messages != 24 {
			t.Fatalf("expected 24 messages with %d workers, got %d", workers, stats.Messages)
		}
		return out
	}

	seq := collect(1)
	par := collect(4)
	if !reflect.DeepEqual(seq, par) {
		t.Error("expected parallel scan to visit the same messages with the same seq as sequential scan")
	}
}

func TestScan_MissingRoot(t *testing.T) {
	rep := &CountingReporter{}
	c := New(Options{Root: filepath.Join(t.TempDir(), "missing"), Reporter: rep})

	files := c.Files()
	if len(files) != 0 {
		t.Fatalf("expected no files, got %d", len(files))
	}
	stats, err := c.Scan(context.Background(), files, func(int, Message) {
		t.Error("unexpected visit")
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if stats != (ScanStats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
	if rep.Files.Load() != 1 {
		t.Errorf("expected missing root reported once, got %d", rep.Files.Load())
	}
}

func TestScan_UnreadableFileSkipped(t *testing.T) {
	root := testCorpus(t)
	rep := &CountingReporter{}
	c := New(Options{Root: root, Reporter: rep})
	files := c.Files()
	files = append(files, File{Path: filepath.Join(root, "alpha", "gone.jsonl"), Rel: "alpha/gone.jsonl", Index: len(files)})

	stats, err := c.Scan(context.Background(), files, func(int, Message) {})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if stats.FilesSkipped != 1 || stats.Files != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if rep.Files.Load() != 1 {
		t.Errorf("expected 1 reported file, got %d", rep.Files.Load())
	}
}

func TestScan_Cancelled(t *testing.T) {
	c := New(Options{Root: testCorpus(t), Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Scan(ctx, c.Files(), func(int, Message) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScan_Throttled(t *testing.T) {
	c := New(Options{Root: testCorpus(t), FilesPerSecond: 1000})
	start := time.Now()
	stats, err := c.Scan(context.Background(), c.Files(), func(int, Message) {})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if stats.Files != 2 {
		t.Errorf("expected 2 files, got %d", stats.Files)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("throttled scan took unexpectedly long")
	}
}

func TestMatchProjects(t *testing.T) {
	projects := []string{"-Users-me-code-api", "-Users-me-code-web", "-Users-me-notes", "API"}
	tests := []struct {
		pattern string
		want    []string
	}{
		{"", projects},
		{"api", []string{"API"}},
		{"web", []string{"-Users-me-code-web"}},
		{"code/web", []string{"-Users-me-code-web"}},
		{"code", []string{"-Users-me-code-api", "-Users-me-code-web"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got := MatchProjects(tt.pattern, projects)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
