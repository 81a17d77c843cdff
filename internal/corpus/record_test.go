package corpus

import (
	"strings"
	"testing"
)

func TestContent_UnmarshalForms(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		kind   ContentKind
		blocks int
	}{
		{"string", `{"type":"user","message":{"content":"hello"}}`, ContentText, 0},
		{"blocks", `{"type":"assistant","message":{"content":[{"type":"text","text":"a"},{"type":"tool_use","name":"Bash"}]}}`, ContentBlocks, 2},
		{"non-object elements dropped", `{"type":"assistant","message":{"content":["x",1,{"type":"text","text":"a"}]}}`, ContentBlocks, 1},
		{"missing", `{"type":"user","message":{}}`, ContentNone, 0},
		{"number", `{"type":"user","message":{"content":42}}`, ContentNone, 0},
		{"null", `{"type":"user","message":{"content":null}}`, ContentNone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseLine([]byte(tt.line))
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}
			got := rec.Message.Content
			if got.Kind != tt.kind {
				t.Errorf("expected kind %d, got %d", tt.kind, got.Kind)
			}
			if len(got.Blocks) != tt.blocks {
				t.Errorf("expected %d blocks, got %d", tt.blocks, len(got.Blocks))
			}
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	for _, line := range []string{`{not json`, `[1,2,3]`, `"just a string"`} {
		if _, err := ParseLine([]byte(line)); err == nil {
			t.Errorf("expected error for %q", line)
		}
	}
}

func TestRecord_Candidate(t *testing.T) {
	long := strings.Repeat("x", 51)
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantRole string
		wantText string
	}{
		{
			name:     "user over threshold",
			line:     `{"type":"user","message":{"content":"this is a long enough question"}}`,
			wantOK:   true,
			wantRole: "user",
			wantText: "this is a long enough question",
		},
		{
			name: "user exactly twenty chars",
			line: `{"type":"user","message":{"content":"abcdefghijklmnopqrst"}}`,
		},
		{
			name:     "user twenty-one CJK chars",
			line:     `{"type":"user","message":{"content":"` + strings.Repeat("中", 21) + `"}}`,
			wantOK:   true,
			wantRole: "user",
			wantText: strings.Repeat("中", 21),
		},
		{
			name: "user meta",
			line: `{"type":"user","isMeta":true,"message":{"content":"this is a long enough question"}}`,
		},
		{
			name: "user block content",
			line: `{"type":"user","message":{"content":[{"type":"text","text":"this is a long enough question"}]}}`,
		},
		{
			name:     "assistant text blocks joined",
			line:     `{"type":"assistant","message":{"content":[{"type":"text","text":"` + long[:30] + `"},{"type":"tool_use","name":"Read"},{"type":"text","text":"` + long[:30] + `"}]}}`,
			wantOK:   true,
			wantRole: "assistant",
			wantText: long[:30] + " " + long[:30],
		},
		{
			name: "assistant exactly fifty chars",
			line: `{"type":"assistant","message":{"content":[{"type":"text","text":"` + long[:50] + `"}]}}`,
		},
		{
			name: "assistant string content",
			line: `{"type":"assistant","message":{"content":"` + long + `"}}`,
		},
		{
			name: "summary record",
			line: `{"type":"summary","message":{"content":"` + long + `"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseLine([]byte(tt.line))
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}
			role, text, ok := rec.Candidate()
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if role != tt.wantRole {
				t.Errorf("expected role %q, got %q", tt.wantRole, role)
			}
			if text != tt.wantText {
				t.Errorf("expected text %q, got %q", tt.wantText, text)
			}
		})
	}
}

func TestContent_Display(t *testing.T) {
	rec, err := ParseLine([]byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"Looking now."},{"type":"tool_use","name":"Grep"},{"type":"tool_result"},{"type":"text","text":"Found it."}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	want := "Looking now.\n[Tool: Grep]\nFound it."
	if got := rec.Message.Content.Display(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
