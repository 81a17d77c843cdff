// Package sanitize screens transcript text before it is handed back to an
// agent. Session logs replay whatever a model or a tool once saw, including
// hostile web pages and files, so snippets are checked for prompt injection.
package sanitize

import (
	"context"
	"strings"

	"github.com/mdombrov-33/go-promptguard/detector"
)

// Filtered replaces text that looks like a prompt injection.
const Filtered = "[content filtered for security]"

// promptGuard runs the pattern and statistical detectors only. No LLM judge,
// so a check stays well under a millisecond per snippet.
var promptGuard = detector.New(
	detector.WithThreshold(0.6),
	detector.WithAllDetectors(),
	detector.WithMaxInputLength(1000),
)

// injectionPatterns catch phrasings the detector may score below threshold.
// Words that are routine in coding sessions ("override", "IMPORTANT:") are
// left to the detector.
var injectionPatterns = []string{
	"ignore previous instructions",
	"ignore all previous",
	"ignore the above",
	"disregard previous",
	"disregard all previous",
	"new system prompt",
	"you are now a",
}

// wrapperTags are structural tags that agent runtimes interpret. They show up
// verbatim in transcripts and are neutralized rather than filtered.
var wrapperTags = []string{
	"system-reminder",
	"system",
	"instructions",
}

// Text returns text unchanged when it is clean, Filtered when it looks like
// an injection attempt, and otherwise text with wrapper tags escaped.
func Text(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}
	if detectInjection(ctx, text) {
		return Filtered
	}
	lower := strings.ToLower(text)
	for _, p := range injectionPatterns {
		if strings.Contains(lower, p) {
			return Filtered
		}
	}
	return Tags(text)
}

func detectInjection(ctx context.Context, text string) bool {
	return !promptGuard.Detect(ctx, text).Safe
}

// Tags rewrites <tag> and </tag> for each wrapper tag as [tag] and [/tag],
// case-insensitively.
func Tags(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	i := 0
	for i < len(text) {
		n, repl := matchTag(text[i:])
		if n > 0 {
			b.WriteString(repl)
			i += n
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

// matchTag reports the length of a wrapper tag at the start of s and its
// escaped form, or 0 when s does not start with one.
func matchTag(s string) (int, string) {
	if !strings.HasPrefix(s, "<") {
		return 0, ""
	}
	for _, tag := range wrapperTags {
		if open := "<" + tag + ">"; hasPrefixFold(s, open) {
			return len(open), "[" + tag + "]"
		}
		if closing := "</" + tag + ">"; hasPrefixFold(s, closing) {
			return len(closing), "[/" + tag + "]"
		}
	}
	return 0, ""
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
