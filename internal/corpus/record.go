package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Qualification thresholds, in characters.
const (
	MinUserChars      = 20
	MinAssistantChars = 50
)

// ContentKind tags which form a message's content took in the log.
type ContentKind int

const (
	ContentNone   ContentKind = iota // missing or of an unsupported type
	ContentText                      // plain string
	ContentBlocks                    // list of typed blocks
)

// Block is one element of block-sequence content.
type Block struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Name string `json:"name"`
}

// Content is message content decoded once into either a string or blocks.
type Content struct {
	Kind   ContentKind
	Text   string
	Blocks []Block
}

// UnmarshalJSON decodes a string or an array of blocks. Array elements that
// are not objects are dropped; any other JSON type yields ContentNone.
func (c *Content) UnmarshalJSON(data []byte) error {
	*c = Content{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		c.Kind = ContentText
		return json.Unmarshal(data, &c.Text)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		c.Kind = ContentBlocks
		for _, r := range raw {
			r = bytes.TrimSpace(r)
			if len(r) == 0 || r[0] != '{' {
				continue
			}
			var b Block
			if err := json.Unmarshal(r, &b); err != nil {
				return fmt.Errorf("content block: %w", err)
			}
			c.Blocks = append(c.Blocks, b)
		}
	}
	return nil
}

// texts returns the text of every "text" block, in order.
func (c Content) texts() []string {
	var out []string
	for _, b := range c.Blocks {
		if b.Type == "text" {
			out = append(out, b.Text)
		}
	}
	return out
}

// Display renders content for context views: text blocks verbatim and
// tool calls as a bracketed tool-name marker, one block per line.
func (c Content) Display() string {
	switch c.Kind {
	case ContentText:
		return c.Text
	case ContentBlocks:
		var parts []string
		for _, b := range c.Blocks {
			switch b.Type {
			case "text":
				if b.Text != "" {
					parts = append(parts, b.Text)
				}
			case "tool_use":
				parts = append(parts, fmt.Sprintf("[Tool: %s]", b.Name))
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

// Record is one line of a session log.
type Record struct {
	Type    string `json:"type"`
	IsMeta  bool   `json:"isMeta"`
	Message struct {
		Content Content `json:"content"`
	} `json:"message"`
}

// ParseLine decodes one log line.
func ParseLine(line []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Candidate reports whether the record is a searchable message and returns
// its role and text. User records qualify when they are not meta records and
// carry string content longer than MinUserChars. Assistant records qualify
// when their text blocks together exceed MinAssistantChars; the blocks are
// joined with single spaces.
func (r Record) Candidate() (role, text string, ok bool) {
	content := r.Message.Content
	switch r.Type {
	case "user":
		if r.IsMeta || content.Kind != ContentText {
			return "", "", false
		}
		if utf8.RuneCountInString(content.Text) <= MinUserChars {
			return "", "", false
		}
		return "user", content.Text, true
	case "assistant":
		texts := content.texts()
		n := 0
		for _, t := range texts {
			n += utf8.RuneCountInString(t)
		}
		if n <= MinAssistantChars {
			return "", "", false
		}
		return "assistant", strings.Join(texts, " "), true
	}
	return "", "", false
}
