package dispatch

import (
	"encoding/json"
	"strings"
)

// ToolCall is a tool invocation the model embedded in its output as a JSON
// object of the form {"tool": "<name>", "parameters": {...}}.
type ToolCall struct {
	Name       string
	Parameters map[string]any
}

type toolEnvelope struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// ExtractToolCall finds the first tool invocation in model output. A fenced
// code block containing the JSON object takes precedence; otherwise the
// object enclosing the first "tool" key is extracted, even when it sits
// inside a larger JSON value. The second return value is the text with the
// invocation (and its fences) removed.
func ExtractToolCall(text string) (*ToolCall, string, bool) {
	if call, cleaned, ok := extractFromFences(text); ok {
		return call, cleaned, true
	}
	return extractFromBraces(text)
}

// extractFromFences tries each ``` fenced block for a parsable invocation.
func extractFromFences(text string) (*ToolCall, string, bool) {
	rest := text
	offset := 0
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			return nil, "", false
		}
		bodyStart := open + 3
		// Skip a language tag like "json" on the fence line.
		if nl := strings.IndexByte(rest[bodyStart:], '\n'); nl >= 0 {
			firstLine := strings.TrimSpace(rest[bodyStart : bodyStart+nl])
			if firstLine != "" && !strings.ContainsAny(firstLine, "{}") {
				bodyStart += nl + 1
			}
		}
		closing := strings.Index(rest[bodyStart:], "```")
		if closing < 0 {
			return nil, "", false
		}
		body := rest[bodyStart : bodyStart+closing]

		if call, ok := parseEnvelope(strings.TrimSpace(body)); ok {
			blockStart := offset + open
			blockEnd := offset + bodyStart + closing + 3
			cleaned := strings.TrimSpace(text[:blockStart] + text[blockEnd:])
			return call, cleaned, true
		}

		advance := bodyStart + closing + 3
		offset += advance
		rest = rest[advance:]
	}
}

// extractFromBraces anchors on a "tool" key, walks backward to its innermost
// enclosing brace, then forward to the matching close (string-aware,
// escape-aware). Anchoring on the key keeps an invocation findable when it is
// nested inside a larger object the model wrapped around it.
func extractFromBraces(text string) (*ToolCall, string, bool) {
	const key = `"tool"`
	for from := 0; ; {
		at := strings.Index(text[from:], key)
		if at < 0 {
			return nil, "", false
		}
		at += from
		from = at + len(key)

		start := enclosingBrace(text, at)
		if start < 0 {
			continue
		}
		end, ok := matchBrace(text, start)
		if !ok {
			continue
		}
		if call, parsed := parseEnvelope(text[start : end+1]); parsed {
			cleaned := strings.TrimSpace(text[:start] + text[end+1:])
			return call, cleaned, true
		}
	}
}

// enclosingBrace walks backward from pos to the nearest unmatched '{'.
func enclosingBrace(text string, pos int) int {
	depth := 0
	for i := pos - 1; i >= 0; i-- {
		switch text[i] {
		case '}':
			depth++
		case '{':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// matchBrace returns the index of the brace closing the object at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func parseEnvelope(candidate string) (*ToolCall, bool) {
	if !strings.HasPrefix(candidate, "{") {
		return nil, false
	}
	var env toolEnvelope
	if err := json.Unmarshal([]byte(candidate), &env); err != nil {
		return nil, false
	}
	if env.Tool == "" {
		return nil, false
	}
	if env.Parameters == nil {
		env.Parameters = map[string]any{}
	}
	return &ToolCall{Name: env.Tool, Parameters: env.Parameters}, true
}
