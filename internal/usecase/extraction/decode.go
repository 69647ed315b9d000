package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/kailas-cloud/tradesearch/internal/domain"
)

// extractJSON isolates the JSON object in model text: a fenced block anywhere in the
// text wins (```json first), then the span from the first '{' to the last '}'. Text
// without a '{' comes back trimmed.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if body, ok := fencedBlock(s); ok {
		s = body
	}
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	if end := strings.LastIndexByte(s, '}'); end > start {
		return s[start : end+1]
	}
	// Truncated object; leave the rest to the repair pass.
	return s[start:]
}

// fencedBlock returns the body of the first Markdown code fence, preferring a json-tagged
// one. An unclosed fence runs to the end of the text.
func fencedBlock(s string) (string, bool) {
	open := -1
	for _, tag := range []string{"```json", "```JSON", "```"} {
		if open = strings.Index(s, tag); open >= 0 {
			break
		}
	}
	if open < 0 {
		return "", false
	}
	body := s[open+len("```"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// decodeObject parses raw model text into a JSON object, ignoring fences and surrounding
// prose. Malformed objects go through
// a repair pass; anything that still is not an object wraps domain.ErrResponseUnusable.
func decodeObject(raw string) (map[string]any, bool, error) {
	text := extractJSON(raw)
	if text == "" {
		return nil, false, fmt.Errorf("%w: empty response", domain.ErrResponseUnusable)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		return obj, false, nil
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrResponseUnusable, err)
	}
	obj = nil
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil || obj == nil {
		return nil, false, fmt.Errorf("%w: response is not a JSON object", domain.ErrResponseUnusable)
	}
	return obj, true, nil
}
