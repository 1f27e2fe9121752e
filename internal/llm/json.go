package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError describes why a model response could not be parsed as JSON.
type ParseError struct {
	Reason string // "empty", "no_object", "invalid_json"
	Raw    string // original response text, for logging/diagnostics
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llm response parse failed (%s)", e.Reason)
}

// ExtractJSONObject pulls a JSON object out of free-form model output.
// Models are instructed to return JSON only, but in practice they prepend
// commentary or wrap the payload in markdown fences, so this strips fences
// and falls back to the span between the first '{' and the last '}'.
func ExtractJSONObject(text string) (map[string]any, *ParseError) {
	raw := text
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ParseError{Reason: "empty", Raw: raw}
	}

	// Strip markdown code fences
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines) - 1
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &ParseError{Reason: "no_object", Raw: raw}
	}
	text = text[start : end+1]

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, &ParseError{Reason: "invalid_json", Raw: raw}
	}

	return result, nil
}

// GetString reads a string field from a parsed response with a fallback.
func GetString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// GetFloat reads a numeric field from a parsed response with a fallback.
func GetFloat(m map[string]any, key string, fallback float64) float64 {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return fallback
}

// GetStringSlice reads a string-array field from a parsed response.
// Non-string elements are dropped.
func GetStringSlice(m map[string]any, key string) []string {
	var out []string
	if v, ok := m[key]; ok {
		if arr, ok := v.([]any); ok {
			for _, item := range arr {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
