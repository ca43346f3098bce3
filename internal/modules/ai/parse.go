package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Model output parsing. Every function here is total: strict decode first,
// heuristic fallback second, never an error.

const tagLimit = 5

func unmarshalAIJSON(raw string, out interface{}) error {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}
	start = strings.Index(cleaned, "[")
	end = strings.LastIndex(cleaned, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("invalid JSON response from AI")
}

// ParseKeywords decodes a structured list, falling back to a comma split.
func ParseKeywords(text string, limit int) []string {
	items := parseStringList(text)
	if items == nil {
		items = splitCommaList(text)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// ParseTags behaves like ParseKeywords with a hard limit of 5.
func ParseTags(text string) []string {
	return ParseKeywords(text, tagLimit)
}

// ParseTopics decodes a structured list, falling back to a comma split,
// without truncation.
func ParseTopics(text string) []string {
	return ParseKeywords(text, 0)
}

// ParseSubtasks decodes a structured list; on failure keeps lines that look
// like list items (leading digit, dash or bullet) with the marker stripped.
func ParseSubtasks(text string) []string {
	if items := parseStringList(text); items != nil {
		return items
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := line[0]
		if !(first >= '0' && first <= '9') && first != '-' && !strings.HasPrefix(line, "•") {
			continue
		}
		item := strings.TrimLeft(line, "0123456789.)-• \t")
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParsePriority maps free text onto the priority enum. Rules are checked in
// order and the first match wins.
func ParsePriority(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(t, "urgent") || strings.Contains(t, "critical"):
		return "urgent"
	case strings.Contains(t, "high"):
		return "high"
	case strings.Contains(t, "low"):
		return "low"
	default:
		return "medium"
	}
}

// ParseMinutes extracts the first run of digits as an integer, defaulting
// to 30 when the text carries none.
func ParseMinutes(text string) int {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] >= '0' && text[i] <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return atoiRun(text[start:i])
		}
	}
	if start >= 0 {
		return atoiRun(text[start:])
	}
	return 30
}

// ParseSentiment lower-cases and trims; no enum validation at this layer.
func ParseSentiment(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func atoiRun(digits string) int {
	n := 0
	for i := 0; i < len(digits); i++ {
		n = n*10 + int(digits[i]-'0')
		if n > 1<<30 {
			return n
		}
	}
	return n
}

func parseStringList(text string) []string {
	var items []string
	if err := unmarshalAIJSON(text, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s := strings.TrimSpace(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func splitCommaList(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
