package plantid

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Parse path labels, exposed for the identification metrics.
const (
	ParsePathStrict   = "strict"
	ParsePathEmbedded = "embedded"
	ParsePathRegex    = "regex"
	ParsePathFallback = "fallback"
)

var keywordPatterns = []struct {
	key     string
	nested  string
	pattern *regexp.Regexp
}{
	{key: "plantName", pattern: regexp.MustCompile(`(?im)^\s*(?:plant\s*name|common\s*name|name)\s*[:\-]\s*(.+?)\s*$`)},
	{key: "scientificName", pattern: regexp.MustCompile(`(?im)^\s*(?:scientific\s*name|latin\s*name|botanical\s*name)\s*[:\-]\s*(.+?)\s*$`)},
	{key: "family", pattern: regexp.MustCompile(`(?im)^\s*family\s*[:\-]\s*(.+?)\s*$`)},
	{key: "confidence", pattern: regexp.MustCompile(`(?i)confidence\s*[:\-]?\s*(\d{1,3})`)},
	{key: "description", pattern: regexp.MustCompile(`(?im)^\s*description\s*[:\-]\s*(.+?)\s*$`)},
	{key: "light", nested: "careInstructions", pattern: regexp.MustCompile(`(?im)^\s*light\s*[:\-]\s*(.+?)\s*$`)},
	{key: "water", nested: "careInstructions", pattern: regexp.MustCompile(`(?im)^\s*water(?:ing)?\s*[:\-]\s*(.+?)\s*$`)},
	{key: "soil", nested: "careInstructions", pattern: regexp.MustCompile(`(?im)^\s*soil\s*[:\-]\s*(.+?)\s*$`)},
	{key: "temperature", nested: "careInstructions", pattern: regexp.MustCompile(`(?im)^\s*temperature\s*[:\-]\s*(.+?)\s*$`)},
	{key: "humidity", nested: "careInstructions", pattern: regexp.MustCompile(`(?im)^\s*humidity\s*[:\-]\s*(.+?)\s*$`)},
	{key: "fertilizer", nested: "careInstructions", pattern: regexp.MustCompile(`(?im)^\s*fertiliz(?:er|ing)\s*[:\-]\s*(.+?)\s*$`)},
	{key: "propagation", nested: "careInstructions", pattern: regexp.MustCompile(`(?im)^\s*propagation\s*[:\-]\s*(.+?)\s*$`)},
	{key: "commonIssues", nested: "careInstructions", pattern: regexp.MustCompile(`(?im)^\s*(?:common\s*issues|problems|pests)\s*[:\-]\s*(.+?)\s*$`)},
	{key: "toxicity", nested: "characteristics", pattern: regexp.MustCompile(`(?im)^\s*toxicity\s*[:\-]\s*(.+?)\s*$`)},
	{key: "difficulty", nested: "characteristics", pattern: regexp.MustCompile(`(?im)^\s*difficulty\s*[:\-]\s*(.+?)\s*$`)},
}

// ParseContent turns the raw chat-completion message content into a partial
// record map. It tries a strict JSON parse first, then extracts a JSON
// object embedded in surrounding prose, then scrapes keyword-labelled
// lines. The returned path names which stage produced the result; on the
// fallback path the map is nil and Normalize yields the default record.
func ParseContent(content string) (map[string]any, string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ParsePathFallback
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err == nil {
		return raw, ParsePathStrict
	}

	if obj := extractObject(content); obj != "" {
		raw = nil
		if err := json.Unmarshal([]byte(obj), &raw); err == nil {
			return raw, ParsePathEmbedded
		}
	}

	if raw := scrapeKeywords(content); raw != nil {
		return raw, ParsePathRegex
	}

	return nil, ParsePathFallback
}

// extractObject returns the widest {...} span in the content. Model replies
// often wrap the JSON in prose or markdown fences.
func extractObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

func scrapeKeywords(content string) map[string]any {
	raw := map[string]any{}
	for _, kp := range keywordPatterns {
		m := kp.pattern.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		value := strings.Trim(m[1], ` "'*`)
		if value == "" {
			continue
		}
		if kp.nested == "" {
			raw[kp.key] = value
			continue
		}
		nested, ok := raw[kp.nested].(map[string]any)
		if !ok {
			nested = map[string]any{}
			raw[kp.nested] = nested
		}
		nested[kp.key] = value
	}
	if len(raw) == 0 {
		return nil
	}
	return raw
}
