// Package decide extracts structured decisions from generation service output.
// The external service is treated as an untrusted producer of free-form text
// that may contain one JSON object; parse failure is an expected branch, not
// an exception, and always degrades to a visible fallback notification.
package decide

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/opsdeck/opsdeck/internal/domain/action"
	"github.com/opsdeck/opsdeck/internal/domain/model"
)

// Decision is the structured output proposed by the generation service.
type Decision struct {
	Analysis string         `json:"analysis"`
	Actions  []model.Action `json:"actions"`
	Summary  string         `json:"summary"`
}

// ErrNoJSON is returned when the response text contains no balanced JSON object.
var ErrNoJSON = errors.New("response contains no JSON object")

// fallbackExcerptLen bounds how much raw text the fallback notification carries.
const fallbackExcerptLen = 500

// Parse extracts the first balanced JSON object from raw and decodes it into a
// Decision. Callers that want the degraded-but-visible behavior should use
// ParseOrFallback instead.
func Parse(raw string) (Decision, error) {
	obj, ok := extractObject(raw)
	if !ok {
		return Decision{}, ErrNoJSON
	}

	var d Decision
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// ParseOrFallback extracts a Decision from raw, degrading to a single
// create_notification action carrying an excerpt of the raw text when no
// parseable JSON object is found. The result always has at least one action,
// so a human is informed even when the service output is malformed.
func ParseOrFallback(raw string) Decision {
	d, err := Parse(raw)
	if err == nil && len(d.Actions) > 0 {
		return d
	}
	if err == nil {
		// Parsed but proposed nothing actionable; surface the analysis instead.
		return fallback(firstNonEmpty(d.Summary, d.Analysis, raw))
	}
	return fallback(raw)
}

func fallback(raw string) Decision {
	excerpt := strings.TrimSpace(raw)
	if len(excerpt) > fallbackExcerptLen {
		excerpt = excerpt[:fallbackExcerptLen]
	}
	if excerpt == "" {
		excerpt = "the generation service returned an empty response"
	}
	return Decision{
		Summary: "Agent response could not be parsed; raw output attached.",
		Actions: []model.Action{
			{
				Type: action.KindCreateNotification,
				Params: map[string]any{
					"title":    "Agent update",
					"message":  excerpt,
					"priority": string(model.PriorityMedium),
				},
				Reason: "fallback for unparseable agent response",
			},
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// extractObject returns the first balanced JSON object in s. The scanner
// tracks string and escape state so braces inside string literals do not
// unbalance the count.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
