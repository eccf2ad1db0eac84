package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/scribe/internal/models"
)

// StripCodeFences removes a surrounding ```json ... ``` (or bare ```) fence.
func StripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}

	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		// Drop the info string ("json", "JSON", ...) on the opening fence line
		if !strings.ContainsAny(t[:nl], "{[") {
			t = t[nl+1:]
		}
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// DecodeJSON strips optional code fences and decodes text into out.
// Failures wrap models.ErrMalformedJSON.
func DecodeJSON(text string, out interface{}) error {
	cleaned := StripCodeFences(text)
	if cleaned == "" {
		return fmt.Errorf("%w: empty response", models.ErrMalformedJSON)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedJSON, err)
	}
	return nil
}
