package aijson

import (
	"encoding/json"
	"strings"
)

// Extract parses a model completion that may wrap its JSON payload in
// Markdown code fences. It strips the fences, trims whitespace and
// unmarshals into v. A false return means no usable JSON could be
// recovered; callers treat that the same as a response with missing fields.
func Extract(text string, v any) bool {
	clean := strings.ReplaceAll(text, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	return json.Unmarshal([]byte(clean), v) == nil
}
