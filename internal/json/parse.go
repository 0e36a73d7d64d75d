package json

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Parse leniently parses text that should contain a JSON document.
// Markdown fences are stripped, then a strict unmarshal is attempted;
// on failure the text is run through jsonrepair and retried, which
// recovers the usual LLM faults (single quotes, trailing commas,
// unquoted keys, surrounding prose).
func Parse(text string) (any, error) {
	cleaned := stripMarkdownCodeBlocks(text)

	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err == nil {
		return value, nil
	}

	// Brace-window extraction handles prose around the document
	if extracted, err := extractJSON(cleaned); err == nil {
		cleaned = extracted
	}

	repaired, repairErr := jsonrepair.JSONRepair(cleaned)
	if repairErr != nil {
		preview := text
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		return nil, fmt.Errorf("not valid JSON and repair failed: %q: %w", preview, repairErr)
	}

	if err := json.Unmarshal([]byte(repaired), &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal repaired JSON: %w", err)
	}
	return value, nil
}

// LooksLikeJSON reports whether text plausibly starts a JSON document.
func LooksLikeJSON(text string) bool {
	trimmed := strings.TrimSpace(stripMarkdownCodeBlocks(text))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") ||
		strings.HasPrefix(trimmed, `"`)
}
