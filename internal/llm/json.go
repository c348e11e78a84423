package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```\\w*\\n?")
	trailingFence = regexp.MustCompile("\\n?```\\s*$")
)

// ErrNotArray is returned when a response does not hold a non-empty JSON array.
var ErrNotArray = errors.New("response is not a non-empty JSON array")

// StripCodeFence removes a leading ```lang and trailing ``` wrapper that
// models put around JSON.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ParseJSONArray decodes a model response that must be a non-empty JSON array,
// handling markdown code blocks.
func ParseJSONArray(text string) ([]any, error) {
	text = StripCodeFence(text)
	if text == "" {
		return nil, ErrNotArray
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("parsing response as JSON: %w", err)
	}
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil, ErrNotArray
	}
	return arr, nil
}
