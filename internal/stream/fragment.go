package stream

import (
	"encoding/json"
	"strings"
)

// Fragment is one decoded message event.
//
// Failed marks a backend error; Err holds its message when one was sent.
type Fragment struct {
	Text     string
	Failed   bool
	Err      string
	Fallback bool
}

// ParseFragment decodes a message payload.
//
// A JSON object with a string "data" field contributes that field, whatever else it
// carries. Otherwise an object whose "error" is set (not null or "") is a backend
// failure. Anything else is taken verbatim and marked as a fallback.
func ParseFragment(data string) Fragment {
	trimmed := strings.TrimSpace(data)
	if !strings.HasPrefix(trimmed, "{") {
		return Fragment{Text: data, Fallback: true}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return Fragment{Text: data, Fallback: true}
	}

	if raw, ok := obj["data"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return Fragment{Text: text}
		}
	}

	if raw, ok := obj["error"]; ok && errorSet(raw) {
		return Fragment{Failed: true, Err: errorText(raw)}
	}

	return Fragment{Text: data, Fallback: true}
}

func errorSet(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", `""`:
		return false
	}
	return true
}

func errorText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil && strings.TrimSpace(text) != "" {
		return text
	}
	var detail struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		return detail.Message
	}
	return ""
}
