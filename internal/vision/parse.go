package vision

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence removes an optional surrounding three-backtick code
// fence (with or without a language tag) from s. Text-generating
// services sometimes wrap structured payloads this way even when asked
// for bare JSON.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:] // drop the language tag line
	} else {
		// single-line fence: ```{...}```
		t = strings.TrimSuffix(t, "```")
		return strings.TrimSpace(t)
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// ParseVerdict strips an optional code fence and decodes the remaining
// text as a Verdict. Callers must not attempt their own fallback
// parsing; anything that fails here is a network-or-parse failure.
func ParseVerdict(raw string) (Verdict, error) {
	text := StripCodeFence(raw)
	if text == "" {
		return Verdict{}, ErrEmptyResult
	}
	var v Verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if strings.TrimSpace(v.Reason) == "" {
		return Verdict{}, fmt.Errorf("%w: missing reason", ErrUnparsable)
	}
	return v, nil
}
