package pipeline

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	// Opening fence with optional language tag at the very start, closing fence at the very end.
	leadingFenceRe  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\\r?\\n?")
	trailingFenceRe = regexp.MustCompile("\\r?\\n?[ \t]*```[ \t]*$")

	// Fence lines anywhere in the text, for answers wrapped in prose.
	fenceLineRe = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_+-]*[ \t]*\\r?$")
)

var errNotObject = errors.New("top-level JSON value is not an object")

// Extract recovers a JSON object from raw model text.
//
// It strips markdown fences, tries a direct decode, then makes exactly one repair
// attempt on the substring between the first '{' and its matching '}'. When nothing
// decodes it fails with MalformedResponse carrying the raw text.
func Extract(raw string) (ParsedPayload, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, &Error{Kind: KindMalformedResponse, Detail: "model returned an empty response", Raw: raw}
	}

	payload, directErr := decodeObject(cleaned)
	if directErr == nil {
		return payload, nil
	}

	// Repair pass: discard prose around the object.
	if candidate, ok := objectSubstring(cleaned); ok {
		if payload, err := decodeObject(candidate); err == nil {
			return payload, nil
		}
	}

	return nil, &Error{
		Kind:   KindMalformedResponse,
		Detail: "no valid JSON object could be recovered from the model response",
		Raw:    raw,
		Err:    directErr,
	}
}

func stripFences(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	s = leadingFenceRe.ReplaceAllString(s, "")
	s = trailingFenceRe.ReplaceAllString(s, "")
	s = fenceLineRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func decodeObject(s string) (ParsedPayload, error) {
	// Unmarshal rejects trailing content such as `{...} hope this helps`.
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return ParsedPayload(obj), nil
}

// objectSubstring returns the text from the first '{' to the '}' that closes it,
// skipping braces inside string literals. If the braces never balance it falls
// back to the last '}' in the text.
func objectSubstring(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
