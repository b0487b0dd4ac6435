// Package llmjson parses loosely formatted JSON answers produced by the
// reasoning service. Every call site goes through Parse so malformed output
// degrades to a caller-chosen default instead of an error.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrEmpty is reported when the answer holds no JSON payload.
var ErrEmpty = errors.New("empty answer")

// Result is the outcome of Parse. Value is the default when OK is false.
type Result[T any] struct {
	Value T
	OK    bool
	Err   error
}

// Parse decodes raw into T. Markdown fences and surrounding prose are
// stripped first. On any failure the supplied default is returned with OK set
// to false and Err describing the cause.
func Parse[T any](raw string, def T) Result[T] {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return Result[T]{Value: def, Err: ErrEmpty}
	}

	var value T
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		return Result[T]{Value: def, Err: fmt.Errorf("decode answer: %w", err)}
	}

	return Result[T]{Value: value, OK: true}
}

// Items decodes an answer that is either a bare JSON array or an object that
// carries the array under key. Anything else yields nil.
func Items(raw, key string) Result[[]any] {
	parsed := Parse[any](raw, nil)
	if !parsed.OK {
		return Result[[]any]{Err: parsed.Err}
	}

	switch v := parsed.Value.(type) {
	case []any:
		return Result[[]any]{Value: v, OK: true}
	case map[string]any:
		if list, ok := v[key].([]any); ok {
			return Result[[]any]{Value: list, OK: true}
		}
		return Result[[]any]{Err: fmt.Errorf("answer has no %q array", key)}
	default:
		return Result[[]any]{Err: fmt.Errorf("unexpected answer type %T", parsed.Value)}
	}
}

// ExtractJSON trims markdown code fences and any text outside the outermost
// JSON object or array.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))
	if raw == "" {
		return ""
	}

	if raw[0] == '{' || raw[0] == '[' {
		return raw
	}

	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return raw
	}
	closer := byte('}')
	if raw[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(raw, closer)
	if end < start {
		return raw[start:]
	}
	return raw[start : end+1]
}

// Int reports v as an integer. Fractional numbers and non-numeric strings are
// rejected.
func Int(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || val != math.Trunc(val) {
			return 0, false
		}
		return int(val), true
	case int:
		return val, true
	case int64:
		return int(val), true
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func Bool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

// String renders v as trimmed text. Non-string values are JSON encoded.
func String(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// Strings returns the non-empty string entries of a JSON array. A single
// string is treated as a one-element list.
func Strings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := String(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
		return nil
	default:
		return nil
	}
}
