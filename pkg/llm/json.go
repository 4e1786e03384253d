package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Validator is implemented by generation targets that can check themselves
// after decoding.
type Validator interface {
	Validate() error
}

// GenerateJSON asks g for JSON, extracts the first JSON value from the reply
// and decodes it into T. Targets implementing Validator are validated.
func GenerateJSON[T any](ctx context.Context, g Generator, req Request) (T, error) {
	var out T
	if g == nil {
		return out, ErrUnavailable
	}
	req.JSON = true
	raw, err := g.Generate(ctx, req)
	if err != nil {
		return out, err
	}
	if err := DecodeJSON(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeJSON cleans raw model output and decodes it into v.
func DecodeJSON(raw string, v any) error {
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		return ErrEmpty
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return nil
}

var chattyPrefixes = []string{
	"Here's the JSON:",
	"Here is the JSON:",
	"Here is the itinerary:",
	"JSON:",
}

// CleanJSON strips code fences and prose around the first JSON object or array.
func CleanJSON(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```JSON", "")
	response = strings.ReplaceAll(response, "```", "")
	response = strings.TrimSpace(response)

	for _, prefix := range chattyPrefixes {
		if strings.HasPrefix(response, prefix) {
			response = strings.TrimSpace(strings.TrimPrefix(response, prefix))
			break
		}
	}

	objStart := strings.Index(response, "{")
	arrStart := strings.Index(response, "[")

	if objStart != -1 && (arrStart == -1 || objStart < arrStart) {
		if end := matchClosing(response, objStart, '{', '}'); end != -1 {
			return response[objStart : end+1]
		}
	} else if arrStart != -1 {
		if end := matchClosing(response, arrStart, '[', ']'); end != -1 {
			return response[arrStart : end+1]
		}
	}
	return response
}

// matchClosing returns the index of the bracket closing s[start], skipping
// string literals, or -1.
func matchClosing(s string, start int, open, close byte) int {
	if start >= len(s) || s[start] != open {
		return -1
	}
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
