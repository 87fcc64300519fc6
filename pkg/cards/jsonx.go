package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Typed parse failures so callers can decide what is retryable.
var (
	ErrNoJSON    = errors.New("no JSON object found in response")
	ErrBadSchema = errors.New("response JSON does not match expected schema")
)

// ExtractJSON pulls the first balanced JSON object out of free-form model
// output, tolerating leading and trailing prose. Truncated objects are
// repaired by trimming dangling tokens and closing open brackets, so a model
// response cut off mid-generation still parses when enough of it survived.
func ExtractJSON(response string) (string, error) {
	start := strings.Index(response, "{")
	if start == -1 {
		return "", ErrNoJSON
	}

	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(response); i++ {
		c := response[i]

		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				return "", ErrNoJSON
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return response[start : i+1], nil
			}
		}
	}

	// Ran off the end with brackets still open: repair the truncation.
	return repairTruncated(response[start:], stack, inString), nil
}

// repairTruncated closes an unbalanced JSON fragment: terminate an open
// string, drop a dangling partial token or trailing comma, then close the
// bracket stack in reverse order.
func repairTruncated(fragment string, stack []byte, inString bool) string {
	var b strings.Builder
	b.WriteString(fragment)

	if inString {
		b.WriteByte('"')
	}

	repaired := strings.TrimRight(b.String(), " \t\r\n")
	// A value may have been cut mid-token ("key": or "key"), drop it.
	repaired = strings.TrimRight(repaired, ",")
	if strings.HasSuffix(repaired, ":") {
		if idx := strings.LastIndex(repaired, ","); idx != -1 {
			repaired = repaired[:idx]
		} else {
			repaired += " null"
		}
	}

	var closer strings.Builder
	closer.WriteString(repaired)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			closer.WriteByte('}')
		} else {
			closer.WriteByte(']')
		}
	}
	return closer.String()
}

// ParseJSONInto extracts one JSON object from response and unmarshals it into
// v. Both "nothing extractable" and "wrong shape" come back as typed errors
// the stage runner treats as retryable.
func ParseJSONInto(response string, v interface{}) error {
	raw, err := ExtractJSON(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSchema, err)
	}
	return nil
}
