package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Strategy is one pure text transform in the repair cascade.
type Strategy struct {
	Name  string
	Apply func(string) string
}

// DefaultStrategies returns the cascade, least invasive first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "strip_fences_and_trailing_commas", Apply: stripFencesAndTrailingCommas},
		{Name: "extract_first_json", Apply: extractFirstJSON},
		{Name: "close_truncated", Apply: closeTruncated},
		{Name: "close_dangling_properties", Apply: closeDanglingProperties},
	}
}

// RepairResult reports which cascade step produced a parseable value.
// Step is 1-based; zero means nothing parsed.
type RepairResult struct {
	Value    any
	Text     string
	Step     int
	StepName string
	OK       bool
}

// Repairer applies its strategies cumulatively and stops at the first step
// whose output parses as a JSON object or array.
type Repairer struct {
	strategies []Strategy
	// OnStep is called before each attempted step.
	OnStep func(step int, name string)
}

func NewRepairer(strategies ...Strategy) *Repairer {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Repairer{strategies: strategies}
}

func (r *Repairer) Repair(raw string) RepairResult {
	text := raw
	for i, s := range r.strategies {
		if r.OnStep != nil {
			r.OnStep(i+1, s.Name)
		}
		text = s.Apply(text)
		if v, ok := parseStrict(text); ok {
			return RepairResult{Value: v, Text: text, Step: i + 1, StepName: s.Name, OK: true}
		}
	}
	return RepairResult{Text: text}
}

// parseStrict accepts only a JSON object or array.
func parseStrict(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, true
	}
	return nil, false
}

var fenceRegex = regexp.MustCompile("```[a-zA-Z]*")

// Step 1: remove markdown code fences and trailing commas before a closer.
func stripFencesAndTrailingCommas(text string) string {
	text = fenceRegex.ReplaceAllString(text, "")

	var out strings.Builder
	out.Grow(len(text))
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			out.WriteByte(c)
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
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := skipSpace(text, i+1)
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}
		out.WriteByte(c)
	}
	return strings.TrimSpace(out.String())
}

// Step 2: keep only the first top-level object or array, dropping surrounding prose.
// An unterminated value is returned from its opening bracket to the end.
func extractFirstJSON(text string) string {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return text
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return strings.TrimSpace(text[start:])
}

// Step 3: close an unterminated string, drop a dangling comma and append
// the closers needed to balance the open brackets.
func closeTruncated(text string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if !inString && len(stack) == 0 {
		return text
	}

	if inString {
		if escaped {
			text = text[:len(text)-1]
		}
		text += `"`
	}

	text = strings.TrimRight(text, " \t\r\n")
	text = strings.TrimSuffix(text, ",")

	var b strings.Builder
	b.WriteString(text)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

// Step 4: an object cut off mid-property leaves a key without a value
// ({"a":1,"b"}) or a colon without a value ({"a":}). Drop the orphan key,
// fill the missing value with null.
func closeDanglingProperties(text string) string {
	type frame struct {
		object    bool
		expectKey bool
	}
	var stack []frame
	out := make([]byte, 0, len(text)+8)

	for i := 0; i < len(text); {
		c := text[i]
		switch c {
		case '"':
			end := scanString(text, i)
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].expectKey {
				j := skipSpace(text, end)
				if j >= len(text) || text[j] == '}' || text[j] == ',' {
					out = trimTrailingComma(out)
					i = end
					continue
				}
				stack[n-1].expectKey = false
			}
			out = append(out, text[i:end]...)
			i = end
			continue
		case '{':
			stack = append(stack, frame{object: true, expectKey: true})
		case '[':
			stack = append(stack, frame{})
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if c == '}' {
				out = trimTrailingComma(out)
			}
		case ',':
			if n := len(stack); n > 0 && stack[n-1].object {
				stack[n-1].expectKey = true
			}
		case ':':
			out = append(out, c)
			j := skipSpace(text, i+1)
			if j >= len(text) || text[j] == '}' || text[j] == ',' {
				out = append(out, "null"...)
			}
			i++
			continue
		}
		out = append(out, c)
		i++
	}
	return string(out)
}

// scanString returns the index just past the string literal starting at i.
func scanString(text string, i int) int {
	escaped := false
	for j := i + 1; j < len(text); j++ {
		switch {
		case escaped:
			escaped = false
		case text[j] == '\\':
			escaped = true
		case text[j] == '"':
			return j + 1
		}
	}
	return len(text)
}

func skipSpace(text string, i int) int {
	for i < len(text) && strings.IndexByte(" \t\r\n", text[i]) >= 0 {
		i++
	}
	return i
}

func trimTrailingComma(out []byte) []byte {
	end := len(out)
	for end > 0 && strings.IndexByte(" \t\r\n", out[end-1]) >= 0 {
		end--
	}
	if end > 0 && out[end-1] == ',' {
		return append(out[:end-1], out[end:]...)
	}
	return out
}
