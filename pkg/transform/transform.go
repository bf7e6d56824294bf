// Package transform renders raw text as numbered, uppercased, trimmed lines.
package transform

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Content transforms optional raw content. A nil input yields nil.
func Content(raw *string) *string {
	if raw == nil {
		return nil
	}
	out := String(*raw)
	return &out
}

// String transforms present raw content. Input with no non-blank lines yields "".
func String(raw string) string {
	return strings.Join(Lines(raw), "\n")
}

// Lines splits raw on "\n", "\r\n" or "\r", drops lines that are blank after
// trimming, and returns the survivors as "<n>. <UPPER>" with n counting from 1.
func Lines(raw string) []string {
	// cases.Caser is stateful; one per call keeps Lines safe for concurrent use.
	upper := cases.Upper(language.Und)

	var out []string
	for _, line := range strings.Split(NormalizeNewlines(raw), "\n") {
		line = strings.TrimFunc(line, isSpace)
		if line == "" {
			continue
		}
		out = append(out, strconv.Itoa(len(out)+1)+". "+upper.String(line))
	}
	return out
}

// NormalizeNewlines rewrites "\r\n" and bare "\r" line breaks as "\n".
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

// isSpace also treats the ASCII file, group, record and unit separators
// (0x1c-0x1f) as whitespace.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Processor adapts String to the pipeline Processor contract.
type Processor struct{}

func (Processor) Process(_ context.Context, in string) (string, error) {
	return String(in), nil
}
