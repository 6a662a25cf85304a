package services

import (
	"regexp"
	"strings"
)

var reasoningRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

const reasoningClose = "</think>"

// StripReasoning removes every <think>...</think> block, including blocks that
// span lines, and trims surrounding whitespace. Nested blocks leave orphaned
// closing tags behind; everything up to the last of them was reasoning too.
func StripReasoning(s string) string {
	s = reasoningRe.ReplaceAllString(s, "")
	if i := strings.LastIndex(s, reasoningClose); i >= 0 {
		s = s[i+len(reasoningClose):]
	}
	return strings.TrimSpace(s)
}
