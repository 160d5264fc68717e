package agent

import (
	"regexp"
	"strings"
)

// sanitizePatterns is the fixed set of directive artifacts stripped from a
// final answer. Each entry removes one residual syntax the model sometimes
// leaves behind after deciding to answer directly:
//
//  1. fenced ```json blocks (leftover structured directives)
//  2. trailing "CALL tool ..." imperative phrases
var sanitizePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json.*?```"),
	regexp.MustCompile(`(?is)call\s+tool.*`),
}

// Sanitize strips residual directive syntax from a final answer.
func Sanitize(text string) string {
	for _, re := range sanitizePatterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
