package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Directive is a structured tool invocation recovered from model text.
type Directive struct {
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)\{[^{}]*"tool"[^{}]*\}`)
	imperativeRe = regexp.MustCompile(`(?is)(?:call|use)\s+(?:tool|function)[:\s]+(\w+)\s*(?:with)?\s*(?:arguments|args|params)?[:\s]*(\{.*?\})?`)
	callSyntaxRe = regexp.MustCompile(`(\w+)\s*\(([^)]*)\)`)
	kvPairRe     = regexp.MustCompile(`(\w+)\s*=\s*"([^"]*)"`)
)

type extractStrategy func(text string) *Directive

// Extractor recovers tool directives from free-form model output. Candidate
// syntaxes are tried in a fixed precedence order; the first successful parse
// wins, and a parse failure within one candidate falls through to the next.
type Extractor struct {
	strategies []extractStrategy
}

// NewExtractor builds an extractor. isRegistered gates the bare
// call-syntax candidate, which would otherwise fire on incidental
// parenthetical prose.
func NewExtractor(isRegistered func(name string) bool) *Extractor {
	if isRegistered == nil {
		isRegistered = func(string) bool { return false }
	}
	return &Extractor{strategies: []extractStrategy{
		extractFencedJSON,
		extractBareJSON,
		extractImperative,
		extractCallSyntax(isRegistered),
	}}
}

// Extract returns the first directive found in text, or nil when the text
// contains none and should be treated as a final answer.
func (e *Extractor) Extract(text string) *Directive {
	for _, strategy := range e.strategies {
		if d := strategy(text); d != nil {
			return d
		}
	}
	return nil
}

func parseDirectiveJSON(raw string) *Directive {
	var payload struct {
		Tool      string                 `json:"tool"`
		Arguments map[string]interface{} `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	if payload.Tool == "" {
		return nil
	}
	args := payload.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}
	return &Directive{Tool: payload.Tool, Arguments: args}
}

// Candidate 1: a fenced ```json block holding an object with a tool key.
func extractFencedJSON(text string) *Directive {
	m := fencedJSONRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return parseDirectiveJSON(m[1])
}

// Candidate 2: a bare JSON object with a tool key. Minimal nesting only;
// objects with nested braces are out of reach for this candidate.
func extractBareJSON(text string) *Directive {
	m := bareJSONRe.FindString(text)
	if m == "" {
		return nil
	}
	return parseDirectiveJSON(m)
}

// Candidate 3: an imperative phrase such as
// "CALL tool: search_employees with arguments: {...}". Arguments default
// to empty when absent or unparsable.
func extractImperative(text string) *Directive {
	m := imperativeRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	args := map[string]interface{}{}
	if raw := strings.TrimSpace(m[2]); raw != "" {
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			args = parsed
		}
	}
	return &Directive{Tool: m[1], Arguments: args}
}

// Candidate 4: NAME(key="value", ...). Accepted only for registered
// capability names, and only with at least one quoted argument.
func extractCallSyntax(isRegistered func(string) bool) extractStrategy {
	return func(text string) *Directive {
		for _, m := range callSyntaxRe.FindAllStringSubmatch(text, -1) {
			if !isRegistered(m[1]) {
				continue
			}
			args := map[string]interface{}{}
			for _, kv := range kvPairRe.FindAllStringSubmatch(m[2], -1) {
				args[kv[1]] = kv[2]
			}
			if len(args) == 0 {
				continue
			}
			return &Directive{Tool: m[1], Arguments: args}
		}
		return nil
	}
}
