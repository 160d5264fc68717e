package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registered(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestExtractFencedJSON(t *testing.T) {
	e := NewExtractor(nil)
	text := "I will look that up.\n```json\n{\"tool\":\"lookup\",\"arguments\":{\"id\":\"X1\"}}\n```"

	d := e.Extract(text)
	require.NotNil(t, d)
	assert.Equal(t, "lookup", d.Tool)
	assert.Equal(t, map[string]interface{}{"id": "X1"}, d.Arguments)
}

func TestExtractBareJSON(t *testing.T) {
	e := NewExtractor(nil)
	text := `Let me check. {"tool": "search_employees", "arguments": "ignored"} done`

	// The arguments field is not an object here, so JSON decoding fails
	// and no later candidate matches either.
	assert.Nil(t, e.Extract(text))

	d := e.Extract(`Sure: {"tool": "get_employee_by_id"}`)
	require.NotNil(t, d)
	assert.Equal(t, "get_employee_by_id", d.Tool)
	assert.Empty(t, d.Arguments)
}

func TestExtractBareJSONNoNesting(t *testing.T) {
	e := NewExtractor(nil)
	// Nested braces are beyond the bare-object candidate.
	assert.Nil(t, e.Extract(`{"tool": "lookup", "arguments": {"id": "X1"}} but no fence`))
}

func TestExtractImperative(t *testing.T) {
	e := NewExtractor(nil)

	d := e.Extract(`CALL tool: search_employees with arguments: {"search_term": "Alice"}`)
	require.NotNil(t, d)
	assert.Equal(t, "search_employees", d.Tool)
	assert.Equal(t, "Alice", d.Arguments["search_term"])
}

func TestExtractImperativeDefaultsArguments(t *testing.T) {
	e := NewExtractor(nil)

	d := e.Extract("use function: list_everything")
	require.NotNil(t, d)
	assert.Equal(t, "list_everything", d.Tool)
	assert.Empty(t, d.Arguments)

	d = e.Extract("CALL tool: lookup with arguments: {not valid json}")
	require.NotNil(t, d)
	assert.Equal(t, "lookup", d.Tool)
	assert.Empty(t, d.Arguments)
}

func TestExtractCallSyntax(t *testing.T) {
	e := NewExtractor(registered("get_employee_by_id"))

	d := e.Extract(`I'll run get_employee_by_id(employee_id="EMP001") now.`)
	require.NotNil(t, d)
	assert.Equal(t, "get_employee_by_id", d.Tool)
	assert.Equal(t, map[string]interface{}{"employee_id": "EMP001"}, d.Arguments)
}

func TestExtractCallSyntaxRequiresRegisteredName(t *testing.T) {
	e := NewExtractor(registered("get_employee_by_id"))

	// Incidental parenthetical text must not produce a directive.
	assert.Nil(t, e.Extract(`The team (formed in 2019) ships weekly("fast").`))
	assert.Nil(t, e.Extract(`unknown_tool(key="value")`))
}

func TestExtractPrecedenceFencedWins(t *testing.T) {
	e := NewExtractor(registered("second"))
	text := "```json\n{\"tool\":\"first\"}\n```\nCALL tool: second with arguments: {}"

	d := e.Extract(text)
	require.NotNil(t, d)
	assert.Equal(t, "first", d.Tool)
}

func TestExtractNoDirective(t *testing.T) {
	e := NewExtractor(registered("lookup"))
	assert.Nil(t, e.Extract("Vacation policy grants 20 days per year."))
	assert.Nil(t, e.Extract(""))
}

func TestSanitize(t *testing.T) {
	in := "Here is the answer.\n```json\n{\"tool\":\"x\"}\n```\nCALL tool: lookup now"
	assert.Equal(t, "Here is the answer.", Sanitize(in))

	assert.Equal(t, "plain text stays", Sanitize("  plain text stays  "))
}
