// Package agent implements the tool-calling conversation loop that turns a
// user question, optional retrieved context and a capability registry into
// a final answer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/parley/pkg/llms"
	"github.com/kadirpekel/parley/pkg/tools"
)

// MetricsRecorder receives generation and tool-dispatch instrumentation.
// *observability.Metrics implements it.
type MetricsRecorder interface {
	RecordLLMRequest(ctx context.Context, model string, duration time.Duration, err error)
	RecordToolCall(ctx context.Context, tool string, duration time.Duration, success bool)
}

const (
	// DefaultMaxIterations bounds the prompting turns of one query.
	DefaultMaxIterations = 5

	fallbackAnswer = "I apologize, but I'm having trouble processing your request."
)

// ToolCallRecord is one executed tool invocation in a query's log.
type ToolCallRecord struct {
	ID        string                 `json:"id"`
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Result    tools.ToolResult       `json:"result"`
}

// Answer is the assembled outcome of one query: the final text, the context
// entries that contributed to it (retrieved passages plus a rendering of
// each tool call) and the full tool-call log.
type Answer struct {
	Text      string           `json:"answer"`
	Context   []string         `json:"context,omitempty"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	Degraded  bool             `json:"degraded,omitempty"`
}

// Agent drives the prompting loop against a generation backend.
type Agent struct {
	llm           llms.Provider
	registry      *tools.Registry
	extractor     *Extractor
	maxIterations int
	metrics       MetricsRecorder
	logger        *slog.Logger
}

// Options configures an Agent.
type Options struct {
	LLM           llms.Provider
	Registry      *tools.Registry
	MaxIterations int
	Metrics       MetricsRecorder
}

func New(opts Options) *Agent {
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	registry := opts.Registry
	if registry == nil {
		registry = tools.NewRegistryBuilder().Build()
	}
	names := make(map[string]bool)
	for _, name := range registry.Names() {
		names[name] = true
	}
	return &Agent{
		llm:           opts.LLM,
		registry:      registry,
		extractor:     NewExtractor(func(name string) bool { return names[name] }),
		maxIterations: maxIterations,
		metrics:       opts.Metrics,
		logger:        slog.Default(),
	}
}

func (a *Agent) systemPrompt() string {
	return fmt.Sprintf(`You are an intelligent assistant with access to database tools.
When you need to query the employee database, you can call tools.

Available tools:
%s

To call a tool, respond in JSON format:
{
    "tool": "tool_name",
    "arguments": {"param1": "value1", "param2": "value2"}
}

Or use this format:
CALL tool: tool_name with arguments: {"param1": "value1"}

After calling a tool, you will receive the results. Use those results to answer the user's question.
If you don't need to call a tool, just answer the question directly.`, a.registry.Describe())
}

// Query runs the conversation loop for one user question. Retrieved
// passages, when present, seed the conversation as a context block. A
// generation backend failure is terminal for the query; tool failures are
// not, they feed back into the conversation as structured error results.
func (a *Agent) Query(ctx context.Context, question string, passages []string) (*Answer, error) {
	system := a.systemPrompt()

	var history []string
	if len(passages) > 0 {
		history = append(history, "Context from knowledge base:\n"+strings.Join(passages, "\n\n")+"\n")
	}
	history = append(history, "User Question: "+question+"\n")

	prompt := strings.Join(history, "\n") +
		"\n\nThink step by step. Do you need to call a tool to answer this question? " +
		"If yes, call the appropriate tool. If no, answer directly."

	var records []ToolCallRecord
	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		llmStart := time.Now()
		reply, err := a.llm.Generate(ctx, prompt, system)
		if a.metrics != nil {
			a.metrics.RecordLLMRequest(ctx, a.llm.GetModelName(), time.Since(llmStart), err)
		}
		if err != nil {
			return nil, fmt.Errorf("generation failed on turn %d: %w", iteration, err)
		}
		history = append(history, "Assistant: "+reply+"\n")

		directive := a.extractor.Extract(reply)
		if directive == nil {
			answer := Sanitize(reply)
			if answer == "" {
				answer = fallbackAnswer
			}
			a.logger.Debug("Query answered directly", "turns", iteration, "tool_calls", len(records))
			return a.assemble(answer, passages, records, false), nil
		}

		toolStart := time.Now()
		result := a.registry.Dispatch(ctx, directive.Tool, directive.Arguments)
		if a.metrics != nil {
			a.metrics.RecordToolCall(ctx, directive.Tool, time.Since(toolStart), result.Success)
		}
		records = append(records, ToolCallRecord{
			ID:        uuid.NewString(),
			Tool:      directive.Tool,
			Arguments: directive.Arguments,
			Result:    result,
		})
		a.logger.Debug("Tool dispatched", "tool", directive.Tool, "success", result.Success, "turn", iteration)

		history = append(history, fmt.Sprintf("Tool '%s' was called with arguments %v.\nResult: %s\n",
			directive.Tool, directive.Arguments, formatToolResult(directive.Tool, result)))
		prompt = strings.Join(history, "\n") +
			"\n\nBased on the tool result above, provide a final answer to the user's question. " +
			"If you need more information, you can call another tool. Otherwise, provide a complete answer."
	}

	// Budget exhausted: the last conversation entry is the best-effort
	// answer. A defined degraded outcome, not an error.
	a.logger.Warn("Iteration budget exhausted", "turns", a.maxIterations, "tool_calls", len(records))
	answer := fallbackAnswer
	if len(history) > 0 {
		answer = strings.TrimSpace(history[len(history)-1])
	}
	return a.assemble(answer, passages, records, true), nil
}

// assemble merges passages and tool-call renderings into the answer's
// context so callers can see what contributed to it.
func (a *Agent) assemble(text string, passages []string, records []ToolCallRecord, degraded bool) *Answer {
	context := make([]string, 0, len(passages)+len(records))
	context = append(context, passages...)
	for _, r := range records {
		context = append(context, renderToolCall(r))
	}
	return &Answer{Text: text, Context: context, ToolCalls: records, Degraded: degraded}
}

func renderToolCall(r ToolCallRecord) string {
	if !r.Result.Success {
		return fmt.Sprintf("Tool call %s failed: %s", r.Tool, r.Result.Error)
	}
	switch r.Result.Count {
	case 0:
		return fmt.Sprintf("Tool call %s returned no results", r.Tool)
	case 1:
		return fmt.Sprintf("Tool call %s returned 1 result", r.Tool)
	default:
		return fmt.Sprintf("Tool call %s returned %d results", r.Tool, r.Result.Count)
	}
}

// formatToolResult renders a tool outcome for the model, distinguishing
// error, empty, singular and plural results.
func formatToolResult(toolName string, result tools.ToolResult) string {
	if !result.Success {
		return fmt.Sprintf("Tool '%s' returned an error: %s", toolName, result.Error)
	}
	if result.Count == 0 {
		return fmt.Sprintf("Tool '%s' found no results.", toolName)
	}
	payload, err := json.MarshalIndent(result.Data, "", "  ")
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", result.Data))
	}
	if result.Count == 1 {
		return fmt.Sprintf("Tool '%s' result:\n%s", toolName, payload)
	}
	return fmt.Sprintf("Tool '%s' found %d results:\n%s", toolName, result.Count, payload)
}
