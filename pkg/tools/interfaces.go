package tools

import (
	"context"
	"time"
)

type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
}

type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolResult is the uniform outcome of a tool invocation. Failures are
// reported through Success and Error rather than Go errors so the agent
// loop always has something it can show the model.
type ToolResult struct {
	Success       bool          `json:"success"`
	Data          interface{}   `json:"data,omitempty"`
	Count         int           `json:"count"`
	Error         string        `json:"error,omitempty"`
	ToolName      string        `json:"tool_name"`
	ExecutionTime time.Duration `json:"execution_time,omitempty"`
}

type Tool interface {
	GetInfo() ToolInfo

	Execute(ctx context.Context, args map[string]interface{}) ToolResult

	GetName() string

	GetDescription() string
}

func successResult(name string, data interface{}, count int, elapsed time.Duration) ToolResult {
	return ToolResult{
		Success:       true,
		Data:          data,
		Count:         count,
		ToolName:      name,
		ExecutionTime: elapsed,
	}
}

func errorResult(name string, errMsg string, elapsed time.Duration) ToolResult {
	if errMsg == "" {
		errMsg = "unknown error"
	}
	return ToolResult{
		Success:       false,
		Error:         errMsg,
		ToolName:      name,
		ExecutionTime: elapsed,
	}
}
