package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name    string
	execute func(ctx context.Context, args map[string]interface{}) ToolResult
}

func (t *stubTool) GetName() string        { return t.name }
func (t *stubTool) GetDescription() string { return "stub tool " + t.name }
func (t *stubTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.name,
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{Name: "value", Type: "string", Description: "input value", Required: true},
		},
	}
}
func (t *stubTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	if t.execute != nil {
		return t.execute(ctx, args)
	}
	return successResult(t.name, "ok", 1, time.Millisecond)
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistryBuilder().
		Register(&stubTool{name: "alpha"}).
		Build()

	result := registry.Dispatch(context.Background(), "alpha", nil)
	assert.True(t, result.Success)
	assert.Equal(t, "alpha", result.ToolName)
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	registry := NewRegistryBuilder().Build()

	result := registry.Dispatch(context.Background(), "missing", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool missing not found")
	assert.Equal(t, "missing", result.ToolName)
}

func TestRegistryDispatchRecoversPanic(t *testing.T) {
	registry := NewRegistryBuilder().
		Register(&stubTool{
			name: "boom",
			execute: func(ctx context.Context, args map[string]interface{}) ToolResult {
				panic("exploded")
			},
		}).
		Build()

	result := registry.Dispatch(context.Background(), "boom", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "exploded")
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	registry := NewRegistryBuilder().
		Register(&stubTool{name: "dup", execute: func(ctx context.Context, args map[string]interface{}) ToolResult {
			return errorResult("dup", "old", 0)
		}}).
		Register(&stubTool{name: "dup"}).
		Build()

	result := registry.Dispatch(context.Background(), "dup", nil)
	assert.True(t, result.Success)
}

func TestRegistryDescribe(t *testing.T) {
	registry := NewRegistryBuilder().
		Register(&stubTool{name: "zulu"}).
		Register(&stubTool{name: "alpha"}).
		Build()

	catalogue := registry.Describe()
	require.NotEmpty(t, catalogue)
	assert.Contains(t, catalogue, "- alpha: stub tool alpha")
	assert.Contains(t, catalogue, "value (string, required): input value")
	// Catalogue is sorted by name.
	assert.Less(t, strings.Index(catalogue, "alpha"), strings.Index(catalogue, "zulu"))
	assert.Equal(t, []string{"alpha", "zulu"}, registry.Names())
}
