package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"
)

// RegistryBuilder collects tools before the registry is sealed. The last
// registration wins when two tools share a name.
type RegistryBuilder struct {
	tools map[string]Tool
}

func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{tools: make(map[string]Tool)}
}

func (b *RegistryBuilder) Register(tool Tool) *RegistryBuilder {
	name := tool.GetName()
	if name == "" {
		slog.Warn("Skipping tool with empty name")
		return b
	}
	if _, exists := b.tools[name]; exists {
		slog.Debug("Replacing previously registered tool", "tool", name)
	}
	b.tools[name] = tool
	return b
}

// Build seals the builder into an immutable registry. The catalogue text
// is rendered once here so Describe is just a field read.
func (b *RegistryBuilder) Build() *Registry {
	tools := make(map[string]Tool, len(b.tools))
	for name, t := range b.tools {
		tools[name] = t
	}
	return &Registry{
		tools:     tools,
		catalogue: renderCatalogue(tools),
	}
}

// Registry holds the sealed tool set. It has no mutation methods, so it is
// safe for concurrent dispatch without locking.
type Registry struct {
	tools     map[string]Tool
	catalogue string
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) List() []ToolInfo {
	infos := make([]ToolInfo, 0, len(r.tools))
	for _, name := range r.Names() {
		infos = append(infos, r.tools[name].GetInfo())
	}
	return infos
}

// Describe returns the human-readable capability catalogue that gets
// embedded into the model's system prompt.
func (r *Registry) Describe() string {
	return r.catalogue
}

// Dispatch executes the named tool. It never panics and never returns a Go
// error: unknown tools, tool errors and tool panics all come back as failed
// results the agent loop can feed to the model.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]interface{}) (result ToolResult) {
	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Tool panicked", "tool", name, "panic", rec, "stack", string(debug.Stack()))
			result = errorResult(name, fmt.Sprintf("tool %s failed: %v", name, rec), time.Since(started))
		}
	}()

	tool, ok := r.tools[name]
	if !ok {
		return errorResult(name, fmt.Sprintf("tool %s not found", name), time.Since(started))
	}
	return tool.Execute(ctx, args)
}

func renderCatalogue(tools map[string]Tool) string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		info := tools[name].GetInfo()
		sb.WriteString(fmt.Sprintf("- %s: %s\n", info.Name, info.Description))
		for _, p := range info.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			sb.WriteString(fmt.Sprintf("    %s (%s, %s): %s\n", p.Name, p.Type, required, p.Description))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
