package tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

var knownTypes = map[string]bool{
	TypeString: true, TypeNumber: true, TypeInteger: true,
	TypeBoolean: true, TypeObject: true, TypeArray: true,
}

// Registry is the fixed set of tools served by the process.
// It is built once and never mutated, so it is safe for concurrent reads.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry validates and registers tools in the given order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools: make([]Tool, 0, len(tools)),
		index: make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		if err := validateTool(t); err != nil {
			return nil, err
		}
		if _, dup := r.index[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		r.index[t.Name] = len(r.tools)
		r.tools = append(r.tools, withDefaultTypes(t))
	}
	return r, nil
}

func validateTool(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Name)
	}
	seen := make(map[string]bool, len(t.Schema.Properties))
	for _, p := range t.Schema.Properties {
		if p.Name == "" {
			return fmt.Errorf("tool %q has a property with empty name", t.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %q declares property %q twice", t.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Type != "" && !knownTypes[p.Type] {
			return fmt.Errorf("tool %q property %q has unsupported type %q", t.Name, p.Name, p.Type)
		}
	}
	return nil
}

// withDefaultTypes copies t with every untyped property declared as a string.
func withDefaultTypes(t Tool) Tool {
	props := make([]Property, len(t.Schema.Properties))
	for i, p := range t.Schema.Properties {
		p.Type = p.TypeName()
		props[i] = p
	}
	t.Schema.Properties = props
	return t
}

// List returns every definition in registration order.
func (r *Registry) List() []Definition {
	defs := make([]Definition, len(r.tools))
	for i, t := range r.tools {
		defs[i] = t.Definition
	}
	return defs
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// Resolve looks a tool up by name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// MCPTools returns the MCP descriptors for every tool in registration order.
func (r *Registry) MCPTools() []mcp.Tool {
	out := make([]mcp.Tool, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.MCPTool()
	}
	return out
}
