// Package tools is the tool-dispatch gateway: a registry of named tools with
// declared input schemas, argument validation, and a dispatcher that turns
// every handler outcome into a Result.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Property types accepted in a Schema.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Property declares one named argument of a tool.
type Property struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// TypeName returns the declared type, or TypeString when none is declared.
func (p Property) TypeName() string {
	if p.Type == "" {
		return TypeString
	}
	return p.Type
}

// Schema is the ordered list of a tool's declared arguments.
type Schema struct {
	Properties []Property
}

// RequiredFields returns the names of required properties in declaration order.
func (s Schema) RequiredFields() []string {
	var names []string
	for _, p := range s.Properties {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Definition describes a tool to callers.
type Definition struct {
	Name        string
	Description string
	Schema      Schema
	// ReadOnly marks tools with no side effects outside the process.
	ReadOnly bool
}

// MCPTool converts the definition into an mcp-go tool descriptor, which is
// also the JSON shape used for capability announcements.
func (d Definition) MCPTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(d.Description),
		mcp.WithReadOnlyHintAnnotation(d.ReadOnly),
		mcp.WithDestructiveHintAnnotation(!d.ReadOnly),
	}
	for _, p := range d.Schema.Properties {
		opts = append(opts, propertyOption(p))
	}
	return mcp.NewTool(d.Name, opts...)
}

func propertyOption(p Property) mcp.ToolOption {
	var opts []mcp.PropertyOption
	if p.Description != "" {
		opts = append(opts, mcp.Description(p.Description))
	}
	if p.Required {
		opts = append(opts, mcp.Required())
	}

	switch p.Type {
	case TypeNumber:
		return mcp.WithNumber(p.Name, opts...)
	case TypeInteger:
		opts = append(opts, func(schema map[string]any) { schema["type"] = TypeInteger })
		return mcp.WithNumber(p.Name, opts...)
	case TypeBoolean:
		return mcp.WithBoolean(p.Name, opts...)
	case TypeObject:
		return mcp.WithObject(p.Name, opts...)
	case TypeArray:
		return mcp.WithArray(p.Name, opts...)
	default:
		return mcp.WithString(p.Name, opts...)
	}
}

// Arguments is a decoded JSON argument object.
type Arguments map[string]any

// String returns the named argument as a string, or "" when absent or not a
// string. Handlers may rely on validated required strings being present.
func (a Arguments) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Handler runs a tool. It receives validated arguments and returns the text
// payload. Errors are normalized by the Dispatcher.
type Handler func(ctx context.Context, args Arguments) (string, error)

// Tool pairs a definition with its handler.
type Tool struct {
	Definition
	Handler Handler
}

// Call is one request to run a tool.
type Call struct {
	Name      string
	Arguments Arguments
}
