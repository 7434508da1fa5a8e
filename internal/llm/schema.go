package llm

import (
	"context"
	"sort"
)

// ToolHandler executes a tool call. Args is the parsed, pruned argument
// map. A returned error becomes a structured error payload for the
// service, never a turn failure.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// Tool is a callable capability exposed to the completion service.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters"`
	Handler     ToolHandler `json:"-"`
}

// JSONSchema is the subset of JSON Schema the service accepts for tool
// parameters.
type JSONSchema struct {
	Type                 string                 `json:"type"`
	Description          string                 `json:"description,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *bool                  `json:"additionalProperties,omitempty"`
}

// ObjectSchema builds an object schema from named properties.
func ObjectSchema(props map[string]*JSONSchema) *JSONSchema {
	return &JSONSchema{Type: "object", Properties: props}
}

// StringProp builds a string property.
func StringProp(desc string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: desc}
}

// NumberProp builds a number property.
func NumberProp(desc string) *JSONSchema {
	return &JSONSchema{Type: "number", Description: desc}
}

// IntProp builds an integer property.
func IntProp(desc string) *JSONSchema {
	return &JSONSchema{Type: "integer", Description: desc}
}

// BoolProp builds a boolean property.
func BoolProp(desc string) *JSONSchema {
	return &JSONSchema{Type: "boolean", Description: desc}
}

// EnumProp builds a string property restricted to the given values.
func EnumProp(desc string, values ...string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: desc, Enum: values}
}

// ArrayProp builds an array property with the given item schema.
func ArrayProp(desc string, items *JSONSchema) *JSONSchema {
	return &JSONSchema{Type: "array", Description: desc, Items: items}
}

// FunctionTool is a tool definition in the service's wire format.
type FunctionTool struct {
	Type        string      `json:"type"` // always "function"
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters"`
	Strict      bool        `json:"strict"`
}

// CompileTools converts registered tools into strict wire definitions.
// Strict mode requires every property to be listed as required and
// additional properties to be rejected, recursively. The input schemas
// are never mutated; compiling twice yields identical output.
func CompileTools(tools []Tool) []FunctionTool {
	out := make([]FunctionTool, 0, len(tools))
	for _, t := range tools {
		params := strictSchema(t.Parameters)
		if params == nil {
			params = strictSchema(ObjectSchema(nil))
		}
		out = append(out, FunctionTool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
			Strict:      true,
		})
	}
	return out
}

// strictSchema deep-copies s, forcing strict-mode constraints on every
// object node: required lists all property keys in sorted order and
// additionalProperties is false.
func strictSchema(s *JSONSchema) *JSONSchema {
	if s == nil {
		return nil
	}

	out := &JSONSchema{
		Type:        s.Type,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		out.Enum = append([]string(nil), s.Enum...)
	}
	if s.Items != nil {
		out.Items = strictSchema(s.Items)
	}
	if s.Type != "object" {
		return out
	}

	out.Properties = make(map[string]*JSONSchema, len(s.Properties))
	required := make([]string, 0, len(s.Properties))
	for name, prop := range s.Properties {
		out.Properties[name] = strictSchema(prop)
		required = append(required, name)
	}
	sort.Strings(required)
	out.Required = required
	f := false
	out.AdditionalProperties = &f
	return out
}
