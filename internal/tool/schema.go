// Package tool provides the schema-described capability registry the planner
// and executor run against.
package tool

import (
	"fmt"
	"sort"
)

// Param describes one tool parameter.
type Param struct {
	Type        string   `json:"type"` // string, number, boolean, array, object
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Schema declares a tool's parameters. Validation checks that every required
// parameter is present; unknown parameters pass through untouched so tools can
// accept provider-specific extras.
type Schema struct {
	Params map[string]Param `json:"params"`
}

// SchemaBuilder builds a Schema fluently.
type SchemaBuilder struct {
	params map[string]Param
}

// NewSchema creates an empty schema builder.
func NewSchema() *SchemaBuilder {
	return &SchemaBuilder{params: make(map[string]Param)}
}

// Param adds a parameter.
func (b *SchemaBuilder) Param(name, paramType, description string, required bool) *SchemaBuilder {
	b.params[name] = Param{Type: paramType, Description: description, Required: required}
	return b
}

// EnumParam adds a string parameter constrained to a fixed value set.
func (b *SchemaBuilder) EnumParam(name, description string, values []string, required bool) *SchemaBuilder {
	b.params[name] = Param{Type: "string", Description: description, Required: required, Enum: values}
	return b
}

// Build returns the finished schema.
func (b *SchemaBuilder) Build() Schema {
	return Schema{Params: b.params}
}

// InvalidParamsError reports arguments that failed schema validation.
type InvalidParamsError struct {
	Tool    string
	Missing []string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid params for tool %q: missing required %v", e.Tool, e.Missing)
}

// Validate checks params against the schema. Returns nil when every required
// parameter is present and non-nil.
func (s Schema) Validate(toolName string, params map[string]any) error {
	var missing []string
	for name, p := range s.Params {
		if !p.Required {
			continue
		}
		v, ok := params[name]
		if !ok || v == nil {
			missing = append(missing, name)
			continue
		}
		if str, isStr := v.(string); isStr && str == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &InvalidParamsError{Tool: toolName, Missing: missing}
	}
	return nil
}
