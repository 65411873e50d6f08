// internal/server/schema.go
package server

import (
	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/invopop/jsonschema"
)

var reflector = &jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
}

// inputSchema derives a tool's input schema from its params struct. Fields
// without omitempty are required. A nil params takes no arguments.
func inputSchema(params any) protocol.InputSchema {
	schema := protocol.InputSchema{Type: protocol.Object}
	if params == nil {
		return schema
	}

	reflected := reflector.Reflect(params)
	if reflected.Properties != nil {
		schema.Properties = make(map[string]interface{}, reflected.Properties.Len())
		for pair := reflected.Properties.Oldest(); pair != nil; pair = pair.Next() {
			schema.Properties[pair.Key] = pair.Value
		}
	}
	schema.Required = reflected.Required

	return schema
}
