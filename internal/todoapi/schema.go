package todoapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Only the identifier is required; servers may add any other field.
const todoSchemaJSON = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id":          {"type": ["integer", "string"]},
    "description": {"type": ["string", "null"]},
    "category":    {"type": ["string", "null"]},
    "priority":    {"type": ["integer", "null"]},
    "completed":   {"type": ["boolean", "null"]},
    "archived":    {"type": ["boolean", "null"]},
    "dueDate":     {"type": ["string", "null"]},
    "tags":        {"type": ["array", "null"], "items": {"type": "string"}},
    "comments": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {"content": {"type": "string"}}
      }
    }
  }
}`

var (
	todoSchema     = jsonschema.MustCompileString("https://tada.local/schemas/todo.json", todoSchemaJSON)
	todoListSchema = jsonschema.MustCompileString("https://tada.local/schemas/todos.json",
		`{"type": "array", "items": `+todoSchemaJSON+`}`)
)

// validate checks a response body against schema before it is decoded.
func validate(schema *jsonschema.Schema, body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
