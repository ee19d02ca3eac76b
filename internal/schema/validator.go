package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator validates service request/response text payloads against the
// JSON-schema projection for a TypeName, compiled and cached by TypeName.
type Validator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate parses payload as JSON and checks it against entry's projected
// JSON-schema, compiling (and caching) the schema on first use.
func (v *Validator) Validate(payload []byte, entry *Entry, registry *Registry) error {
	var payloadJSON interface{}
	if err := json.Unmarshal(payload, &payloadJSON); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}

	compiled, err := v.compileFor(entry, registry)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", entry.TypeName, err)
	}

	if err := compiled.Validate(payloadJSON); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func (v *Validator) compileFor(entry *Entry, registry *Registry) (*jsonschema.Schema, error) {
	v.mu.RLock()
	if compiled, ok := v.compiled[entry.TypeName]; ok {
		v.mu.RUnlock()
		return compiled, nil
	}
	v.mu.RUnlock()

	projection := registry.JSONSchema(entry)
	definition, err := json.Marshal(projection)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(entry.TypeName+".json", bytes.NewReader(definition)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(entry.TypeName + ".json")
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.compiled[entry.TypeName] = compiled
	v.mu.Unlock()
	return compiled, nil
}

// ClearCache drops all compiled schemas, forcing recompilation on next use.
func (v *Validator) ClearCache() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.compiled = make(map[string]*jsonschema.Schema)
}
