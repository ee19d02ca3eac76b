// Package translator implements the Message Translator: converting opaque
// payloads between wire-bytes, canonical-bytes, and a structured text form,
// plus process-wide, write-once converter registration.
package translator

import (
	"fmt"

	"github.com/flowmesh/foxbridge/internal/schema"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ConverterFunc maps a source TypeName's wire-bytes to a target TypeName's
// wire-bytes.
type ConverterFunc func(wireBytes []byte) ([]byte, error)

// converterEntry represents a converter: either absent, or a user function
// bound to a target TypeName. A plain struct keyed by source TypeName in a
// map, rather than an interface hierarchy.
type converterEntry struct {
	targetType string
	fn         ConverterFunc
}

// Translator holds the Schema Registry it resolves prototypes against and
// the write-once converter map.
type Translator struct {
	registry   *schema.Registry
	converters map[string]converterEntry // keyed by source TypeName
}

// New constructs a Translator bound to a Schema Registry.
func New(registry *schema.Registry) *Translator {
	return &Translator{
		registry:   registry,
		converters: make(map[string]converterEntry),
	}
}

// RegisterConverter installs a user-supplied translator producing a
// different TypeName. Converters are registered process-wide at startup;
// the map is read-only afterward, so the hot path needs no lock.
func (t *Translator) RegisterConverter(sourceType, targetType string, fn ConverterFunc) {
	t.converters[sourceType] = converterEntry{targetType: targetType, fn: fn}
}

// HasConverter reports whether typeName has a registered converter. A topic
// with a converter is exposed to the sink as two channels.
func (t *Translator) HasConverter(typeName string) bool {
	_, ok := t.converters[typeName]
	return ok
}

// ConverterTarget returns the TypeName a converter for sourceType produces.
func (t *Translator) ConverterTarget(sourceType string) (string, bool) {
	entry, ok := t.converters[sourceType]
	if !ok {
		return "", false
	}
	return entry.targetType, true
}

// Convert runs the registered converter for sourceType over wireBytes,
// returning the converted bytes under the converter's target TypeName.
func (t *Translator) Convert(wireBytes []byte, sourceType string) ([]byte, error) {
	entry, ok := t.converters[sourceType]
	if !ok {
		return nil, NoConverterError{TypeName: sourceType}
	}
	return entry.fn(wireBytes)
}

// ToCanonical parses wireBytes into typeName's prototype and re-serializes,
// producing a stable, normalized encoding for external consumers.
func (t *Translator) ToCanonical(wireBytes []byte, typeName string) ([]byte, error) {
	entry, err := t.registry.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	msg := entry.NewPrototype()
	if err := proto.Unmarshal(wireBytes, msg); err != nil {
		return nil, MalformedBytesError{TypeName: typeName, Cause: err}
	}
	out, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("re-marshal %s: %w", typeName, err)
	}
	return out, nil
}

// textMarshalOptions preserves numeric enums and omits primitive defaults,
// so ToText→FromText round-trips without drifting the payload.
var textMarshalOptions = protojson.MarshalOptions{
	UseEnumNumbers:  true,
	EmitUnpopulated: false,
}

// ToText renders wireBytes as structured text (JSON) for service
// round-trips and text-preferring observers.
func (t *Translator) ToText(wireBytes []byte, typeName string) (string, error) {
	entry, err := t.registry.Resolve(typeName)
	if err != nil {
		return "", err
	}
	msg := entry.NewPrototype()
	if err := proto.Unmarshal(wireBytes, msg); err != nil {
		return "", MalformedBytesError{TypeName: typeName, Cause: err}
	}
	out, err := textMarshalOptions.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal %s to text: %w", typeName, err)
	}
	return string(out), nil
}

// FromText is the inverse of ToText. Fails with MalformedTextError on parse
// error.
func (t *Translator) FromText(text string, typeName string) ([]byte, error) {
	entry, err := t.registry.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	msg := entry.NewPrototype()
	if err := protojson.Unmarshal([]byte(text), msg); err != nil {
		return nil, MalformedTextError{TypeName: typeName, Cause: err}
	}
	out, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s to wire bytes: %w", typeName, err)
	}
	return out, nil
}
