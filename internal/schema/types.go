// Package schema implements the Schema Registry: resolving a TypeName to
// an instantiable message prototype, a transitively-closed descriptor set,
// and a JSON-schema projection, via a cached, RWMutex-guarded resolver.
package schema

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Entry is a resolved TypeName: an instantiable prototype plus its exported
// forms. Immutable once constructed, apart from the lazily cached JSONSchema.
type Entry struct {
	TypeName      string
	Descriptor    protoreflect.MessageDescriptor
	DescriptorSet []byte         // serialized descriptorpb.FileDescriptorSet, BFS-deduped
	JSONSchema    map[string]any // projection, built lazily and cached
}

// NewPrototype constructs a new, empty dynamic message of this entry's type.
func (e *Entry) NewPrototype() proto.Message {
	return newDynamic(e.Descriptor)
}
