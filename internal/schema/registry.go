package schema

import (
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Registry resolves TypeNames to Entries in two tiers: (1) descriptors
// observed from bus publishers and registered explicitly, (2) a
// process-wide static pool populated at startup. The cache is
// RWMutex-guarded: reads take a shared lock, writes an exclusive one.
type Registry struct {
	log zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
}

// New constructs an empty Registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		log:     log,
		entries: make(map[string]*Entry),
	}
}

// RegisterPrototype registers a Go-compiled proto message type into the
// static pool (tier 2), computing its descriptor-set closure and JSON
// schema projection up front.
func (r *Registry) RegisterPrototype(msg proto.Message) (*Entry, error) {
	desc := msg.ProtoReflect().Descriptor()
	return r.registerDescriptor(desc)
}

// RegisterDescriptor registers a raw, transitively-closed descriptor set
// learned at runtime (from an observed bus publisher or a log file) into
// tier 1. Fails with DuplicateIncompatibleError if typeName is already
// registered with a different descriptor.
func (r *Registry) RegisterDescriptor(typeName string, descriptorSet []byte) (*Entry, error) {
	files, err := filesFromSet(descriptorSet)
	if err != nil {
		return nil, err
	}
	desc, err := findMessage(files, typeName)
	if err != nil {
		return nil, UnknownTypeError{TypeName: typeName}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[typeName]; ok {
		if !proto.Equal(protodesc.ToFileDescriptorProto(existing.Descriptor.ParentFile()),
			protodesc.ToFileDescriptorProto(desc.ParentFile())) {
			return nil, DuplicateIncompatibleError{TypeName: typeName}
		}
		return existing, nil
	}

	entry := &Entry{
		TypeName:      typeName,
		Descriptor:    desc,
		DescriptorSet: descriptorSet,
	}
	r.entries[typeName] = entry
	r.log.Debug().Str("type", typeName).Msg("registered descriptor into schema registry")
	return entry, nil
}

func (r *Registry) registerDescriptor(desc protoreflect.MessageDescriptor) (*Entry, error) {
	typeName := string(desc.FullName())

	r.mu.RLock()
	if existing, ok := r.entries[typeName]; ok {
		r.mu.RUnlock()
		return existing, nil
	}
	r.mu.RUnlock()

	setBytes, err := closure(desc.ParentFile())
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		TypeName:      typeName,
		Descriptor:    desc,
		DescriptorSet: setBytes,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[typeName]; ok {
		return existing, nil
	}
	r.entries[typeName] = entry
	return entry, nil
}

// Resolve returns the Entry for typeName, resolving the tier-1/tier-2
// cache; fails with UnknownTypeError if neither tier has it. The caller
// (Discovery Engine, typically) is responsible for feeding tier 1 via
// RegisterDescriptor when a bus publisher carries its own descriptor.
func (r *Registry) Resolve(typeName string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[typeName]
	if !ok {
		return nil, UnknownTypeError{TypeName: typeName}
	}
	return entry, nil
}

// JSONSchema returns (and lazily caches) the JSON-schema projection for an
// entry's message descriptor.
func (r *Registry) JSONSchema(entry *Entry) map[string]any {
	r.mu.RLock()
	if entry.JSONSchema != nil {
		defer r.mu.RUnlock()
		return entry.JSONSchema
	}
	r.mu.RUnlock()

	projected := projectJSONSchema(entry.Descriptor)

	r.mu.Lock()
	entry.JSONSchema = projected
	r.mu.Unlock()
	return projected
}

// List returns every currently-resolved TypeName, for diagnostics.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
