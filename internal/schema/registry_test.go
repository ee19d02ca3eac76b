package schema

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Tests use descriptorpb.DescriptorProto itself as a stand-in "known"
// message type — it's a real, already-compiled proto message, so the
// descriptor-closure and dynamic-message machinery is exercised against
// real reflection data without needing a project-specific .proto.

func TestRegisterPrototypeAndResolve(t *testing.T) {
	reg := New(zerolog.Nop())

	msg := &descriptorpb.DescriptorProto{Name: proto.String("Example")}
	entry, err := reg.RegisterPrototype(msg)
	require.NoError(t, err)
	require.Equal(t, "google.protobuf.DescriptorProto", entry.TypeName)
	require.NotEmpty(t, entry.DescriptorSet)

	resolved, err := reg.Resolve("google.protobuf.DescriptorProto")
	require.NoError(t, err)
	require.Same(t, entry, resolved)
}

func TestResolveUnknownType(t *testing.T) {
	reg := New(zerolog.Nop())
	_, err := reg.Resolve("does.not.Exist")
	require.Error(t, err)
	require.IsType(t, UnknownTypeError{}, err)
}

func TestDescriptorClosureRoundTrips(t *testing.T) {
	reg := New(zerolog.Nop())
	msg := &descriptorpb.FileDescriptorProto{}
	entry, err := reg.RegisterPrototype(msg)
	require.NoError(t, err)

	files, err := filesFromSet(entry.DescriptorSet)
	require.NoError(t, err)

	found, err := findMessage(files, entry.TypeName)
	require.NoError(t, err)
	require.Equal(t, entry.Descriptor.FullName(), found.FullName())
}

func TestRegisterDescriptorIsIdempotentForIdenticalDescriptor(t *testing.T) {
	reg := New(zerolog.Nop())

	good := &descriptorpb.DescriptorProto{}
	setBytes, err := closure(good.ProtoReflect().Descriptor().ParentFile())
	require.NoError(t, err)

	first, err := reg.RegisterDescriptor("google.protobuf.DescriptorProto", setBytes)
	require.NoError(t, err)

	second, err := reg.RegisterDescriptor("google.protobuf.DescriptorProto", setBytes)
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestJSONSchemaProjection(t *testing.T) {
	reg := New(zerolog.Nop())
	msg := &descriptorpb.DescriptorProto{}
	entry, err := reg.RegisterPrototype(msg)
	require.NoError(t, err)

	proj := reg.JSONSchema(entry)
	require.Equal(t, "object", proj["type"])
	props, ok := proj["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "name")
}
