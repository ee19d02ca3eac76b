package translator

import (
	"testing"

	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

func setup(t *testing.T) (*schema.Registry, *Translator, string) {
	reg := schema.New(zerolog.Nop())
	msg := &descriptorpb.DescriptorProto{Name: proto.String("Example")}
	entry, err := reg.RegisterPrototype(msg)
	require.NoError(t, err)
	return reg, New(reg), entry.TypeName
}

func TestToCanonicalRoundTrip(t *testing.T) {
	_, tr, typeName := setup(t)

	orig := &descriptorpb.DescriptorProto{Name: proto.String("Widget")}
	wireBytes, err := proto.Marshal(orig)
	require.NoError(t, err)

	canonical, err := tr.ToCanonical(wireBytes, typeName)
	require.NoError(t, err)

	var decoded descriptorpb.DescriptorProto
	require.NoError(t, proto.Unmarshal(canonical, &decoded))
	require.Equal(t, "Widget", decoded.GetName())
}

func TestTextRoundTrip(t *testing.T) {
	_, tr, typeName := setup(t)

	orig := &descriptorpb.DescriptorProto{Name: proto.String("Widget")}
	wireBytes, err := proto.Marshal(orig)
	require.NoError(t, err)

	text, err := tr.ToText(wireBytes, typeName)
	require.NoError(t, err)
	require.Contains(t, text, "Widget")

	roundTripped, err := tr.FromText(text, typeName)
	require.NoError(t, err)
	require.Equal(t, wireBytes, roundTripped)
}

func TestFromTextMalformed(t *testing.T) {
	_, tr, typeName := setup(t)
	_, err := tr.FromText("{not json", typeName)
	require.Error(t, err)
	require.IsType(t, MalformedTextError{}, err)
}

func TestConverterRegistrationAndConvert(t *testing.T) {
	_, tr, typeName := setup(t)
	require.False(t, tr.HasConverter(typeName))

	tr.RegisterConverter(typeName, "target.Type", func(b []byte) ([]byte, error) {
		return append([]byte("converted:"), b...), nil
	})
	require.True(t, tr.HasConverter(typeName))

	target, ok := tr.ConverterTarget(typeName)
	require.True(t, ok)
	require.Equal(t, "target.Type", target)

	out, err := tr.Convert([]byte("payload"), typeName)
	require.NoError(t, err)
	require.Equal(t, "converted:payload", string(out))
}

func TestConvertWithoutConverter(t *testing.T) {
	_, tr, typeName := setup(t)
	_, err := tr.Convert([]byte("x"), typeName)
	require.Error(t, err)
	require.IsType(t, NoConverterError{}, err)
}
