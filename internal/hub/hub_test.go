package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus/memorybus"
	"github.com/flowmesh/foxbridge/internal/discovery"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/flowmesh/foxbridge/internal/translator"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

func setup(t *testing.T) (*Hub, *memorybus.Bus, *schema.Registry, string) {
	b := memorybus.New()
	reg := schema.New(zerolog.Nop())
	tr := translator.New(reg)
	entry, err := reg.RegisterPrototype(&descriptorpb.DescriptorProto{})
	require.NoError(t, err)

	h := New(b, reg, tr, nil, time.Second, zerolog.Nop())
	h.OnTopicFound(discovery.TopicFound{Topic: "/a", TypeName: entry.TypeName})
	return h, b, reg, entry.TypeName
}

func TestSubscribeFanoutToMultipleSinks(t *testing.T) {
	h, b, _, typeName := setup(t)

	var mu sync.Mutex
	var got1, got2 [][]byte
	_, err := h.OnExternalSubscribe("/a", VariantRaw, func(topic string, v Variant, b []byte) {
		mu.Lock()
		got1 = append(got1, b)
		mu.Unlock()
	})
	require.NoError(t, err)
	_, err = h.OnExternalSubscribe("/a", VariantRaw, func(topic string, v Variant, b []byte) {
		mu.Lock()
		got2 = append(got2, b)
		mu.Unlock()
	})
	require.NoError(t, err)

	orig := &descriptorpb.DescriptorProto{Name: proto.String("X")}
	wireBytes, err := proto.Marshal(orig)
	require.NoError(t, err)
	b.Publish("/a", typeName, wireBytes)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got1) == 1 && len(got2) == 1
	}, time.Second, time.Millisecond)
}

func TestUnsubscribeUnknownSubscriber(t *testing.T) {
	h, _, _, _ := setup(t)
	err := h.OnExternalUnsubscribe("/a", VariantRaw, "nonexistent")
	require.Error(t, err)
	require.IsType(t, NotSubscribedError{}, err)
}

func TestAdvertisePublishUnadvertise(t *testing.T) {
	h, _, _, typeName := setup(t)

	err := h.OnExternalPublish("/a", `{}`)
	require.Error(t, err)
	require.IsType(t, NotAdvertisedError{}, err)

	require.NoError(t, h.OnExternalAdvertise("/a", typeName))
	require.NoError(t, h.OnExternalPublish("/a", `{"name":"from-sink"}`))
	require.NoError(t, h.OnExternalUnadvertise("/a"))

	err = h.OnExternalPublish("/a", `{}`)
	require.Error(t, err)
	require.IsType(t, NotAdvertisedError{}, err)
}

func TestServiceCallRoundTrip(t *testing.T) {
	b := memorybus.New()
	reg := schema.New(zerolog.Nop())
	tr := translator.New(reg)
	reqEntry, err := reg.RegisterPrototype(&descriptorpb.DescriptorProto{})
	require.NoError(t, err)
	respEntry, err := reg.RegisterPrototype(&descriptorpb.FieldDescriptorProto{})
	require.NoError(t, err)

	b.RegisterService("/echo", func(reqBytes []byte) ([]byte, error) {
		resp := &descriptorpb.FieldDescriptorProto{Name: proto.String("replied")}
		return proto.Marshal(resp)
	})

	h := New(b, reg, tr, nil, time.Second, zerolog.Nop())
	h.RegisterService(discovery.ServiceFound{
		Name:             "/echo",
		RequestTypeName:  reqEntry.TypeName,
		ResponseTypeName: respEntry.TypeName,
	})

	respText, err := h.OnServiceCall(context.Background(), "/echo", `{"name":"ping"}`)
	require.NoError(t, err)
	require.Contains(t, respText, "replied")
}

func TestServiceCallUnknownService(t *testing.T) {
	h, _, _, _ := setup(t)
	_, err := h.OnServiceCall(context.Background(), "/nope", `{}`)
	require.Error(t, err)
	require.IsType(t, UnknownServiceError{}, err)
}

func TestTopicLostWithoutInterestFiresOnChannelClosed(t *testing.T) {
	h, _, _, _ := setup(t)

	var closed []string
	h.OnChannelClosed = func(topic string) { closed = append(closed, topic) }

	h.OnTopicLost("/a")
	require.Equal(t, []string{"/a"}, closed)
	require.NotContains(t, h.topics, "/a")
}

func TestLastUnsubscribeAfterTopicLostFiresOnChannelClosed(t *testing.T) {
	h, _, _, _ := setup(t)

	var closed []string
	h.OnChannelClosed = func(topic string) { closed = append(closed, topic) }

	subID, err := h.OnExternalSubscribe("/a", VariantRaw, func(string, Variant, []byte) {})
	require.NoError(t, err)

	h.OnTopicLost("/a")
	require.Empty(t, closed, "topic still has a subscriber, must not be destroyed yet")
	require.Contains(t, h.topics, "/a")

	require.NoError(t, h.OnExternalUnsubscribe("/a", VariantRaw, subID))
	require.Equal(t, []string{"/a"}, closed)
	require.NotContains(t, h.topics, "/a")
}

func TestLastUnadvertiseAfterTopicLostFiresOnChannelClosed(t *testing.T) {
	h, _, _, typeName := setup(t)

	var closed []string
	h.OnChannelClosed = func(topic string) { closed = append(closed, topic) }

	require.NoError(t, h.OnExternalAdvertise("/a", typeName))

	h.OnTopicLost("/a")
	require.Empty(t, closed, "topic still has a writer, must not be destroyed yet")
	require.Contains(t, h.topics, "/a")

	require.NoError(t, h.OnExternalUnadvertise("/a"))
	require.Equal(t, []string{"/a"}, closed)
	require.NotContains(t, h.topics, "/a")
}
