package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus/memorybus"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/descriptorpb"
)

func TestEngineEmitsOnTopicFoundOncePerDebounce(t *testing.T) {
	b := memorybus.New()
	reg := schema.New(zerolog.Nop())
	msg := &descriptorpb.DescriptorProto{}
	entry, err := reg.RegisterPrototype(msg)
	require.NoError(t, err)

	b.SeedType("/a", entry.TypeName, entry.DescriptorSet)
	b.Publish("/a", entry.TypeName, []byte{})

	var mu sync.Mutex
	var found []TopicFound
	eng := New(b, reg, AllowList{}, time.Millisecond, zerolog.Nop())
	eng.OnTopicFound = func(tf TopicFound) {
		mu.Lock()
		found = append(found, tf)
		mu.Unlock()
	}

	eng.tick()
	eng.tick()
	eng.tick()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, found, 1)
	require.Equal(t, "/a", found[0].Topic)
}

func TestEngineEmitsOnTopicLost(t *testing.T) {
	b := memorybus.New()
	reg := schema.New(zerolog.Nop())
	msg := &descriptorpb.DescriptorProto{}
	entry, err := reg.RegisterPrototype(msg)
	require.NoError(t, err)
	b.SeedType("/a", entry.TypeName, entry.DescriptorSet)
	b.Publish("/a", entry.TypeName, []byte{})

	eng := New(b, reg, AllowList{}, time.Millisecond, zerolog.Nop())
	var lost []string
	eng.OnTopicLost = func(topic string) { lost = append(lost, topic) }

	eng.tick()
	eng.previous = map[string]struct{}{"/a": {}, "/stale": {}}
	eng.tick()

	require.Contains(t, lost, "/stale")
}

func TestEngineSkipsUnresolvableTypeAndRetries(t *testing.T) {
	b := memorybus.New()
	reg := schema.New(zerolog.Nop())
	b.SeedType("/unresolvable", "not.Registered", nil)
	b.Publish("/unresolvable", "not.Registered", []byte{})

	eng := New(b, reg, AllowList{}, time.Millisecond, zerolog.Nop())
	var found int
	eng.OnTopicFound = func(TopicFound) { found++ }

	eng.tick()
	require.Equal(t, 0, found)
	require.Contains(t, eng.pendingRetry, "/unresolvable")
}

func TestEngineRunStopsOnContextCancel(t *testing.T) {
	b := memorybus.New()
	reg := schema.New(zerolog.Nop())
	eng := New(b, reg, AllowList{}, time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
