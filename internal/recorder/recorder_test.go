package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus/memorybus"
	"github.com/flowmesh/foxbridge/internal/logfile"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

func TestRecorderSingleTopicRoundTrip(t *testing.T) {
	b := memorybus.New()
	reg := schema.New(zerolog.Nop())
	entry, err := reg.RegisterPrototype(&descriptorpb.DescriptorProto{})
	require.NoError(t, err)
	b.SeedType("/a", entry.TypeName, entry.DescriptorSet)
	// A publisher handle makes /a publisher-backed from discovery's first tick.
	pub, err := b.AttachWriter("/a", entry.TypeName)
	require.NoError(t, err)
	defer pub.Close()

	stem := filepath.Join(t.TempDir(), "session")
	cfg := Config{
		OutputStem:        stem,
		DiscoveryInterval: 10 * time.Millisecond,
		QueueCapacity:     64,
		Codec:             "none",
	}
	r := New(b, reg, cfg, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Let discovery pick up /a, then publish after it has a writer-backed
	// reader attached.
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.readers) == 1
	}, time.Second, 5*time.Millisecond)

	for i := 0; i < 10; i++ {
		msg, err := proto.Marshal(&descriptorpb.DescriptorProto{Name: proto.String("m")})
		require.NoError(t, err)
		b.Publish("/a", entry.TypeName, msg)
	}

	require.Eventually(t, func() bool {
		messages, _ := r.Stats()
		return messages == 10
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	path := stem + ".mcap"
	_, err = os.Stat(path)
	require.NoError(t, err)

	reader, err := logfile.Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer reader.Close()

	summary, err := reader.Summary()
	require.NoError(t, err)
	require.EqualValues(t, 10, summary.MessageCount)
}

func TestRecorderRotatesSegmentsOnInterval(t *testing.T) {
	b := memorybus.New()
	reg := schema.New(zerolog.Nop())
	entry, err := reg.RegisterPrototype(&descriptorpb.DescriptorProto{})
	require.NoError(t, err)
	b.SeedType("/a", entry.TypeName, entry.DescriptorSet)

	stem := filepath.Join(t.TempDir(), "session")
	cfg := Config{
		OutputStem:        stem,
		DiscoveryInterval: 10 * time.Millisecond,
		SegmentInterval:   20 * time.Millisecond,
		QueueCapacity:     64,
		Codec:             "none",
	}
	r := New(b, reg, cfg, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		msg, err := proto.Marshal(&descriptorpb.DescriptorProto{Name: proto.String("seed")})
		require.NoError(t, err)
		b.Publish("/a", entry.TypeName, msg)
		messages, _ := r.Stats()
		return messages >= 1
	}, time.Second, 5*time.Millisecond)

	// Keep publishing well past SegmentInterval so the poll loop observes
	// rotationDue and cuts over to a second segment file.
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		msg, err := proto.Marshal(&descriptorpb.DescriptorProto{Name: proto.String("m")})
		require.NoError(t, err)
		b.Publish("/a", entry.TypeName, msg)
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	require.NoError(t, <-done)

	first := stem + "_0.mcap"
	second := stem + "_1.mcap"
	_, err = os.Stat(first)
	require.NoError(t, err)
	_, err = os.Stat(second)
	require.NoError(t, err)

	reader, err := logfile.Open(first, zerolog.Nop())
	require.NoError(t, err)
	defer reader.Close()
	summary, err := reader.Summary()
	require.NoError(t, err)
	require.Greater(t, summary.MessageCount, uint64(0))
}

func TestQueueDropsOldestSameTopicOnOverflow(t *testing.T) {
	q := NewQueue(2)
	var dropped []string
	q.OnDrop = func(topic string) { dropped = append(dropped, topic) }

	q.Enqueue("/a", "t", nil, 1, []byte("1"))
	q.Enqueue("/a", "t", nil, 2, []byte("2"))
	q.Enqueue("/a", "t", nil, 3, []byte("3")) // evicts "1"

	require.Equal(t, []string{"/a"}, dropped)

	msg, ok := q.Dequeue(time.Millisecond)
	require.True(t, ok)
	require.Equal(t, []byte("2"), msg.payload)

	msg, ok = q.Dequeue(time.Millisecond)
	require.True(t, ok)
	require.Equal(t, []byte("3"), msg.payload)

	_, ok = q.Dequeue(10 * time.Millisecond)
	require.False(t, ok)
}

func TestQueueMergesAcrossTopicsByArrivalOrder(t *testing.T) {
	q := NewQueue(4)
	q.Enqueue("/a", "t", nil, 1, []byte("a1"))
	q.Enqueue("/b", "t", nil, 1, []byte("b1"))
	q.Enqueue("/a", "t", nil, 2, []byte("a2"))

	var order []string
	for i := 0; i < 3; i++ {
		msg, ok := q.Dequeue(time.Millisecond)
		require.True(t, ok)
		order = append(order, string(msg.payload))
	}
	require.Equal(t, []string{"a1", "b1", "a2"}, order)
}
