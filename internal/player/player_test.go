package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus"
	"github.com/flowmesh/foxbridge/internal/bus/memorybus"
	"github.com/flowmesh/foxbridge/internal/logfile"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/flowmesh/foxbridge/internal/topicfilter"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

func writeFixture(t *testing.T, path string, count int) []byte {
	t.Helper()

	reg := schema.New(zerolog.Nop())
	entry, err := reg.RegisterPrototype(&descriptorpb.DescriptorProto{})
	require.NoError(t, err)

	w, err := logfile.NewWriter(path, logfile.NoneCodec{})
	require.NoError(t, err)

	var last []byte
	for i := 0; i < count; i++ {
		msg, err := proto.Marshal(&descriptorpb.DescriptorProto{Name: proto.String("m")})
		require.NoError(t, err)
		last = msg
		require.NoError(t, w.WriteMessage("/a", entry.TypeName, entry.DescriptorSet, int64(i)*int64(time.Millisecond), msg))
	}
	require.NoError(t, w.Close())
	return last
}

func TestPlayerReplaysEveryMessageAtUnboundedSpeed(t *testing.T) {
	path := t.TempDir() + "/fixture.mcap"
	writeFixture(t, path, 5)

	b := memorybus.New()
	reg := schema.New(zerolog.Nop())

	cfg := Config{InputPath: path, SpeedFactor: 1000}
	p := New(b, reg, cfg, nil, zerolog.Nop())

	var published int
	p.OnMessagePublished = func(string) { published++ }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	require.Equal(t, 5, published)
	require.EqualValues(t, 5, p.Stats())
}

func TestPlayerFiltersTopics(t *testing.T) {
	path := t.TempDir() + "/fixture.mcap"
	writeFixture(t, path, 3)

	b := memorybus.New()
	reg := schema.New(zerolog.Nop())

	cfg := Config{
		InputPath:   path,
		SpeedFactor: 1000,
		Filter:      topicfilter.Filter{Deny: []string{"/a"}},
	}
	p := New(b, reg, cfg, nil, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	require.Zero(t, p.Stats())
}

func TestPlayerPauseBlocksPublishUntilResumed(t *testing.T) {
	path := t.TempDir() + "/fixture.mcap"
	writeFixture(t, path, 3)

	b := memorybus.New()
	reg := schema.New(zerolog.Nop())

	cfg := Config{InputPath: path, SpeedFactor: 1000}
	p := New(b, reg, cfg, nil, zerolog.Nop())
	p.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, p.Stats(), "paused player must not publish")

	p.Resume()
	require.Eventually(t, func() bool { return p.Stats() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestPlayerStepPublishesExactlyOneMessage(t *testing.T) {
	path := t.TempDir() + "/fixture.mcap"
	writeFixture(t, path, 3)

	b := memorybus.New()
	reg := schema.New(zerolog.Nop())

	cfg := Config{InputPath: path, SpeedFactor: 1000}
	p := New(b, reg, cfg, nil, zerolog.Nop())
	p.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.RequestStep()
	require.Eventually(t, func() bool { return p.Stats() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, p.Stats(), "a single step must not advance past one message")

	cancel()
	<-done
}

func TestRecordThenPlayRoundTripsPayloads(t *testing.T) {
	path := t.TempDir() + "/roundtrip.mcap"
	last := writeFixture(t, path, 4)

	b := memorybus.New()
	reg := schema.New(zerolog.Nop())

	var mu sync.Mutex
	var received [][]byte
	_, err := b.AttachReader("/a", func(msg bus.Message) {
		mu.Lock()
		received = append(received, msg.Payload)
		mu.Unlock()
	})
	require.NoError(t, err)

	cfg := Config{InputPath: path, SpeedFactor: 1000}
	p := New(b, reg, cfg, nil, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	require.EqualValues(t, 4, p.Stats())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 4)
	require.Equal(t, last, received[3])
}
