package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus"
	"github.com/flowmesh/foxbridge/internal/discovery"
	"github.com/flowmesh/foxbridge/internal/logfile"
	"github.com/flowmesh/foxbridge/internal/metrics"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/rs/zerolog"
)

const writerPollTimeout = 100 * time.Millisecond

// Recorder runs one discovery task that filters the topics worth
// recording, per-topic reader callbacks that push into a bounded Queue,
// and one writer task that drains it into segmented logfile.Writer
// instances, rotating on a wall-clock interval.
type Recorder struct {
	busImpl   bus.Bus
	registry  *schema.Registry
	discovery *discovery.Engine
	queue     *Queue
	cfg       Config
	metrics   *metrics.Bridge
	log       zerolog.Logger
	codec     logfile.Codec

	mu      sync.Mutex
	readers map[string]bus.Reader

	segmentCounter int
	currentWriter  *logfile.Writer
	segmentStart   time.Time

	totalMessages uint64
	totalBytes    uint64
}

// New constructs a Recorder. cfg.OutputStem should already be resolved
// (cmd/mcap_recorder derives a wall-clock default before calling New when
// none is given).
func New(b bus.Bus, registry *schema.Registry, cfg Config, m *metrics.Bridge, log zerolog.Logger) *Recorder {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	q := NewQueue(cfg.QueueCapacity)
	r := &Recorder{
		busImpl:  b,
		registry: registry,
		queue:    q,
		cfg:      cfg,
		metrics:  m,
		log:      log,
		readers:  make(map[string]bus.Reader),
	}
	q.OnDrop = func(topic string) {
		r.log.Warn().Str("topic", topic).Msg("recorder: queue full, dropped oldest message for topic")
		if m != nil {
			m.RecorderDrops.WithLabelValues(topic).Inc()
		}
	}

	codec, err := logfile.CodecByName(cfg.Codec)
	if err != nil {
		log.Warn().Err(err).Str("codec", cfg.Codec).Msg("recorder: unknown codec, falling back to none")
		codec = logfile.NoneCodec{}
	}
	r.codec = codec

	allowList := discovery.AllowList{} // recorder doesn't surface services
	r.discovery = discovery.New(b, registry, allowList, cfg.DiscoveryInterval, log)
	r.discovery.OnTopicFound = r.onTopicFound
	r.discovery.OnTopicLost = r.onTopicLost
	return r
}

// Run starts the discovery task and blocks running the writer task until
// ctx is cancelled, at which point it drains the queue and closes the
// current segment before returning.
func (r *Recorder) Run(ctx context.Context) error {
	discoveryCtx, cancelDiscovery := context.WithCancel(ctx)
	defer cancelDiscovery()

	go r.discovery.Run(discoveryCtx)

	if err := r.openSegment(); err != nil {
		return IoFailureError{Path: r.segmentPath(), Cause: err}
	}

	for {
		select {
		case <-ctx.Done():
			return r.shutdown()
		default:
		}

		if r.rotationDue() {
			if err := r.rotate(); err != nil {
				return IoFailureError{Path: r.segmentPath(), Cause: err}
			}
		}

		msg, ok := r.queue.Dequeue(writerPollTimeout)
		if !ok {
			continue
		}
		r.writeMessage(msg)
	}
}

func (r *Recorder) onTopicFound(tf discovery.TopicFound) {
	if !r.cfg.Filter.Accepts(tf.Topic) {
		return
	}

	entry, err := r.registry.Resolve(tf.TypeName)
	if err != nil {
		r.log.Debug().Str("topic", tf.Topic).Msg("recorder: type not resolvable, skipping")
		return
	}

	reader, err := r.busImpl.AttachReader(tf.Topic, func(msg bus.Message) {
		r.queue.Enqueue(msg.Topic, msg.TypeName, entry.DescriptorSet, msg.PublishTimeNS, msg.Payload)
		if r.metrics != nil {
			r.metrics.RecorderQueueDepth.WithLabelValues(msg.Topic).Inc()
		}
	})
	if err != nil {
		r.log.Warn().Err(err).Str("topic", tf.Topic).Msg("recorder: failed to attach reader")
		return
	}

	r.mu.Lock()
	r.readers[tf.Topic] = reader
	r.mu.Unlock()
}

func (r *Recorder) onTopicLost(topic string) {
	r.mu.Lock()
	reader, ok := r.readers[topic]
	if ok {
		delete(r.readers, topic)
	}
	r.mu.Unlock()
	if ok {
		reader.Detach()
	}
}

func (r *Recorder) rotationDue() bool {
	if r.cfg.SegmentInterval <= 0 {
		return false
	}
	return time.Since(r.segmentStart) >= r.cfg.SegmentInterval
}

func (r *Recorder) segmentPath() string {
	if r.cfg.SegmentInterval <= 0 {
		return r.cfg.OutputStem + ".mcap"
	}
	return fmt.Sprintf("%s_%d.mcap", r.cfg.OutputStem, r.segmentCounter)
}

func (r *Recorder) openSegment() error {
	path := r.segmentPath()
	w, err := logfile.NewWriter(path, r.codec)
	if err != nil {
		return err
	}
	r.currentWriter = w
	r.segmentStart = time.Now()
	r.log.Info().Str("path", path).Msg("recorder: opened segment")
	return nil
}

// rotate closes the current segment (flushing its trailer) and opens the
// next one; the schema/channel tables reset automatically because a fresh
// logfile.Writer starts with empty tables.
func (r *Recorder) rotate() error {
	if err := r.currentWriter.Close(); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.RecorderRotations.Inc()
	}
	r.segmentCounter++
	return r.openSegment()
}

func (r *Recorder) writeMessage(msg queuedMessage) {
	if err := r.currentWriter.WriteMessage(msg.topic, msg.typeName, msg.descriptorSet, msg.publishTimeNS, msg.payload); err != nil {
		r.log.Error().Err(err).Str("topic", msg.topic).Msg("recorder: failed to write message")
		return
	}
	r.totalMessages++
	r.totalBytes += uint64(len(msg.payload))
	if r.metrics != nil {
		r.metrics.RecorderQueueDepth.WithLabelValues(msg.topic).Dec()
		r.metrics.RecorderWritten.WithLabelValues(msg.topic).Inc()
		r.metrics.RecorderBytes.WithLabelValues(msg.topic).Add(float64(len(msg.payload)))
	}
}

// shutdown drains every pending message (never abandoning it) and closes
// the current segment, which flushes its trailer.
func (r *Recorder) shutdown() error {
	r.mu.Lock()
	for _, reader := range r.readers {
		reader.Detach()
	}
	r.readers = make(map[string]bus.Reader)
	r.mu.Unlock()

	for _, msg := range r.queue.DrainAll() {
		r.writeMessage(msg)
	}

	if err := r.currentWriter.Close(); err != nil {
		return IoFailureError{Path: r.segmentPath(), Cause: err}
	}
	r.log.Info().Uint64("messages", r.totalMessages).Uint64("bytes", r.totalBytes).Msg("recorder: shutdown complete")
	return nil
}

// Stats returns the running totals written so far.
func (r *Recorder) Stats() (messages, bytes uint64) {
	return r.totalMessages, r.totalBytes
}
