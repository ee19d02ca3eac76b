package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus"
	"github.com/flowmesh/foxbridge/internal/discovery"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/flowmesh/foxbridge/internal/translator"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// topicEntry is the per-topic state: a single mutex-guarded map entry,
// mutated only under Hub.mu and never held across I/O.
type topicEntry struct {
	name     string
	typeName string
	entry    *schema.Entry
	state    State

	reader bus.Reader
	writer bus.Writer

	rawSubs       map[string]SinkCallback
	convertedSubs map[string]SinkCallback
}

type serviceBinding struct {
	requestType  string
	responseType string
}

// Hub implements the Live Fan-out Hub's public contract.
type Hub struct {
	busImpl    bus.Bus
	registry   *schema.Registry
	translator *translator.Translator
	tracer     trace.Tracer
	log        zerolog.Logger

	callTimeout time.Duration

	mu       sync.Mutex
	topics   map[string]*topicEntry
	services map[string]serviceBinding

	// Sink-facing push callbacks, set once by whatever sink transport is
	// attached (internal/sink's websocket hub, in this repo).
	OnChannelCreated func(topic, schemaName string, descriptorBytes []byte)
	OnChannelClosed  func(topic string)
	OnServiceCreated func(name, requestSchemaText, responseSchemaText string)

	OnDrop func(topic string) // recorder-style drop counters are not used here; hook kept for metrics wiring
}

// New constructs a Hub bound to a bus, a Schema Registry, a Translator, and
// a tracer for service-call spans.
func New(b bus.Bus, registry *schema.Registry, tr *translator.Translator, tracer trace.Tracer, callTimeout time.Duration, log zerolog.Logger) *Hub {
	return &Hub{
		busImpl:     b,
		registry:    registry,
		translator:  tr,
		tracer:      tracer,
		callTimeout: callTimeout,
		log:         log,
		topics:      make(map[string]*topicEntry),
		services:    make(map[string]serviceBinding),
	}
}

// OnTopicFound wires a Discovery Engine callback: the topic becomes Latent
// and its channel(s) are advertised to the sink, including the converted
// sibling when a converter is registered (always advertised together).
func (h *Hub) OnTopicFound(tf discovery.TopicFound) {
	entry, err := h.registry.Resolve(tf.TypeName)
	if err != nil {
		h.log.Debug().Str("topic", tf.Topic).Str("type", tf.TypeName).Msg("hub: type not resolvable, skipping")
		return
	}

	h.mu.Lock()
	h.topics[tf.Topic] = &topicEntry{
		name:          tf.Topic,
		typeName:      tf.TypeName,
		entry:         entry,
		state:         StateLatent,
		rawSubs:       make(map[string]SinkCallback),
		convertedSubs: make(map[string]SinkCallback),
	}
	h.mu.Unlock()

	if h.OnChannelCreated != nil {
		h.OnChannelCreated(tf.Topic, tf.TypeName, entry.DescriptorSet)
		if h.translator.HasConverter(tf.TypeName) {
			if target, ok := h.translator.ConverterTarget(tf.TypeName); ok {
				h.OnChannelCreated(tf.Topic+"/converted", target, nil)
			}
		}
	}
}

// OnTopicLost wires discovery's removal callback: if the topic has no
// active reader/writer interest it is dropped immediately; otherwise it is
// marked Gone and cleaned up once interest drains.
func (h *Hub) OnTopicLost(topic string) {
	h.mu.Lock()
	t, ok := h.topics[topic]
	if !ok {
		h.mu.Unlock()
		return
	}
	t.state = StateGone
	destroyed := h.destroyIfDone(topic, t, true)
	h.mu.Unlock()

	if destroyed && h.OnChannelClosed != nil {
		h.OnChannelClosed(topic)
	}
}

// destroyIfDone deletes topic's entry once it is Gone with no subscribers
// and no writer — the terminal condition under which a topic is torn down
// for good, whether it arrives via OnTopicLost, the last unsubscribe, or
// the last unadvertise. Must be called with h.mu held. wasGone is the
// topic's Gone-ness as of just before this call, since callers typically
// invoke this right after clearing the field (subscriber or writer) that
// had been keeping the topic alive.
func (h *Hub) destroyIfDone(topic string, t *topicEntry, wasGone bool) bool {
	if !wasGone {
		return false
	}
	if len(t.rawSubs) != 0 || len(t.convertedSubs) != 0 || t.writer != nil {
		return false
	}
	delete(h.topics, topic)
	return true
}

// OnExternalSubscribe attaches a bus reader on the topic's first subscriber
// of either variant and registers cb to receive canonical bytes thereafter. Returns
// an opaque subscriber id for OnExternalUnsubscribe.
func (h *Hub) OnExternalSubscribe(topic string, variant Variant, cb SinkCallback) (string, error) {
	h.mu.Lock()
	t, ok := h.topics[topic]
	if !ok {
		h.mu.Unlock()
		return "", NotSubscribedError{Topic: topic}
	}

	firstOverall := len(t.rawSubs) == 0 && len(t.convertedSubs) == 0
	subID := uuid.NewString()
	switch variant {
	case VariantConverted:
		t.convertedSubs[subID] = cb
	default:
		t.rawSubs[subID] = cb
	}
	if t.state != StateGone {
		t.state = StateSubscribed
	}
	h.mu.Unlock()

	if firstOverall {
		reader, err := h.busImpl.AttachReader(topic, h.makeReaderCallback(topic))
		if err != nil {
			return "", fmt.Errorf("attach reader for %q: %w", topic, err)
		}
		h.mu.Lock()
		t.reader = reader
		h.mu.Unlock()
	}

	return subID, nil
}

// OnExternalUnsubscribe decrements interest in (topic, variant); once both
// variants have no subscribers, the bus reader is detached.
func (h *Hub) OnExternalUnsubscribe(topic string, variant Variant, subID string) error {
	h.mu.Lock()

	t, ok := h.topics[topic]
	if !ok {
		h.mu.Unlock()
		return NotSubscribedError{Topic: topic}
	}

	switch variant {
	case VariantConverted:
		if _, ok := t.convertedSubs[subID]; !ok {
			h.mu.Unlock()
			return NotSubscribedError{Topic: topic}
		}
		delete(t.convertedSubs, subID)
	default:
		if _, ok := t.rawSubs[subID]; !ok {
			h.mu.Unlock()
			return NotSubscribedError{Topic: topic}
		}
		delete(t.rawSubs, subID)
	}

	destroyed := false
	if len(t.rawSubs) == 0 && len(t.convertedSubs) == 0 {
		wasGone := t.state == StateGone
		if t.reader != nil {
			t.reader.Detach()
			t.reader = nil
		}
		if !wasGone {
			t.state = StateLatent
		}
		destroyed = h.destroyIfDone(topic, t, wasGone)
	}
	h.mu.Unlock()

	if destroyed && h.OnChannelClosed != nil {
		h.OnChannelClosed(topic)
	}
	return nil
}

// OnExternalAdvertise creates (or reuses) a bus writer bound to typeName
// for topic, making the topic publishable by the sink.
func (h *Hub) OnExternalAdvertise(topic, typeName string) error {
	entry, err := h.registry.Resolve(typeName)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[topic]
	if !ok {
		t = &topicEntry{
			name:          topic,
			typeName:      typeName,
			entry:         entry,
			state:         StateLatent,
			rawSubs:       make(map[string]SinkCallback),
			convertedSubs: make(map[string]SinkCallback),
		}
		h.topics[topic] = t
	}
	if t.writer != nil {
		return nil
	}

	writer, err := h.busImpl.AttachWriter(topic, typeName)
	if err != nil {
		return fmt.Errorf("attach writer for %q: %w", topic, err)
	}
	t.writer = writer
	t.typeName = typeName
	t.entry = entry
	return nil
}

// OnExternalUnadvertise drops topic's writer.
func (h *Hub) OnExternalUnadvertise(topic string) error {
	h.mu.Lock()

	t, ok := h.topics[topic]
	if !ok || t.writer == nil {
		h.mu.Unlock()
		return NotAdvertisedError{Topic: topic}
	}
	t.writer.Close()
	t.writer = nil
	destroyed := h.destroyIfDone(topic, t, t.state == StateGone)
	h.mu.Unlock()

	if destroyed && h.OnChannelClosed != nil {
		h.OnChannelClosed(topic)
	}
	return nil
}

// OnExternalPublish translates a sink-authored text payload into wire-bytes
// using the topic's current TypeName and publishes it on the bus.
func (h *Hub) OnExternalPublish(topic, textPayload string) error {
	h.mu.Lock()
	t, ok := h.topics[topic]
	h.mu.Unlock()
	if !ok || t.writer == nil {
		return NotAdvertisedError{Topic: topic}
	}

	wireBytes, err := h.translator.FromText(textPayload, t.typeName)
	if err != nil {
		return err
	}
	return t.writer.Publish(wireBytes)
}

// RegisterService wires a Discovery Engine-found service into the Hub so
// OnServiceCall can route to it, and announces it to the sink.
func (h *Hub) RegisterService(sf discovery.ServiceFound) {
	h.mu.Lock()
	h.services[sf.Name] = serviceBinding{requestType: sf.RequestTypeName, responseType: sf.ResponseTypeName}
	h.mu.Unlock()

	if h.OnServiceCreated != nil {
		reqText := schemaToText(sf.RequestSchema)
		respText := schemaToText(sf.ResponseSchema)
		h.OnServiceCreated(sf.Name, reqText, respText)
	}
}

// OnServiceCall serializes requestText, issues a blocking RPC bounded by
// the Hub's configured timeout, and translates the response back to text.
func (h *Hub) OnServiceCall(ctx context.Context, name, requestText string) (string, error) {
	h.mu.Lock()
	binding, ok := h.services[name]
	h.mu.Unlock()
	if !ok {
		return "", UnknownServiceError{Service: name}
	}

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "hub.service_call")
		defer span.End()
	}

	requestBytes, err := h.translator.FromText(requestText, binding.requestType)
	if err != nil {
		return "", err
	}

	responseBytes, err := h.busImpl.CallService(ctx, name, requestBytes, h.callTimeout)
	if err != nil {
		return "", newCallFailedError(name, err)
	}

	return h.translator.ToText(responseBytes, binding.responseType)
}

// makeReaderCallback builds the bus-owned reader callback for a topic: it
// translates wire-bytes to canonical bytes (and, if a converter exists and
// has subscribers, to the converted form) and fans out to every subscriber.
// It never blocks — a subscriber's sink delivery is the subscriber's
// problem, not the bus's.
func (h *Hub) makeReaderCallback(topic string) bus.ReaderCallback {
	return func(msg bus.Message) {
		h.mu.Lock()
		t, ok := h.topics[topic]
		if !ok {
			h.mu.Unlock()
			return
		}
		rawSubs := make([]SinkCallback, 0, len(t.rawSubs))
		for _, cb := range t.rawSubs {
			rawSubs = append(rawSubs, cb)
		}
		convertedSubs := make([]SinkCallback, 0, len(t.convertedSubs))
		for _, cb := range t.convertedSubs {
			convertedSubs = append(convertedSubs, cb)
		}
		typeName := t.typeName
		h.mu.Unlock()

		if len(rawSubs) > 0 {
			canonical, err := h.translator.ToCanonical(msg.Payload, typeName)
			if err != nil {
				h.log.Debug().Err(err).Str("topic", topic).Msg("hub: failed to translate message to canonical bytes")
			} else {
				for _, cb := range rawSubs {
					cb(topic, VariantRaw, canonical)
				}
			}
		}

		if len(convertedSubs) > 0 && h.translator.HasConverter(typeName) {
			converted, err := h.translator.Convert(msg.Payload, typeName)
			if err != nil {
				h.log.Debug().Err(err).Str("topic", topic).Msg("hub: converter failed")
			} else {
				for _, cb := range convertedSubs {
					cb(topic, VariantConverted, converted)
				}
			}
		}
	}
}

func schemaToText(schema map[string]any) string {
	if schema == nil {
		return "{}"
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(b)
}
