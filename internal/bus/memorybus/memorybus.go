// Package memorybus is an in-memory Bus fake. It is the only Bus
// implementation in this module: the discovery, hub, recorder, and player
// tests use it, and every cmd/ entrypoint wires it as its bus.
package memorybus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus"
	"github.com/google/uuid"
)

type reader struct {
	b     *Bus
	topic string
	id    string
}

func (r *reader) Detach() {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	delete(r.b.readers[r.topic], r.id)
}

type writer struct {
	b        *Bus
	topic    string
	typeName string
	closed   bool
}

func (w *writer) Topic() string    { return w.topic }
func (w *writer) TypeName() string { return w.typeName }

func (w *writer) Publish(wireBytes []byte) error {
	if w.closed {
		return fmt.Errorf("writer for %q is closed", w.topic)
	}
	w.b.deliver(w.topic, w.typeName, wireBytes)
	return nil
}

func (w *writer) Close() {
	w.closed = true
	w.b.mu.Lock()
	defer w.b.mu.Unlock()
	w.b.writers[w.topic] = w.b.writers[w.topic] - 1
	if w.b.writers[w.topic] <= 0 {
		delete(w.b.writers, w.topic)
	}
}

// ServiceHandler answers a service call synchronously.
type ServiceHandler func(requestBytes []byte) ([]byte, error)

// Bus is a single-process, in-memory stand-in for the robotics bus.
type Bus struct {
	mu           sync.Mutex
	readers      map[string]map[string]bus.ReaderCallback
	writers      map[string]int
	typeByTopic  map[string]string
	descriptors  map[string][]byte
	services     map[string]ServiceHandler
	processName  string
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{
		readers:     make(map[string]map[string]bus.ReaderCallback),
		writers:     make(map[string]int),
		typeByTopic: make(map[string]string),
		descriptors: make(map[string][]byte),
		services:    make(map[string]ServiceHandler),
	}
}

func (b *Bus) Init(processName string) error {
	b.processName = processName
	return nil
}

func (b *Bus) ListChannels() ([]bus.ChannelInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make(map[string]struct{})
	for t := range b.readers {
		if len(b.readers[t]) > 0 {
			names[t] = struct{}{}
		}
	}
	for t := range b.writers {
		names[t] = struct{}{}
	}
	for t := range b.typeByTopic {
		names[t] = struct{}{}
	}

	out := make([]bus.ChannelInfo, 0, len(names))
	for t := range names {
		out = append(out, bus.ChannelInfo{
			Name:       t,
			HasReader:  len(b.readers[t]) > 0,
			HasWriter:  b.writers[t] > 0,
			TypeName:   b.typeByTopic[t],
			Descriptor: b.descriptors[b.typeByTopic[t]],
		})
	}
	return out, nil
}

func (b *Bus) ListServices() ([]bus.ServiceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]bus.ServiceInfo, 0, len(b.services))
	for name := range b.services {
		out = append(out, bus.ServiceInfo{Name: name})
	}
	return out, nil
}

func (b *Bus) AttachReader(topic string, cb bus.ReaderCallback) (bus.Reader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readers[topic] == nil {
		b.readers[topic] = make(map[string]bus.ReaderCallback)
	}
	id := uuid.NewString()
	b.readers[topic][id] = cb
	return &reader{b: b, topic: topic, id: id}, nil
}

func (b *Bus) AttachWriter(topic, typeName string) (bus.Writer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writers[topic]++
	b.typeByTopic[topic] = typeName
	return &writer{b: b, topic: topic, typeName: typeName}, nil
}

func (b *Bus) CallService(ctx context.Context, name string, requestBytes []byte, timeout time.Duration) ([]byte, error) {
	b.mu.Lock()
	handler, ok := b.services[name]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no provider for service %q", name)
	}

	resultCh := make(chan []byte, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := handler(requestBytes)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- resp
	}()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case resp := <-resultCh:
		return resp, nil
	case err := <-errCh:
		return nil, err
	case <-callCtx.Done():
		return nil, fmt.Errorf("service %q call timed out", name)
	}
}

func (b *Bus) Shutdown() {}

// RegisterService installs a synchronous handler for a service name, making
// it discoverable via ListServices.
func (b *Bus) RegisterService(name string, handler ServiceHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.services[name] = handler
}

// SeedType registers a descriptor for a topic's type without attaching a
// writer, for tests that need ListChannels to report a TypeName before any
// message flows.
func (b *Bus) SeedType(topic, typeName string, descriptorSet []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typeByTopic[topic] = typeName
	b.descriptors[typeName] = descriptorSet
}

// Publish injects a message as if an external publisher sent it, without
// going through a Writer handle — used to simulate the bus's own publishers
// for discovery/hub tests.
func (b *Bus) Publish(topic, typeName string, wireBytes []byte) {
	b.mu.Lock()
	b.writers[topic]++
	b.typeByTopic[topic] = typeName
	b.mu.Unlock()
	b.deliver(topic, typeName, wireBytes)
}

func (b *Bus) deliver(topic, typeName string, wireBytes []byte) {
	b.mu.Lock()
	cbs := make([]bus.ReaderCallback, 0, len(b.readers[topic]))
	for _, cb := range b.readers[topic] {
		cbs = append(cbs, cb)
	}
	b.mu.Unlock()

	msg := bus.Message{
		Topic:         topic,
		TypeName:      typeName,
		Payload:       wireBytes,
		PublishTimeNS: time.Now().UnixNano(),
	}
	for _, cb := range cbs {
		cb(msg)
	}
}
