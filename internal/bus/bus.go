// Package bus defines the boundary between the core message plane and the
// robotics pub/sub middleware it bridges. The middleware's own transport
// lives outside this module; this package only states the contract the
// core depends on. The in-memory fake in memorybus is the only
// implementation; the tests and the cmd/ entrypoints both use it.
package bus

import (
	"context"
	"time"
)

// Message is one payload observed on, or about to be published to, the bus.
type Message struct {
	Topic         string
	TypeName      string
	DescriptorSet []byte // nil unless the publisher carries its descriptor
	Payload       []byte // wire-bytes, bus-native serialization
	PublishTimeNS int64
}

// ReaderCallback is invoked on a bus-owned thread for every message
// observed on a topic. It must not block.
type ReaderCallback func(Message)

// Reader is a subscription handle. Detach stops further callback delivery.
type Reader interface {
	Detach()
}

// Writer is a publish handle bound to one topic and TypeName.
type Writer interface {
	Topic() string
	TypeName() string
	Publish(wireBytes []byte) error
	Close()
}

// ServiceClient issues blocking RPCs against a discovered service.
type ServiceClient interface {
	Call(ctx context.Context, requestBytes []byte) ([]byte, error)
	Close()
}

// ChannelInfo is what the bus reports for a discovered topic.
type ChannelInfo struct {
	Name        string
	HasReader   bool // at least one subscriber exists
	HasWriter   bool // at least one publisher exists
	TypeName    string
	Descriptor  []byte
}

// ServiceInfo is what the bus reports for a discovered service; the bus
// does not expose request/response type metadata, so those fields are
// resolved separately via the allow-list.
type ServiceInfo struct {
	Name string
}

// Bus is the full contract the core depends on: discovery enumeration,
// attach/detach for readers and writers, and service calls.
type Bus interface {
	// Init performs the bus's process-wide initialization call with a
	// process name ("mcap_recorder", "mcap_player", or "fox_bridge").
	Init(processName string) error

	ListChannels() ([]ChannelInfo, error)
	ListServices() ([]ServiceInfo, error)

	AttachReader(topic string, cb ReaderCallback) (Reader, error)
	AttachWriter(topic, typeName string) (Writer, error)

	CallService(ctx context.Context, name string, requestBytes []byte, timeout time.Duration) ([]byte, error)

	Shutdown()
}

// TypeFactory is the Schema Registry's tier-1 resolution source: it is
// populated by observed publishers that carry their own descriptor.
type TypeFactory interface {
	Lookup(typeName string) ([]byte, bool)
	Observe(typeName string, descriptorSet []byte)
}
