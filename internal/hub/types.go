// Package hub implements the Live Fan-out Hub: per-topic subscriber state,
// bidirectional bridging with the external sink, and the blocking
// service-call path, built around a per-resource state map and a
// refcounted subscribe/unsubscribe pattern for the broadcast side.
package hub

// Variant distinguishes the raw channel from a registered converter's
// sibling.
type Variant string

const (
	VariantRaw       Variant = "raw"
	VariantConverted Variant = "converted"
)

// SinkCallback delivers canonical bytes for one (topic, variant) channel to
// one external subscriber.
type SinkCallback func(topic string, variant Variant, canonicalBytes []byte)

// State is the per-topic state machine. Advertised is tracked
// independently (a topic may be Subscribed and Advertised at once).
type State int

const (
	StateLatent State = iota
	StateSubscribed
	StateGone
)

func (s State) String() string {
	switch s {
	case StateLatent:
		return "latent"
	case StateSubscribed:
		return "subscribed"
	case StateGone:
		return "gone"
	default:
		return "unknown"
	}
}
