package discovery

import (
	"context"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/rs/zerolog"
)

// maxRetryBackoff caps the type-resolution retry delay so a topic whose
// type never resolves doesn't push pendingNextAt arbitrarily far out.
const maxRetryBackoff = 30 * time.Second

// Engine runs the discovery polling loop: a configurable-period ticker
// that diffs the bus's current channel set against the previous tick,
// emits add/remove callbacks, and separately polls the service list
// against the compiled-in allow-list.
type Engine struct {
	bus       bus.Bus
	registry  *schema.Registry
	allowList AllowList
	period    time.Duration
	log       zerolog.Logger

	OnTopicFound   func(TopicFound)
	OnTopicLost    func(topic string)
	OnServiceFound func(ServiceFound)

	previous      map[string]struct{}
	seenServices  map[string]struct{}
	pendingRetry  map[string]time.Duration
	pendingNextAt map[string]time.Time
}

// New constructs an Engine. period is 500ms for the live bridge, 2000ms for
// the recorder, by default.
func New(b bus.Bus, registry *schema.Registry, allowList AllowList, period time.Duration, log zerolog.Logger) *Engine {
	return &Engine{
		bus:           b,
		registry:      registry,
		allowList:     allowList,
		period:        period,
		log:           log,
		previous:      make(map[string]struct{}),
		seenServices:  make(map[string]struct{}),
		pendingRetry:  make(map[string]time.Duration),
		pendingNextAt: make(map[string]time.Time),
	}
}

// Run blocks, ticking until ctx is cancelled. Discovery failures are
// logged and retried next tick; they never abort the loop.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	channels, err := e.bus.ListChannels()
	if err != nil {
		e.log.Warn().Err(err).Msg("discovery: failed to list channels, retrying next tick")
		return
	}

	current := make(map[string]struct{}, len(channels))
	byName := make(map[string]bus.ChannelInfo, len(channels))
	for _, ch := range channels {
		current[ch.Name] = struct{}{}
		byName[ch.Name] = ch
	}

	if sameMembers(current, e.previous) && len(e.pendingRetry) == 0 {
		e.pollServices()
		return
	}

	for name := range e.previous {
		if _, ok := current[name]; !ok {
			if e.OnTopicLost != nil {
				e.OnTopicLost(name)
			}
			delete(e.pendingRetry, name)
			delete(e.pendingNextAt, name)
		}
	}

	for name := range current {
		if _, ok := e.previous[name]; ok {
			if _, pending := e.pendingRetry[name]; !pending {
				continue
			}
		}
		e.considerAdded(byName[name])
	}

	e.previous = current
	e.pollServices()
}

func (e *Engine) considerAdded(ch bus.ChannelInfo) {
	if !ch.HasWriter {
		// subscribers-only topics are latent and not advertised outward
		return
	}

	if next, ok := e.pendingNextAt[ch.Name]; ok && time.Now().Before(next) {
		return
	}

	typeName := ch.TypeName
	if typeName == "" {
		e.markRetry(ch.Name)
		return
	}

	if len(ch.Descriptor) > 0 {
		if _, err := e.registry.RegisterDescriptor(typeName, ch.Descriptor); err != nil {
			e.log.Debug().Err(err).Str("topic", ch.Name).Msg("discovery: descriptor registration failed")
		}
	}

	if _, err := e.registry.Resolve(typeName); err != nil {
		e.log.Debug().Str("topic", ch.Name).Str("type", typeName).Msg("discovery: type not yet resolvable, will retry")
		e.markRetry(ch.Name)
		return
	}

	delete(e.pendingRetry, ch.Name)
	delete(e.pendingNextAt, ch.Name)

	if e.OnTopicFound != nil {
		e.OnTopicFound(TopicFound{Topic: ch.Name, TypeName: typeName})
	}
}

// markRetry schedules topic's next type-resolution attempt, doubling the
// delay each consecutive miss up to maxRetryBackoff.
func (e *Engine) markRetry(topic string) {
	delay, ok := e.pendingRetry[topic]
	if !ok {
		delay = e.period
	} else {
		delay *= 2
		if delay > maxRetryBackoff {
			delay = maxRetryBackoff
		}
	}
	e.pendingRetry[topic] = delay
	e.pendingNextAt[topic] = time.Now().Add(delay)
}

func (e *Engine) pollServices() {
	services, err := e.bus.ListServices()
	if err != nil {
		e.log.Warn().Err(err).Msg("discovery: failed to list services, retrying next tick")
		return
	}

	for _, svc := range services {
		if _, seen := e.seenServices[svc.Name]; seen {
			continue
		}
		binding, ok := e.allowList[svc.Name]
		if !ok {
			e.log.Debug().Str("service", svc.Name).Msg("discovery: service not in allow-list, ignoring")
			continue
		}

		reqEntry, err := e.registry.Resolve(binding.RequestType)
		if err != nil {
			continue
		}
		respEntry, err := e.registry.Resolve(binding.ResponseType)
		if err != nil {
			continue
		}

		e.seenServices[svc.Name] = struct{}{}
		if e.OnServiceFound != nil {
			e.OnServiceFound(ServiceFound{
				Name:             svc.Name,
				RequestTypeName:  binding.RequestType,
				ResponseTypeName: binding.ResponseType,
				RequestSchema:    e.registry.JSONSchema(reqEntry),
				ResponseSchema:   e.registry.JSONSchema(respEntry),
			})
		}
	}
}

func sameMembers(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
