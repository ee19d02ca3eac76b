package player

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus"
	"github.com/flowmesh/foxbridge/internal/logfile"
	"github.com/flowmesh/foxbridge/internal/metrics"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/rs/zerolog"
)

const pauseSleepInterval = 100 * time.Millisecond

// Player initializes from a log file's summary (or a full scan on
// failure), then replays messages on a single reader goroutine honoring
// speed/pause/step/start-offset.
type Player struct {
	busImpl  bus.Bus
	registry *schema.Registry
	cfg      Config
	metrics  *metrics.Bridge
	log      zerolog.Logger

	reader  *logfile.Reader
	writers map[string]bus.Writer

	paused        atomic.Bool
	stepRequested atomic.Bool

	// OnMessagePublished is a test/metrics hook invoked after each
	// successful publish.
	OnMessagePublished func(topic string)

	totalMessages uint64
}

// New constructs a Player bound to a bus and Schema Registry.
func New(b bus.Bus, registry *schema.Registry, cfg Config, m *metrics.Bridge, log zerolog.Logger) *Player {
	return &Player{
		busImpl:  b,
		registry: registry,
		cfg:      cfg,
		metrics:  m,
		log:      log,
	}
}

// Pause pauses the replay loop; Resume clears it.
func (p *Player) Pause()  { p.paused.Store(true) }
func (p *Player) Resume() { p.paused.Store(false) }

// TogglePause flips the paused state — wired to the spacebar keyboard
// control.
func (p *Player) TogglePause() {
	if p.paused.Load() {
		p.Resume()
	} else {
		p.Pause()
	}
}

// RequestStep pauses (if not already) and arms a single-message
// step-through: pressing 's' implies pause.
func (p *Player) RequestStep() {
	p.paused.Store(true)
	p.stepRequested.Store(true)
}

// Paused reports the current pause state.
func (p *Player) Paused() bool { return p.paused.Load() }

// Stats returns the number of messages published so far in the current
// pass.
func (p *Player) Stats() uint64 { return p.totalMessages }

// Run executes the replay loop against ctx, looping the whole file when
// cfg.Loop is set, until ctx is cancelled or the file (non-looping) is
// exhausted.
func (p *Player) Run(ctx context.Context) error {
	for {
		if err := p.initialize(); err != nil {
			return err
		}

		err := p.replayPass(ctx)
		closeErr := p.reader.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return IoFailureError{Path: p.cfg.InputPath, Cause: closeErr}
		}
		if ctx.Err() != nil {
			return nil
		}
		if !p.cfg.Loop {
			return nil
		}
		p.log.Info().Str("file", p.cfg.InputPath).Msg("player: looping playback")
	}
}

// initialize reads the file's summary (falling back to a full scan on
// failure), registers every filtered, protobuf-encoded schema back into the
// Registry, and creates a bus writer per filtered topic.
func (p *Player) initialize() error {
	reader, err := logfile.Open(p.cfg.InputPath, p.log)
	if err != nil {
		return IoFailureError{Path: p.cfg.InputPath, Cause: err}
	}

	summary, err := reader.Summary()
	if err != nil {
		p.log.Warn().Err(err).Str("file", p.cfg.InputPath).Msg("player: summary read failed, falling back to full scan")
		summary, err = reader.Scan()
		if err != nil {
			_ = reader.Close()
			return IoFailureError{Path: p.cfg.InputPath, Cause: err}
		}
		// Scan runs to EOF to tally stats; rewind so Next() can replay from
		// the top. Rewind clears the schema/channel tables Scan just built,
		// but Next() repopulates them as it walks back over those records.
		if err := reader.Rewind(); err != nil {
			_ = reader.Close()
			return IoFailureError{Path: p.cfg.InputPath, Cause: err}
		}
	}

	codec, err := logfile.CodecByName(summary.Codec)
	if err != nil {
		p.log.Warn().Err(err).Str("codec", summary.Codec).Msg("player: unknown codec, falling back to none")
		codec = logfile.NoneCodec{}
	}
	reader.SetCodec(codec)

	writers := make(map[string]bus.Writer)
	for _, ch := range summary.Channels {
		if !p.cfg.Filter.Accepts(ch.Topic) {
			continue
		}
		sc, ok := summary.Schemas[ch.SchemaID]
		if !ok {
			continue
		}
		if sc.Encoding != "" && sc.Encoding != "protobuf" {
			p.log.Warn().Str("topic", ch.Topic).Str("encoding", sc.Encoding).Msg("player: channel encoding mismatch, skipping")
			continue
		}

		if len(sc.DescriptorSet) > 0 {
			if _, err := p.registry.RegisterDescriptor(sc.TypeName, sc.DescriptorSet); err != nil {
				p.log.Debug().Err(err).Str("type", sc.TypeName).Msg("player: descriptor already registered")
			}
		}

		w, err := p.busImpl.AttachWriter(ch.Topic, sc.TypeName)
		if err != nil {
			p.log.Warn().Err(err).Str("topic", ch.Topic).Msg("player: failed to create writer")
			continue
		}
		writers[ch.Topic] = w
	}

	p.reader = reader
	p.writers = writers
	p.totalMessages = 0
	return nil
}

// replayPass iterates the file in log-time order, sleeping until each
// message's target wall-clock time, honoring pause/step/start-offset.
// Returns nil on normal end-of-file.
func (p *Player) replayPass(ctx context.Context) error {
	var firstLogTime int64
	haveFirst := false
	offsetApplied := false
	startOffsetNS := int64(p.cfg.StartOffset)
	playbackWallStart := time.Now()

	for {
		if ctx.Err() != nil {
			return nil
		}

		msg, err := p.reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return IoFailureError{Path: p.cfg.InputPath, Cause: err}
		}

		w, ok := p.writers[msg.Topic]
		if !ok {
			continue
		}

		if !haveFirst {
			firstLogTime = msg.LogTimeNS
			haveFirst = true
		}
		relative := msg.LogTimeNS - firstLogTime

		if relative < startOffsetNS {
			continue
		}
		if !offsetApplied {
			playbackWallStart = time.Now()
			offsetApplied = true
		}

		for p.paused.Load() || p.cfg.SpeedFactor == 0 {
			if p.stepRequested.CompareAndSwap(true, false) {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pauseSleepInterval):
			}
			// Advance the schedule by the slept duration so resumption
			// doesn't burst through the backlog built up while paused.
			playbackWallStart = playbackWallStart.Add(pauseSleepInterval)
		}

		if p.cfg.SpeedFactor > 0 {
			adjusted := relative - startOffsetNS
			targetWall := playbackWallStart.Add(time.Duration(float64(adjusted) / p.cfg.SpeedFactor))
			if d := time.Until(targetWall); d > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(d):
				}
			}
			if p.metrics != nil {
				lag := time.Since(targetWall).Seconds()
				p.metrics.PlayerLag.WithLabelValues(msg.Topic).Set(lag)
			}
		}

		if err := w.Publish(msg.Payload); err != nil {
			p.log.Warn().Err(err).Str("topic", msg.Topic).Msg("player: publish failed")
			continue
		}

		p.totalMessages++
		if p.metrics != nil {
			p.metrics.PlayerPublished.WithLabelValues(msg.Topic).Inc()
		}
		if p.OnMessagePublished != nil {
			p.OnMessagePublished(msg.Topic)
		}
	}
}
