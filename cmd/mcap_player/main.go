// Command mcap_player republishes messages from one or more segmented log
// files onto the bus, preserving inter-message time gaps.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus/memorybus"
	"github.com/flowmesh/foxbridge/internal/config"
	"github.com/flowmesh/foxbridge/internal/logger"
	"github.com/flowmesh/foxbridge/internal/metrics"
	"github.com/flowmesh/foxbridge/internal/player"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/flowmesh/foxbridge/internal/topicfilter"
	"github.com/flowmesh/foxbridge/internal/version"
)

type topicList []string

func (t *topicList) String() string { return strings.Join(*t, ",") }
func (t *topicList) Set(v string) error {
	*t = append(*t, strings.Fields(v)...)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcap_player: config: %v\n", err)
		os.Exit(1)
	}

	var (
		loop        bool
		speed       float64
		startOffset float64
		allow, deny topicList
	)

	fs := flag.NewFlagSet("play", flag.ExitOnError)
	cfg.BindFlags(fs)
	fs.BoolVar(&loop, "l", false, "loop the full file sequence")
	fs.Float64Var(&speed, "r", 1.0, "replay speed factor (0 = step-only)")
	fs.Float64Var(&startOffset, "s", 0, "skip the first N seconds")
	fs.Var(&allow, "c", "allow-listed topic(s), space-separated, repeatable")
	fs.Var(&deny, "k", "deny-listed topic(s), space-separated, repeatable")
	fs.Parse(os.Args[1:])

	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "mcap_player: at least one input file is required")
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "mcap_player: invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		Rotation:    cfg.Logging.Rotation,
		MaxSize:     cfg.Logging.MaxSize,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAge:      cfg.Logging.MaxAge,
		ProcessName: "mcap_player",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "mcap_player: logger init: %v\n", err)
		os.Exit(1)
	}
	log := logger.WithComponent("mcap_player")
	log.Info().Str("version", version.Get().Version).Strs("files", files).Msg("starting mcap_player")

	b := memorybus.New()
	if err := b.Init("mcap_player"); err != nil {
		log.Error().Err(err).Msg("bus init failed")
		os.Exit(1)
	}

	registry := schema.New(log)

	collector := metrics.NewCollector()
	bridge := metrics.NewBridge(collector)
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, collector.GetRegistry())
		if err := metricsServer.Start(context.Background()); err != nil {
			log.Warn().Err(err).Msg("metrics server failed to start")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	filter := topicfilter.Filter{Allow: allow, Deny: deny}

	exitCode := 0
sequence:
	for {
		for _, path := range files {
			if ctx.Err() != nil {
				break sequence
			}

			p := player.New(b, registry, player.Config{
				InputPath:   path,
				Filter:      filter,
				SpeedFactor: speed,
				Loop:        false,
				StartOffset: time.Duration(startOffset * float64(time.Second)),
			}, bridge, log)

			keyboardCtx, cancelKeyboard := context.WithCancel(ctx)
			go player.ListenKeyboard(keyboardCtx, p.TogglePause, p.RequestStep, stop, log)

			err := p.Run(ctx)
			cancelKeyboard()

			if err != nil {
				log.Error().Err(err).Str("file", path).Msg("mcap_player: playback failed")
				exitCode = 1
				break sequence
			}
			log.Info().Str("file", path).Uint64("messages", p.Stats()).Msg("mcap_player: file playback complete")
		}

		if !loop || ctx.Err() != nil {
			break
		}
		log.Info().Msg("mcap_player: looping file sequence")
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		metricsServer.Stop(shutdownCtx)
		cancel()
	}
	b.Shutdown()
	stop()

	os.Exit(exitCode)
}
