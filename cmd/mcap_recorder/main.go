// Command mcap_recorder subscribes to a filtered set of discovered bus
// topics and writes them to a segmented log file.
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
	"github.com/flowmesh/foxbridge/internal/recorder"
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
		fmt.Fprintf(os.Stderr, "mcap_recorder: config: %v\n", err)
		os.Exit(1)
	}

	var (
		outputStem        string
		allow, deny        topicList
		segmentSeconds     float64
		discoveryIntervalMS int
		codecName          string
	)

	fs := flag.NewFlagSet("record", flag.ExitOnError)
	cfg.BindFlags(fs)
	fs.StringVar(&outputStem, "o", "", "output file stem (empty derives from wall-clock timestamp)")
	fs.Var(&allow, "c", "allow-listed topic(s), space-separated, repeatable")
	fs.Var(&deny, "k", "deny-listed topic(s), space-separated, repeatable")
	fs.Float64Var(&segmentSeconds, "i", 0, "segment rotation interval in seconds (0 = single file)")
	fs.IntVar(&discoveryIntervalMS, "discovery-interval", 2000, "discovery poll period in milliseconds")
	fs.StringVar(&codecName, "codec", "zstd", "segment payload codec")
	fs.Parse(os.Args[1:])

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "mcap_recorder: invalid config: %v\n", err)
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
		ProcessName: "mcap_recorder",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "mcap_recorder: logger init: %v\n", err)
		os.Exit(1)
	}
	log := logger.WithComponent("mcap_recorder")
	log.Info().Str("version", version.Get().Version).Msg("starting mcap_recorder")

	if outputStem == "" {
		outputStem = fmt.Sprintf("record_%d", time.Now().Unix())
	}

	b := memorybus.New()
	if err := b.Init("mcap_recorder"); err != nil {
		log.Error().Err(err).Msg("bus init failed")
		os.Exit(1)
	}
	defer b.Shutdown()

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

	rec := recorder.New(b, registry, recorder.Config{
		OutputStem:        outputStem,
		Filter:            topicfilter.Filter{Allow: allow, Deny: deny},
		DiscoveryInterval: time.Duration(discoveryIntervalMS) * time.Millisecond,
		SegmentInterval:   time.Duration(segmentSeconds * float64(time.Second)),
		Codec:             codecName,
	}, bridge, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := rec.Run(ctx)
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		metricsServer.Stop(shutdownCtx)
		cancel()
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("mcap_recorder: exiting with error")
		os.Exit(1)
	}

	messages, bytes := rec.Stats()
	log.Info().Uint64("messages", messages).Uint64("bytes", bytes).Msg("mcap_recorder: clean shutdown")
}
