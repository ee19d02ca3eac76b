// Command fox_bridge is the live bridge: it exposes discovered bus topics
// and allow-listed services to a websocket-connected visualization sink.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowmesh/foxbridge/internal/bus/memorybus"
	"github.com/flowmesh/foxbridge/internal/config"
	"github.com/flowmesh/foxbridge/internal/discovery"
	"github.com/flowmesh/foxbridge/internal/hub"
	"github.com/flowmesh/foxbridge/internal/logger"
	"github.com/flowmesh/foxbridge/internal/metrics"
	"github.com/flowmesh/foxbridge/internal/schema"
	"github.com/flowmesh/foxbridge/internal/sink"
	"github.com/flowmesh/foxbridge/internal/tracing"
	"github.com/flowmesh/foxbridge/internal/translator"
	"github.com/flowmesh/foxbridge/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fox_bridge: config: %v\n", err)
		os.Exit(1)
	}

	var (
		listenAddr          string
		discoveryIntervalMS int
		callTimeoutMS       int
	)

	fs := flag.NewFlagSet("bridge", flag.ExitOnError)
	cfg.BindFlags(fs)
	fs.StringVar(&listenAddr, "listen", ":8765", "websocket sink listen address")
	fs.IntVar(&discoveryIntervalMS, "discovery-interval", 500, "discovery poll period in milliseconds")
	fs.IntVar(&callTimeoutMS, "service-call-timeout", 5000, "service call timeout in milliseconds")
	fs.Parse(os.Args[1:])

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "fox_bridge: invalid config: %v\n", err)
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
		ProcessName: "fox_bridge",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "fox_bridge: logger init: %v\n", err)
		os.Exit(1)
	}
	log := logger.WithComponent("fox_bridge")
	log.Info().Str("version", version.Get().Version).Str("listen", listenAddr).Msg("starting fox_bridge")

	b := memorybus.New()
	if err := b.Init("fox_bridge"); err != nil {
		log.Error().Err(err).Msg("bus init failed")
		os.Exit(1)
	}

	registry := schema.New(log)
	tr := translator.New(registry)

	tracingProvider, err := tracing.NewProvider(tracing.TracingConfig{
		Enabled:        false,
		ServiceName:    "fox_bridge",
		ServiceVersion: version.Get().Version,
	})
	if err != nil {
		log.Error().Err(err).Msg("tracing init failed")
		os.Exit(1)
	}
	tracer := tracingProvider.GetTracer("fox_bridge/hub")

	collector := metrics.NewCollector()
	bridgeMetrics := metrics.NewBridge(collector)
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, collector.GetRegistry())
		if err := metricsServer.Start(context.Background()); err != nil {
			log.Warn().Err(err).Msg("metrics server failed to start")
		}
	}

	h := hub.New(b, registry, tr, tracer, time.Duration(callTimeoutMS)*time.Millisecond, log)

	disc := discovery.New(b, registry, discovery.DefaultAllowList, time.Duration(discoveryIntervalMS)*time.Millisecond, log)
	disc.OnTopicFound = func(tf discovery.TopicFound) {
		bridgeMetrics.DiscoveryFound.WithLabelValues(tf.Topic).Inc()
		h.OnTopicFound(tf)
	}
	disc.OnTopicLost = func(topic string) {
		bridgeMetrics.DiscoveryLost.WithLabelValues(topic).Inc()
		h.OnTopicLost(topic)
	}
	disc.OnServiceFound = func(sf discovery.ServiceFound) {
		bridgeMetrics.DiscoveryServices.WithLabelValues(sf.Name).Inc()
		h.RegisterService(sf)
	}

	wsHub := sink.NewHub(h, log)
	wsHub.WireCore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go disc.Run(ctx)
	go wsHub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/sink", wsHub.ServeHTTP)
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErrCh:
		log.Error().Err(err).Msg("fox_bridge: websocket listener failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsServer.Stop(shutdownCtx)
	}
	if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown failed")
	}
	b.Shutdown()

	log.Info().Msg("fox_bridge: clean shutdown")
}
