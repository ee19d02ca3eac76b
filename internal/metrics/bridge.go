package metrics

import "github.com/prometheus/client_golang/prometheus"

// Bridge bundles the counters/gauges the discovery/hub/recorder/player
// packages update, registered against one Collector — adapted from the
// teacher's per-domain metrics files (queues.go/streams.go) into one
// bridge-domain set.
type Bridge struct {
	DiscoveryTicks     *prometheus.CounterVec
	DiscoveryFound     *prometheus.CounterVec
	DiscoveryLost      *prometheus.CounterVec
	DiscoveryServices  *prometheus.CounterVec

	HubSubscribers  *prometheus.GaugeVec
	HubRelayed      *prometheus.CounterVec
	HubServiceCalls *prometheus.CounterVec
	HubServiceErrs  *prometheus.CounterVec

	RecorderQueueDepth *prometheus.GaugeVec
	RecorderDrops      *prometheus.CounterVec
	RecorderWritten    *prometheus.CounterVec
	RecorderBytes      *prometheus.CounterVec
	RecorderRotations  prometheus.Counter

	PlayerPublished *prometheus.CounterVec
	PlayerLag       *prometheus.GaugeVec
}

// NewBridge registers every bridge-domain metric against collector.
func NewBridge(collector *Collector) *Bridge {
	return &Bridge{
		DiscoveryTicks:    collector.RegisterCounter(MetricDiscoveryTicksTotal, "discovery ticks processed", nil),
		DiscoveryFound:    collector.RegisterCounter(MetricDiscoveryTopicsFound, "topics discovered", []string{LabelTopic}),
		DiscoveryLost:     collector.RegisterCounter(MetricDiscoveryTopicsLost, "topics lost", []string{LabelTopic}),
		DiscoveryServices: collector.RegisterCounter(MetricDiscoveryServicesFound, "services discovered", []string{LabelService}),

		HubSubscribers:  collector.RegisterGauge(MetricHubSubscribersTotal, "active sink subscribers", []string{LabelTopic}),
		HubRelayed:      collector.RegisterCounter(MetricHubMessagesRelayed, "messages relayed to sinks", []string{LabelTopic}),
		HubServiceCalls: collector.RegisterCounter(MetricHubServiceCallsTotal, "service calls issued", []string{LabelService}),
		HubServiceErrs:  collector.RegisterCounter(MetricHubServiceCallErrors, "service calls that failed", []string{LabelService}),

		RecorderQueueDepth: collector.RegisterGauge(MetricRecorderQueueDepth, "recorder queue depth", []string{LabelTopic}),
		RecorderDrops:      collector.RegisterCounter(MetricRecorderQueueDropsTotal, "messages dropped on queue overflow", []string{LabelTopic}),
		RecorderWritten:    collector.RegisterCounter(MetricRecorderMessagesWritten, "messages written to segment files", []string{LabelTopic}),
		RecorderBytes:      collector.RegisterCounter(MetricRecorderBytesWritten, "bytes written to segment files", []string{LabelTopic}),
		RecorderRotations:  collector.RegisterCounter(MetricRecorderSegmentRotation, "segment rotations performed", nil).WithLabelValues(),

		PlayerPublished: collector.RegisterCounter(MetricPlayerMessagesPublished, "messages republished during playback", []string{LabelTopic}),
		PlayerLag:       collector.RegisterGauge(MetricPlayerReplayLagSeconds, "difference between target and actual publish wall time", []string{LabelTopic}),
	}
}
