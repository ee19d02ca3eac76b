package metrics

// Metric name constants following Prometheus naming conventions.
// Format: flowmesh_{component}_{metric}_{unit}

const (
	MetricDiscoveryTicksTotal     = "flowmesh_discovery_ticks_total"
	MetricDiscoveryTopicsFound    = "flowmesh_discovery_topics_found_total"
	MetricDiscoveryTopicsLost     = "flowmesh_discovery_topics_lost_total"
	MetricDiscoveryServicesFound  = "flowmesh_discovery_services_found_total"
	MetricDiscoveryPendingRetries = "flowmesh_discovery_pending_retries"
)

const (
	MetricHubSubscribersTotal  = "flowmesh_hub_subscribers"
	MetricHubMessagesRelayed   = "flowmesh_hub_messages_relayed_total"
	MetricHubServiceCallsTotal = "flowmesh_hub_service_calls_total"
	MetricHubServiceCallErrors = "flowmesh_hub_service_call_errors_total"
)

const (
	MetricRecorderQueueDepth      = "flowmesh_recorder_queue_depth"
	MetricRecorderQueueDropsTotal = "flowmesh_recorder_queue_drops_total"
	MetricRecorderMessagesWritten = "flowmesh_recorder_messages_written_total"
	MetricRecorderBytesWritten    = "flowmesh_recorder_bytes_written_total"
	MetricRecorderSegmentRotation = "flowmesh_recorder_segment_rotations_total"
)

const (
	MetricPlayerMessagesPublished = "flowmesh_player_messages_published_total"
	MetricPlayerReplayLagSeconds  = "flowmesh_player_replay_lag_seconds"
	MetricPlayerPausedSeconds     = "flowmesh_player_paused_seconds_total"
)

// Label name constants.
const (
	LabelTopic     = "topic"
	LabelTypeName  = "type_name"
	LabelService   = "service"
	LabelComponent = "component"
	LabelResult    = "result"
)
