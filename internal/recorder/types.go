// Package recorder implements the Recorder component: a discovery task, N
// per-topic bounded ring queues converging on one writer task, and
// segmented log-file output via internal/logfile. The queue uses a
// per-resource lock with eviction bookkeeping; the writer task drains
// fully before close on shutdown.
package recorder

import (
	"time"

	"github.com/flowmesh/foxbridge/internal/topicfilter"
)

// Config configures one Recorder session.
type Config struct {
	// OutputStem is the segment file path prefix; rotation appends
	// "_<counter>.mcap". Callers derive a wall-clock default when empty.
	OutputStem string
	Filter     topicfilter.Filter

	DiscoveryInterval time.Duration
	// SegmentInterval is the segment rotation period; 0 means a single
	// file for the whole session.
	SegmentInterval time.Duration

	// QueueCapacity bounds each per-topic ring queue.
	QueueCapacity int

	Codec string // empty selects "none"; mcap_recorder's -codec flag defaults to "zstd"
}
