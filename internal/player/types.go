// Package player implements the Player component: it opens a segment
// file, registers every contained schema back into the Schema Registry,
// creates bus publishers filtered by topic, and replays messages
// preserving inter-message time gaps, with a pause/resume/step/speed
// control surface and a raw-mode keyboard listener.
package player

import (
	"time"

	"github.com/flowmesh/foxbridge/internal/topicfilter"
)

// Config configures one playback pass over a single log file. cmd/mcap_player
// sequences multiple files and the loop-the-whole-sequence behavior
// ("-l" loops the full sequence) on top of this.
type Config struct {
	InputPath string
	Filter    topicfilter.Filter

	// SpeedFactor multiplies replay speed; 0 means step-only.
	SpeedFactor float64
	// Loop restarts this single file from the beginning on reaching EOF.
	Loop bool
	// StartOffset skips messages whose relative log-time falls before it.
	StartOffset time.Duration
}
