// Package logfile implements the segmented, content-addressed log format
// used by the recorder and player: a sequence of length-prefixed,
// checksummed entries carrying schema records, channel records, message
// records, and a closing trailer.
package logfile

import "time"

// RecordType tags the kind of payload carried by a framed entry.
type RecordType byte

const (
	RecordSchema  RecordType = 1
	RecordChannel RecordType = 2
	RecordMessage RecordType = 3
	RecordTrailer RecordType = 4
)

// SchemaRecord binds a file-local schema id to a TypeName and its
// transitively-closed descriptor set.
type SchemaRecord struct {
	LocalID       uint32
	TypeName      string
	DescriptorSet []byte
	Encoding      string // "protobuf" unless overridden
}

// ChannelRecord binds a file-local channel id to a topic and the schema it
// carries.
type ChannelRecord struct {
	LocalID  uint32
	Topic    string
	SchemaID uint32
}

// MessageRecord is one published message, timestamped twice: once by the
// bus at publish time, once by the writer at the moment it hit disk.
type MessageRecord struct {
	ChannelID     uint32
	PublishTimeNS int64
	LogTimeNS     int64
	Payload       []byte
}

// TrailerRecord closes a SegmentFile. Its absence marks the file corrupt.
type TrailerRecord struct {
	MessageCount uint64
	ByteCount    uint64
	ChannelCount uint32
	SchemaCount  uint32
	Codec        string
	StartTimeNS  int64
	EndTimeNS    int64
}

// Summary is what Reader.Summary returns: the schema/channel tables plus
// aggregate statistics, without replaying every message.
type Summary struct {
	Schemas      map[uint32]SchemaRecord
	Channels     map[uint32]ChannelRecord
	MessageCount uint64
	ByteCount    uint64
	Codec        string
	EarliestLog  time.Time
	LatestLog    time.Time
}
