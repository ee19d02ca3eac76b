package logfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ResolvedMessage is one message record with its channel and schema
// resolved back to a topic name and TypeName.
type ResolvedMessage struct {
	Topic         string
	TypeName      string
	DescriptorSet []byte
	PublishTimeNS int64
	LogTimeNS     int64
	Payload       []byte
}

// Reader reads a SegmentFile written by Writer. Schema/channel tables are
// rebuilt incrementally as records are encountered, mirroring how they were
// written — append-only and local to the file.
type Reader struct {
	path     string
	sr       *segmentReader
	log      zerolog.Logger
	schemas  map[uint32]SchemaRecord
	channels map[uint32]ChannelRecord
	codec    Codec
}

// Open opens path for reading.
func Open(path string, log zerolog.Logger) (*Reader, error) {
	sr, err := newSegmentReader(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		path:     path,
		sr:       sr,
		log:      log,
		schemas:  make(map[uint32]SchemaRecord),
		channels: make(map[uint32]ChannelRecord),
		codec:    NoneCodec{},
	}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.sr.close()
}

// Rewind resets the read cursor to the start of the file, clearing the
// incrementally-built schema/channel tables so a fresh pass rebuilds them.
func (r *Reader) Rewind() error {
	r.schemas = make(map[uint32]SchemaRecord)
	r.channels = make(map[uint32]ChannelRecord)
	_, err := r.sr.seek(0, io.SeekStart)
	return err
}

// Summary reads the file's trailer via its trailing footer pointer, then a
// forward pass to rebuild the schema/channel tables, and leaves the read
// cursor at the start of the file. Callers fall back to Scan on error (an
// untrailed or truncated file).
func (r *Reader) Summary() (Summary, error) {
	trailer, err := r.readTrailer()
	if err != nil {
		return Summary{}, err
	}
	if err := r.Rewind(); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Schemas:      make(map[uint32]SchemaRecord),
		Channels:     make(map[uint32]ChannelRecord),
		MessageCount: trailer.MessageCount,
		ByteCount:    trailer.ByteCount,
		Codec:        trailer.Codec,
		EarliestLog:  time.Unix(0, trailer.StartTimeNS),
		LatestLog:    time.Unix(0, trailer.EndTimeNS),
	}

	for uint32(len(sum.Schemas)) < trailer.SchemaCount || uint32(len(sum.Channels)) < trailer.ChannelCount {
		data, _, err := r.sr.readEntry()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Summary{}, err
		}
		kind, body := decodeRecordKind(data)
		switch kind {
		case RecordSchema:
			rec, err := decodeSchema(body)
			if err != nil {
				return Summary{}, err
			}
			sum.Schemas[rec.LocalID] = rec
		case RecordChannel:
			rec, err := decodeChannel(body)
			if err != nil {
				return Summary{}, err
			}
			sum.Channels[rec.LocalID] = rec
		case RecordTrailer:
			// reached the trailer before collecting every table entry; the
			// counts in the trailer exceed what's actually in the file —
			// treat as corrupt.
			return Summary{}, UntrailedFileError{Path: r.path}
		}
	}

	// The table pass may have stepped over message records; return the
	// cursor to the start so Next replays every message.
	if _, err := r.sr.seek(0, io.SeekStart); err != nil {
		return Summary{}, err
	}

	r.schemas = sum.Schemas
	r.channels = sum.Channels
	return sum, nil
}

// Scan performs a full, tolerant forward pass: it rebuilds the schema and
// channel tables and counts messages/bytes by reading every record,
// skipping (and logging) any entry that fails to decode rather than
// aborting. Used when Summary's fast path fails.
func (r *Reader) Scan() (Summary, error) {
	if err := r.Rewind(); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Schemas:  make(map[uint32]SchemaRecord),
		Channels: make(map[uint32]ChannelRecord),
	}

	for {
		data, _, err := r.sr.readEntry()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.log.Warn().Err(err).Str("file", r.path).Msg("skipping corrupt entry during scan")
			continue
		}
		kind, body := decodeRecordKind(data)
		switch kind {
		case RecordSchema:
			rec, err := decodeSchema(body)
			if err != nil {
				continue
			}
			sum.Schemas[rec.LocalID] = rec
		case RecordChannel:
			rec, err := decodeChannel(body)
			if err != nil {
				continue
			}
			sum.Channels[rec.LocalID] = rec
		case RecordMessage:
			rec, err := decodeMessage(body)
			if err != nil {
				continue
			}
			sum.MessageCount++
			sum.ByteCount += uint64(len(rec.Payload))
			t := time.Unix(0, rec.LogTimeNS)
			if sum.EarliestLog.IsZero() || t.Before(sum.EarliestLog) {
				sum.EarliestLog = t
			}
			if t.After(sum.LatestLog) {
				sum.LatestLog = t
			}
		case RecordTrailer:
			rec, err := decodeTrailer(body)
			if err == nil {
				sum.Codec = rec.Codec
			}
		}
	}

	r.schemas = sum.Schemas
	r.channels = sum.Channels
	return sum, nil
}

// Next returns the next resolved message in file order (which is log-time
// order, since the writer stamps log-time at append). Returns io.EOF at the
// end of the stream.
func (r *Reader) Next() (*ResolvedMessage, error) {
	for {
		data, _, err := r.sr.readEntry()
		if err != nil {
			return nil, err
		}
		kind, body := decodeRecordKind(data)
		switch kind {
		case RecordSchema:
			rec, err := decodeSchema(body)
			if err != nil {
				return nil, err
			}
			r.schemas[rec.LocalID] = rec
		case RecordChannel:
			rec, err := decodeChannel(body)
			if err != nil {
				return nil, err
			}
			r.channels[rec.LocalID] = rec
		case RecordTrailer:
			return nil, io.EOF
		case RecordMessage:
			rec, err := decodeMessage(body)
			if err != nil {
				return nil, err
			}
			ch, ok := r.channels[rec.ChannelID]
			if !ok {
				return nil, fmt.Errorf("message references unknown channel id %d", rec.ChannelID)
			}
			sc, ok := r.schemas[ch.SchemaID]
			if !ok {
				return nil, fmt.Errorf("channel %q references unknown schema id %d", ch.Topic, ch.SchemaID)
			}
			payload, err := r.codec.Decompress(rec.Payload)
			if err != nil {
				return nil, err
			}
			return &ResolvedMessage{
				Topic:         ch.Topic,
				TypeName:      sc.TypeName,
				DescriptorSet: sc.DescriptorSet,
				PublishTimeNS: rec.PublishTimeNS,
				LogTimeNS:     rec.LogTimeNS,
				Payload:       payload,
			}, nil
		default:
			return nil, fmt.Errorf("unknown record type %d", kind)
		}
	}
}

// SetCodec installs the decompressor used for message payloads, selected
// from the trailer's recorded codec name.
func (r *Reader) SetCodec(c Codec) {
	r.codec = c
}

func (r *Reader) readTrailer() (TrailerRecord, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return TrailerRecord{}, err
	}
	if info.Size() < 8 {
		return TrailerRecord{}, UntrailedFileError{Path: r.path}
	}
	if _, err := r.sr.seek(-8, io.SeekEnd); err != nil {
		return TrailerRecord{}, err
	}
	footer := make([]byte, 8)
	if _, err := io.ReadFull(r.sr.file, footer); err != nil {
		return TrailerRecord{}, UntrailedFileError{Path: r.path}
	}
	trailerOffset := int64(binary.BigEndian.Uint64(footer))

	if _, err := r.sr.seek(trailerOffset, io.SeekStart); err != nil {
		return TrailerRecord{}, err
	}
	data, _, err := r.sr.readEntry()
	if err != nil {
		return TrailerRecord{}, UntrailedFileError{Path: r.path}
	}
	kind, body := decodeRecordKind(data)
	if kind != RecordTrailer {
		return TrailerRecord{}, UntrailedFileError{Path: r.path}
	}
	return decodeTrailer(body)
}
