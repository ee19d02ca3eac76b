package logfile

import (
	"encoding/binary"
	"sync"
	"time"
)

// Writer owns one SegmentFile: its schema table, its channel table, and the
// message stream between them. Tables are local to the file and reset on
// rotation (handled by the caller, which opens a fresh Writer per segment).
type Writer struct {
	sw    *segmentWriter
	path  string
	codec Codec

	mu         sync.Mutex
	schemaIDs  map[string]uint32 // TypeName -> local schema id
	channelIDs map[string]uint32 // topic -> local channel id
	nextSchema uint32
	nextChan   uint32

	messageCount uint64
	byteCount    uint64
	earliestNS   int64
	latestNS     int64
	closed       bool
}

// NewWriter opens path for writing, truncating any existing content (a
// SegmentFile is always written fresh; rotation opens a new path).
func NewWriter(path string, codec Codec) (*Writer, error) {
	sw, err := newSegmentWriter(path, FsyncBatch)
	if err != nil {
		return nil, err
	}
	if codec == nil {
		codec = NoneCodec{}
	}
	return &Writer{
		sw:         sw,
		path:       path,
		codec:      codec,
		schemaIDs:  make(map[string]uint32),
		channelIDs: make(map[string]uint32),
	}, nil
}

// WriteMessage records one bus message, creating schema/channel table
// entries on first sight of a TypeName/topic within this file.
func (w *Writer) WriteMessage(topic, typeName string, descriptorSet []byte, publishTimeNS int64, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	schemaID, err := w.ensureSchema(typeName, descriptorSet)
	if err != nil {
		return err
	}
	channelID, err := w.ensureChannel(topic, schemaID)
	if err != nil {
		return err
	}

	compressed, err := w.codec.Compress(payload)
	if err != nil {
		return err
	}

	logTimeNS := time.Now().UnixNano()
	rec := MessageRecord{
		ChannelID:     channelID,
		PublishTimeNS: publishTimeNS,
		LogTimeNS:     logTimeNS,
		Payload:       compressed,
	}
	data, err := encodeRecord(RecordMessage, rec)
	if err != nil {
		return err
	}
	if _, err := w.sw.writeEntry(data); err != nil {
		return err
	}

	w.messageCount++
	w.byteCount += uint64(len(compressed))
	if w.earliestNS == 0 || logTimeNS < w.earliestNS {
		w.earliestNS = logTimeNS
	}
	if logTimeNS > w.latestNS {
		w.latestNS = logTimeNS
	}
	return nil
}

func (w *Writer) ensureSchema(typeName string, descriptorSet []byte) (uint32, error) {
	if id, ok := w.schemaIDs[typeName]; ok {
		return id, nil
	}
	id := w.nextSchema
	w.nextSchema++
	rec := SchemaRecord{LocalID: id, TypeName: typeName, DescriptorSet: descriptorSet, Encoding: "protobuf"}
	data, err := encodeRecord(RecordSchema, rec)
	if err != nil {
		return 0, err
	}
	if _, err := w.sw.writeEntry(data); err != nil {
		return 0, err
	}
	w.schemaIDs[typeName] = id
	return id, nil
}

func (w *Writer) ensureChannel(topic string, schemaID uint32) (uint32, error) {
	if id, ok := w.channelIDs[topic]; ok {
		return id, nil
	}
	id := w.nextChan
	w.nextChan++
	rec := ChannelRecord{LocalID: id, Topic: topic, SchemaID: schemaID}
	data, err := encodeRecord(RecordChannel, rec)
	if err != nil {
		return 0, err
	}
	if _, err := w.sw.writeEntry(data); err != nil {
		return 0, err
	}
	w.channelIDs[topic] = id
	return id, nil
}

// Close flushes, writes the trailer and its footer pointer, and closes the
// underlying file. A SegmentFile without a trailer is corrupt by
// construction — Close is the only place one gets written.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	trailer := TrailerRecord{
		MessageCount: w.messageCount,
		ByteCount:    w.byteCount,
		ChannelCount: uint32(len(w.channelIDs)),
		SchemaCount:  uint32(len(w.schemaIDs)),
		Codec:        w.codec.Name(),
		StartTimeNS:  w.earliestNS,
		EndTimeNS:    w.latestNS,
	}
	data, err := encodeRecord(RecordTrailer, trailer)
	if err != nil {
		return err
	}
	trailerOffset, err := w.sw.writeEntry(data)
	if err != nil {
		return err
	}

	footer := make([]byte, 8)
	binary.BigEndian.PutUint64(footer, uint64(trailerOffset))
	if err := w.sw.writeRaw(footer); err != nil {
		return err
	}

	if err := w.sw.flush(); err != nil {
		return err
	}
	return w.sw.close()
}

// Stats returns message/byte counts written so far, for rotation decisions.
func (w *Writer) Stats() (messages, bytes uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.messageCount, w.byteCount
}
