package logfile

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

func encodeRecord(kind RecordType, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(kind))
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode %v record: %w", kind, err)
	}
	return buf.Bytes(), nil
}

func decodeRecordKind(data []byte) (RecordType, []byte) {
	if len(data) == 0 {
		return 0, nil
	}
	return RecordType(data[0]), data[1:]
}

func decodeSchema(body []byte) (SchemaRecord, error) {
	var rec SchemaRecord
	err := gob.NewDecoder(bytes.NewReader(body)).Decode(&rec)
	return rec, err
}

func decodeChannel(body []byte) (ChannelRecord, error) {
	var rec ChannelRecord
	err := gob.NewDecoder(bytes.NewReader(body)).Decode(&rec)
	return rec, err
}

func decodeMessage(body []byte) (MessageRecord, error) {
	var rec MessageRecord
	err := gob.NewDecoder(bytes.NewReader(body)).Decode(&rec)
	return rec, err
}

func decodeTrailer(body []byte) (TrailerRecord, error) {
	var rec TrailerRecord
	err := gob.NewDecoder(bytes.NewReader(body)).Decode(&rec)
	return rec, err
}
