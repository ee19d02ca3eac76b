package logfile

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test_0.mcap")

	w, err := NewWriter(path, NoneCodec{})
	require.NoError(t, err)

	descriptorSet := []byte("descriptor-bytes")
	for i := 0; i < 5; i++ {
		err := w.WriteMessage("/a", "example.Foo", descriptorSet, int64(i)*1000, []byte("payload"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	sum, err := r.Summary()
	require.NoError(t, err)
	require.EqualValues(t, 5, sum.MessageCount)
	require.Len(t, sum.Channels, 1)
	require.Len(t, sum.Schemas, 1)

	require.NoError(t, r.Rewind())
	count := 0
	for {
		msg, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Equal(t, "/a", msg.Topic)
		require.Equal(t, "example.Foo", msg.TypeName)
		count++
	}
	require.Equal(t, 5, count)
}

func TestReaderScanFallsBackOnMissingTrailer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "untrailed.mcap")

	sw, err := newSegmentWriter(path, FsyncAlways)
	require.NoError(t, err)
	data, err := encodeRecord(RecordSchema, SchemaRecord{LocalID: 0, TypeName: "example.Foo"})
	require.NoError(t, err)
	_, err = sw.writeEntry(data)
	require.NoError(t, err)
	require.NoError(t, sw.close())

	r, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Summary()
	require.Error(t, err)

	sum, err := r.Scan()
	require.NoError(t, err)
	require.Len(t, sum.Schemas, 1)
	require.EqualValues(t, 0, sum.MessageCount)
}

func TestZstdCodecRoundTrip(t *testing.T) {
	c, err := NewZstdCodec()
	require.NoError(t, err)
	defer c.Close()

	orig := []byte("some payload bytes to compress")
	compressed, err := c.Compress(orig)
	require.NoError(t, err)
	decompressed, err := c.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, orig, decompressed)
}
