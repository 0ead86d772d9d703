package iocompress_test

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/DataDog/zstd"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/iobuf"
	"github.com/grailbio/iobuf/iocompress"
)

type bufferSource struct{ buf iobuf.Buffer }

func (s *bufferSource) Read(dst *iobuf.Buffer, byteCount int64) (int64, error) {
	if s.buf.IsEmpty() {
		return -1, nil
	}
	n := s.buf.Size()
	if n > byteCount {
		n = byteCount
	}
	if err := dst.Write(&s.buf, n); err != nil {
		return -1, err
	}
	return n, nil
}
func (s *bufferSource) Timeout() *iobuf.Deadline { return &iobuf.Deadline{} }
func (s *bufferSource) Close() error            { return nil }

type bufferSink struct{ buf iobuf.Buffer }

func (s *bufferSink) Write(src *iobuf.Buffer, n int64) error { return s.buf.Write(src, n) }
func (s *bufferSink) Flush() error                           { return nil }
func (s *bufferSink) Timeout() *iobuf.Deadline                { return &iobuf.Deadline{} }
func (s *bufferSink) Close() error                            { return nil }

func TestGzipRoundTrip(t *testing.T) {
	var raw bytes.Buffer
	gz := gzip.NewWriter(&raw)
	_, err := gz.Write([]byte("hello, compressed world, repeated repeated repeated"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	src := &bufferSource{}
	src.buf.WriteByteArray(raw.Bytes())

	gzSrc, err := iocompress.NewGzipSource(src)
	require.NoError(t, err)
	bs := iobuf.NewBufferedSource(gzSrc)
	got, err := bs.ReadByteArrayAll()
	require.NoError(t, err)
	require.Equal(t, "hello, compressed world, repeated repeated repeated", string(got))
}

func TestGzipSinkRoundTrip(t *testing.T) {
	sink := &bufferSink{}
	gzSink := iocompress.NewGzipSink(sink)
	bsink := iobuf.NewBufferedSink(gzSink)
	require.NoError(t, bsink.WriteUtf8("round trip through a real gzip writer"))
	require.NoError(t, bsink.Close())

	r, err := gzip.NewReader(bytes.NewReader(sinkBytes(t, &sink.buf)))
	require.NoError(t, err)
	var out bytes.Buffer
	_, err = out.ReadFrom(r)
	require.NoError(t, err)
	require.Equal(t, "round trip through a real gzip writer", out.String())
}

func TestZstdRoundTrip(t *testing.T) {
	compressed, err := zstd.Compress(nil, []byte("zstd payload, compressed then decompressed"))
	require.NoError(t, err)

	src := &bufferSource{}
	src.buf.WriteByteArray(compressed)

	zSrc := iocompress.NewZstdSource(src)
	bs := iobuf.NewBufferedSource(zSrc)
	got, err := bs.ReadByteArrayAll()
	require.NoError(t, err)
	require.Equal(t, "zstd payload, compressed then decompressed", string(got))
}

func TestDetectAndWrapGzip(t *testing.T) {
	var raw bytes.Buffer
	gz := gzip.NewWriter(&raw)
	_, err := gz.Write([]byte("detected via magic bytes"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	src := &bufferSource{}
	src.buf.WriteByteArray(raw.Bytes())
	bs := iobuf.NewBufferedSource(src)

	wrapped, err := iocompress.DetectAndWrap(bs)
	require.NoError(t, err)
	got, err := iobuf.NewBufferedSource(wrapped).ReadByteArrayAll()
	require.NoError(t, err)
	require.Equal(t, "detected via magic bytes", string(got))
}

func TestDetectAndWrapPassesThroughUncompressed(t *testing.T) {
	src := &bufferSource{}
	src.buf.WriteByteArray([]byte("plain text, no magic bytes here"))
	bs := iobuf.NewBufferedSource(src)

	wrapped, err := iocompress.DetectAndWrap(bs)
	require.NoError(t, err)
	got, err := iobuf.NewBufferedSource(wrapped).ReadByteArrayAll()
	require.NoError(t, err)
	require.Equal(t, "plain text, no magic bytes here", string(got))
}

func sinkBytes(t *testing.T, buf *iobuf.Buffer) []byte {
	t.Helper()
	got, err := buf.ReadByteArray(buf.Size())
	require.NoError(t, err)
	return got
}
