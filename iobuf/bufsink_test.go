package iobuf_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/iobuf"
)

// recordingSink counts downstream Write calls and can be told to fail on
// a specific call, to exercise BufferedSink's segment-boundary flushing
// and its close-time error combination.
type recordingSink struct {
	buf     iobuf.Buffer
	writes  int
	failAt  int // -1 means never fail
	closed  bool
	timeout iobuf.Deadline
}

func newRecordingSink() *recordingSink { return &recordingSink{failAt: -1} }

func (s *recordingSink) Write(src *iobuf.Buffer, n int64) error {
	s.writes++
	if err := s.buf.Write(src, n); err != nil {
		return err
	}
	if s.failAt >= 0 && s.writes == s.failAt {
		return errors.New("boom")
	}
	return nil
}

func (s *recordingSink) Flush() error           { return nil }
func (s *recordingSink) Timeout() *iobuf.Deadline { return &s.timeout }
func (s *recordingSink) Close() error           { s.closed = true; return nil }

var _ iobuf.Sink = (*recordingSink)(nil)

func TestBufferedSinkWriteAll(t *testing.T) {
	downstream := newRecordingSink()
	bsink := iobuf.NewBufferedSink(downstream)

	var src iobuf.Buffer
	src.WriteUtf8("all of this should arrive")

	n, err := bsink.WriteAll(&src)
	require.NoError(t, err)
	require.Equal(t, int64(len("all of this should arrive")), n)
	require.NoError(t, bsink.Close())

	got, err := downstream.buf.ReadUtf8All()
	require.NoError(t, err)
	require.Equal(t, "all of this should arrive", got)
}

func TestBufferedSinkEmitsOnlyCompleteSegments(t *testing.T) {
	downstream := newRecordingSink()
	bsink := iobuf.NewBufferedSink(downstream)

	require.NoError(t, bsink.WriteUtf8("short"))
	require.Equal(t, 0, downstream.writes, "a partial segment must not be emitted early")

	require.NoError(t, bsink.Flush())
	require.Equal(t, 1, downstream.writes)

	got, err := downstream.buf.ReadUtf8All()
	require.NoError(t, err)
	require.Equal(t, "short", got)
}

func TestBufferedSinkEmitsFullSegmentsAsTheyComplete(t *testing.T) {
	downstream := newRecordingSink()
	bsink := iobuf.NewBufferedSink(downstream)

	var src iobuf.Buffer
	src.WriteByteArray(make([]byte, iobuf.SegmentSize))
	require.NoError(t, bsink.Write(&src, src.Size()))
	require.Equal(t, 1, downstream.writes, "a full segment is emitted without an explicit flush")
	require.Equal(t, int64(iobuf.SegmentSize), downstream.buf.Size())
}

func TestBufferedSinkTypedWrites(t *testing.T) {
	downstream := newRecordingSink()
	bsink := iobuf.NewBufferedSink(downstream)

	require.NoError(t, bsink.WriteByte('x'))
	require.NoError(t, bsink.WriteShort(1))
	require.NoError(t, bsink.WriteInt(2))
	require.NoError(t, bsink.WriteLong(3))
	require.NoError(t, bsink.WriteDecimalLong(-42))
	require.NoError(t, bsink.WriteHexadecimalUnsignedLong(0xff))
	require.NoError(t, bsink.Flush())

	got, err := downstream.buf.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('x'), got)

	s, err := downstream.buf.ReadShort()
	require.NoError(t, err)
	require.Equal(t, int16(1), s)

	i, err := downstream.buf.ReadInt()
	require.NoError(t, err)
	require.Equal(t, int32(2), i)

	l, err := downstream.buf.ReadLong()
	require.NoError(t, err)
	require.Equal(t, int64(3), l)

	dec, err := downstream.buf.ReadDecimalLong()
	require.NoError(t, err)
	require.Equal(t, int64(-42), dec)

	hexv, err := downstream.buf.ReadHexadecimalUnsignedLong()
	require.NoError(t, err)
	require.Equal(t, uint64(0xff), hexv)
}

func TestBufferedSinkCloseNeverMasksAnEarlierWriteFailure(t *testing.T) {
	downstream := newRecordingSink()
	downstream.failAt = 1
	bsink := iobuf.NewBufferedSink(downstream)

	var src iobuf.Buffer
	src.WriteByteArray(make([]byte, iobuf.SegmentSize))
	writeErr := bsink.Write(&src, src.Size())
	require.Error(t, writeErr, "the downstream fails on its first Write")

	err := bsink.Close()
	require.Error(t, err)
	require.Equal(t, "boom", err.Error())
}

// TestBufferedSinkEmitRespectsDeadline is the sink-side counterpart of
// TestBufferedSourceRequestRespectsDeadline: the downstream Sink's
// Timeout must abort Emit before it reaches the downstream Write, so a
// transfer through a plain BufferedSink (not just ionet's connAdapter)
// honors an expired deadline.
func TestBufferedSinkEmitRespectsDeadline(t *testing.T) {
	downstream := newRecordingSink()
	downstream.timeout.SetDeadline(time.Now().Add(-time.Minute))
	bsink := iobuf.NewBufferedSink(downstream)

	require.NoError(t, bsink.WriteUtf8("short"))
	err := bsink.Flush()
	require.True(t, iobuf.Is(iobuf.Timeout, err))
	require.Equal(t, 0, downstream.writes, "the downstream Write is never reached once the deadline has passed")
}

func TestBufferedSinkCloseIsIdempotent(t *testing.T) {
	downstream := newRecordingSink()
	bsink := iobuf.NewBufferedSink(downstream)
	require.NoError(t, bsink.WriteUtf8("x"))
	require.NoError(t, bsink.Close())
	require.True(t, downstream.closed)
	require.NoError(t, bsink.Close())

	err := bsink.WriteUtf8("y")
	require.True(t, iobuf.Is(iobuf.Closed, err))
}
