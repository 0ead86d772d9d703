package iobuf_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/iobuf"
)

// chunkSource serves data out in fixed-size pieces, regardless of how
// much the caller asks for, to exercise BufferedSource's refill loop the
// way a real file or socket source would (arbitrarily-chunked reads).
type chunkSource struct {
	data    []byte
	pos     int
	chunk   int
	closed  bool
	timeout iobuf.Deadline
}

func newChunkSource(data string, chunk int) *chunkSource {
	return &chunkSource{data: []byte(data), chunk: chunk}
}

func (c *chunkSource) Read(sink *iobuf.Buffer, byteCount int64) (int64, error) {
	if c.pos >= len(c.data) {
		return -1, nil
	}
	n := c.chunk
	if remain := len(c.data) - c.pos; n > remain {
		n = remain
	}
	if int64(n) > byteCount {
		n = int(byteCount)
	}
	sink.WriteByteArray(c.data[c.pos : c.pos+n])
	c.pos += n
	return int64(n), nil
}

func (c *chunkSource) Timeout() *iobuf.Deadline { return &c.timeout }
func (c *chunkSource) Close() error            { c.closed = true; return nil }

var _ iobuf.Source = (*chunkSource)(nil)

func TestBufferedSourceRequestAcrossRefills(t *testing.T) {
	src := newChunkSource("0123456789", 3)
	bsrc := iobuf.NewBufferedSource(src)

	got, err := bsrc.ReadByteArray(10)
	require.NoError(t, err)
	require.Equal(t, "0123456789", string(got))
}

func TestBufferedSourceRequireFailsAtExhaustion(t *testing.T) {
	src := newChunkSource("abc", 2)
	bsrc := iobuf.NewBufferedSource(src)
	_, err := bsrc.ReadByteArray(10)
	require.True(t, iobuf.Is(iobuf.UnexpectedEnd, err))
}

func TestBufferedSourceReadDecimalAndHex(t *testing.T) {
	src := newChunkSource("-4200|1a2b|rest", 4)
	bsrc := iobuf.NewBufferedSource(src)

	v, err := bsrc.ReadDecimalLong()
	require.NoError(t, err)
	require.Equal(t, int64(-4200), v)

	pipe, err := bsrc.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('|'), pipe)

	h, err := bsrc.ReadHexadecimalUnsignedLong()
	require.NoError(t, err)
	require.Equal(t, uint64(0x1a2b), h)
}

func TestBufferedSourceReadUtf8LineAcrossRefills(t *testing.T) {
	src := newChunkSource("first line\nsecond line\n", 5)
	bsrc := iobuf.NewBufferedSource(src)

	l1, ok, err := bsrc.ReadUtf8Line()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first line", l1)

	l2, err := bsrc.ReadUtf8LineStrict(100)
	require.NoError(t, err)
	require.Equal(t, "second line", l2)
}

func TestBufferedSourceReadAllDrainsDownstream(t *testing.T) {
	src := newChunkSource("the entire payload", 6)
	bsrc := iobuf.NewBufferedSource(src)

	var dst iobuf.Buffer
	n, err := bsrc.ReadAll(&dst)
	require.NoError(t, err)
	require.Equal(t, int64(len("the entire payload")), n)

	got, err := dst.ReadUtf8All()
	require.NoError(t, err)
	require.Equal(t, "the entire payload", got)
}

func TestBufferedSourceIndexOfByteStringAcrossRefills(t *testing.T) {
	src := newChunkSource("aaaaaaaaaaneedleaaaaaaaaaa", 3)
	bsrc := iobuf.NewBufferedSource(src)

	idx, err := bsrc.IndexOfByteString(iobuf.NewByteString([]byte("needle")), 0, 26)
	require.NoError(t, err)
	require.Equal(t, int64(10), idx)
}

func TestBufferedSourceSelectAcrossRefills(t *testing.T) {
	src := newChunkSource("HEADERrest", 2)
	bsrc := iobuf.NewBufferedSource(src)
	opts := iobuf.NewOptions(bs("HEADER"), bs("H"))

	idx, err := bsrc.Select(opts)
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	rest, err := bsrc.ReadUtf8All()
	require.NoError(t, err)
	require.Equal(t, "rest", rest)
}

func TestBufferedSourcePeekDoesNotConsume(t *testing.T) {
	src := newChunkSource("peek me, then read me", 4)
	bsrc := iobuf.NewBufferedSource(src)

	peek := bsrc.Peek()
	peeked, err := peek.ReadByteArray(8)
	require.NoError(t, err)
	require.Equal(t, "peek me,", string(peeked))

	full, err := bsrc.ReadByteArray(8)
	require.NoError(t, err)
	require.Equal(t, "peek me,", string(full))
}

func TestBufferedSourcePeekInvalidatedByConsumption(t *testing.T) {
	src := newChunkSource("0123456789", 4)
	bsrc := iobuf.NewBufferedSource(src)

	peek := bsrc.Peek()
	_, err := bsrc.ReadByteArray(2)
	require.NoError(t, err)

	_, err = peek.ReadByteArray(1)
	require.True(t, iobuf.Is(iobuf.InvalidState, err))
}

// TestBufferedSourceRequestRespectsDeadline exercises the core transfer
// loop's Timeout wiring: an expired deadline on the downstream Source
// must abort a multi-segment Request before it ever reaches end-of-input,
// not just when a direct net.Conn is involved (ionet already covered
// that case; the core BufferedSource loop previously checked nothing).
func TestBufferedSourceRequestRespectsDeadline(t *testing.T) {
	src := newChunkSource("0123456789", 3)
	src.timeout.SetDeadline(time.Now().Add(-time.Minute))
	bsrc := iobuf.NewBufferedSource(src)

	_, err := bsrc.ReadByteArray(10)
	require.True(t, iobuf.Is(iobuf.Timeout, err))
}

// TestBufferedSourceRequestRespectsCancel is the cooperative-cancellation
// counterpart of TestBufferedSourceRequestRespectsDeadline.
func TestBufferedSourceRequestRespectsCancel(t *testing.T) {
	src := newChunkSource("0123456789", 3)
	cancel := make(chan struct{})
	close(cancel)
	src.timeout.SetCancel(cancel)
	bsrc := iobuf.NewBufferedSource(src)

	_, err := bsrc.ReadByteArray(10)
	require.True(t, iobuf.Is(iobuf.Timeout, err))
}

func TestBufferedSourceCloseIsIdempotentAndClosesDownstream(t *testing.T) {
	src := newChunkSource("x", 1)
	bsrc := iobuf.NewBufferedSource(src)
	require.NoError(t, bsrc.Close())
	require.True(t, src.closed)
	require.NoError(t, bsrc.Close())

	_, err := bsrc.ReadByte()
	require.True(t, iobuf.Is(iobuf.Closed, err))
}
