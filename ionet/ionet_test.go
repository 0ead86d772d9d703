package ionet_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grailbio/iobuf"
	"github.com/grailbio/iobuf/ionet"
)

func pipeAdapters(t *testing.T) (iobuf.Source, iobuf.Sink, iobuf.Source, iobuf.Sink, func()) {
	t.Helper()
	a, b := net.Pipe()
	srcA, sinkA, closeA, err := adaptersFor(a)
	require.NoError(t, err)
	srcB, sinkB, closeB, err := adaptersFor(b)
	require.NoError(t, err)
	return srcA, sinkA, srcB, sinkB, func() { closeA(); closeB() }
}

// adaptersFor exercises the same connAdapter ionet.Dial builds, but
// over an already-connected net.Conn (net.Pipe has no address to dial).
func adaptersFor(conn net.Conn) (iobuf.Source, iobuf.Sink, func() error, error) {
	return ionet.WrapConn(conn)
}

func TestPipeRoundTrip(t *testing.T) {
	srcA, sinkA, srcB, sinkB, closeAll := pipeAdapters(t)
	defer closeAll()

	done := make(chan error, 1)
	go func() {
		var msg iobuf.Buffer
		msg.WriteByteArray([]byte("ping"))
		done <- sinkA.Write(&msg, msg.Size())
	}()

	var got iobuf.Buffer
	n, err := srcB.Read(&got, 4)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
	require.NoError(t, <-done)

	s, err := got.ReadUtf8All()
	require.NoError(t, err)
	require.Equal(t, "ping", s)
}

func TestTimeoutSyncsToDeadline(t *testing.T) {
	srcA, _, _, sinkB, closeAll := pipeAdapters(t)
	defer closeAll()
	_ = sinkB

	srcA.Timeout().SetTimeout(10 * time.Millisecond)
	var dst iobuf.Buffer
	_, err := srcA.Read(&dst, 1)
	require.Error(t, err)
}
