// Package ionet adapts net.Conn into the iobuf Source/Sink algebra,
// wiring each connection's Timeout handle to net.Conn.SetDeadline so a
// buffered transfer's per-segment timeout check is backed by a real
// socket deadline.
package ionet

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grailbio/iobuf"
)

// WrapConn wraps an already-connected net.Conn as an iobuf.Source and
// iobuf.Sink pair sharing it, plus a close function. Dial and DialAll
// are thin callers of this for the common case of dialing first.
func WrapConn(conn net.Conn) (iobuf.Source, iobuf.Sink, func() error, error) {
	c := &connAdapter{conn: conn}
	return c, c, conn.Close, nil
}

// Dial connects to addr over network (e.g. "tcp"), returning the
// connection wrapped as an iobuf.Source and iobuf.Sink pair sharing
// one underlying net.Conn, plus a function that closes it.
func Dial(ctx context.Context, network, addr string) (iobuf.Source, iobuf.Sink, func() error, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, nil, nil, err
	}
	return WrapConn(conn)
}

// DialAll dials every address in addrs concurrently (via errgroup) and
// returns the first connection to succeed, closing the rest. It
// returns an error only if every dial fails.
func DialAll(ctx context.Context, network string, addrs []string) (iobuf.Source, iobuf.Sink, func() error, error) {
	if len(addrs) == 0 {
		return nil, nil, nil, fmt.Errorf("ionet: DialAll: no addresses")
	}
	type result struct {
		conn net.Conn
		err  error
	}
	results := make(chan result, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range addrs {
		addr := addr
		g.Go(func() error {
			var d net.Dialer
			conn, err := d.DialContext(gctx, network, addr)
			results <- result{conn: conn, err: err}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	var winner net.Conn
	var lastErr error
	for r := range results {
		if r.err != nil {
			lastErr = r.err
			continue
		}
		if winner == nil {
			winner = r.conn
		} else {
			_ = r.conn.Close()
		}
	}
	if winner == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("ionet: DialAll: no address reachable")
		}
		return nil, nil, nil, lastErr
	}
	return WrapConn(winner)
}

// connAdapter implements both iobuf.Source and iobuf.Sink over a
// single net.Conn. Its Timeout handle is synced onto the connection's
// real deadline immediately before every blocking Read/Write, so
// SetDeadline/SetTimeout on the handle actually governs the socket.
type connAdapter struct {
	conn    net.Conn
	timeout iobuf.Deadline
}

func (c *connAdapter) syncDeadline() {
	if d, ok := c.timeout.Deadline(); ok {
		_ = c.conn.SetDeadline(d)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
}

// Read implements iobuf.Source by reading directly into dst's segment
// memory, up to SegmentSize bytes per call.
func (c *connAdapter) Read(dst *iobuf.Buffer, byteCount int64) (int64, error) {
	want := byteCount
	if want > iobuf.SegmentSize {
		want = iobuf.SegmentSize
	}
	var cur iobuf.UnsafeCursor
	dst.ReadAndWriteUnsafe(&cur)
	defer cur.Close()
	added := cur.ExpandBuffer(int(want))
	buf := cur.Data[cur.Start : cur.Start+added]
	if len(buf) > int(want) {
		buf = buf[:want]
	}
	c.syncDeadline()
	n, err := c.conn.Read(buf)
	if n < added {
		cur.ResizeBuffer(dst.Size() - int64(added-n))
	}
	if n == 0 {
		if err != nil {
			return -1, err
		}
		return -1, nil
	}
	return int64(n), err
}

// Write implements iobuf.Sink, writing exactly byteCount bytes.
func (c *connAdapter) Write(src *iobuf.Buffer, byteCount int64) error {
	p, err := src.ReadByteArray(byteCount)
	if err != nil {
		return err
	}
	for len(p) > 0 {
		c.syncDeadline()
		n, err := c.conn.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// Flush implements iobuf.Sink; a socket has no local buffering to
// flush beyond what the kernel already manages.
func (c *connAdapter) Flush() error { return nil }

// Timeout implements iobuf.Source/Sink.
func (c *connAdapter) Timeout() *iobuf.Deadline { return &c.timeout }

func (c *connAdapter) Close() error { return c.conn.Close() }

var (
	_ iobuf.Source = (*connAdapter)(nil)
	_ iobuf.Sink   = (*connAdapter)(nil)
)
