package iobuf

// peekSource is a non-consuming read window onto a BufferedSource's
// current head. It records the upstream's epoch (total bytes ever
// consumed) at construction; if that epoch advances before the peek
// source is done, the upstream's buffer has moved out from under it and
// every subsequent read fails with InvalidState. Multiple peek sources
// over the same upstream are independent as long as nobody consumes.
type peekSource struct {
	upstream  *BufferedSource
	baseEpoch int64
	pos       int64
	closed    bool
}

func newPeekSource(upstream *BufferedSource) *peekSource {
	return &peekSource{upstream: upstream, baseEpoch: upstream.epoch}
}

// Read implements Source: it requests enough from the upstream to reach
// pos+byteCount, then shares (never consumes) that range into sink.
func (p *peekSource) Read(sink *Buffer, byteCount int64) (int64, error) {
	if p.closed {
		return 0, newError(Closed, "peek read", nil)
	}
	if p.upstream.epoch != p.baseEpoch {
		return 0, newError(InvalidState, "peek read", nil)
	}
	if _, err := p.upstream.Request(p.pos + byteCount); err != nil {
		return 0, err
	}
	avail := p.upstream.buf.Size() - p.pos
	if avail <= 0 {
		return -1, nil
	}
	n := byteCount
	if n > avail {
		n = avail
	}
	var view Buffer
	p.upstream.buf.CopyTo(&view, p.pos, n)
	if err := sink.Write(&view, n); err != nil {
		return 0, err
	}
	p.pos += n
	return n, nil
}

// Timeout implements Source by delegating to the upstream's downstream.
func (p *peekSource) Timeout() *Deadline { return p.upstream.src.Timeout() }

// Close implements Source. It does not close the upstream, which other
// peek sources or the original buffered source may still be using.
func (p *peekSource) Close() error {
	p.closed = true
	return nil
}

var _ Source = (*peekSource)(nil)
