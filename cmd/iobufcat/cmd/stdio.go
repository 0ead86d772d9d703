package cmd

import (
	"io"

	"github.com/grailbio/iobuf"
)

// readerSource adapts a plain io.Reader (stdin) into an iobuf.Source.
// It is the same shape as ionet's connAdapter.Read, minus the deadline
// sync a real socket needs.
type readerSource struct {
	r       io.Reader
	timeout iobuf.Deadline
}

func newReaderSource(r io.Reader) iobuf.Source { return &readerSource{r: r} }

func (s *readerSource) Read(dst *iobuf.Buffer, byteCount int64) (int64, error) {
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
	n, err := s.r.Read(buf)
	if n < added {
		cur.ResizeBuffer(dst.Size() - int64(added-n))
	}
	if n == 0 {
		if err == nil || err == io.EOF {
			return -1, nil
		}
		return -1, err
	}
	if err == io.EOF {
		err = nil
	}
	return int64(n), err
}

func (s *readerSource) Timeout() *iobuf.Deadline { return &s.timeout }

func (s *readerSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// writerSink adapts a plain io.Writer (stdout) into an iobuf.Sink.
type writerSink struct {
	w       io.Writer
	timeout iobuf.Deadline
}

func newWriterSink(w io.Writer) iobuf.Sink { return &writerSink{w: w} }

func (s *writerSink) Write(src *iobuf.Buffer, byteCount int64) error {
	p, err := src.ReadByteArray(byteCount)
	if err != nil {
		return err
	}
	_, err = s.w.Write(p)
	return err
}

func (s *writerSink) Flush() error { return nil }

func (s *writerSink) Timeout() *iobuf.Deadline { return &s.timeout }

func (s *writerSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// discardSink consumes and drops every byte written to it, the sink
// side of ioutil.Discard, used by hash to avoid buffering the whole
// file just to compute a digest.
type discardSink struct{ timeout iobuf.Deadline }

func (d *discardSink) Write(src *iobuf.Buffer, byteCount int64) error {
	_, err := src.ReadByteArray(byteCount)
	return err
}
func (d *discardSink) Flush() error           { return nil }
func (d *discardSink) Timeout() *iobuf.Deadline { return &d.timeout }
func (d *discardSink) Close() error           { return nil }

var (
	_ iobuf.Source = (*readerSource)(nil)
	_ iobuf.Sink   = (*writerSink)(nil)
	_ iobuf.Sink   = (*discardSink)(nil)
)
