package iofile

import (
	"io"

	"github.com/grailbio/iobuf"
)

// readInto reads up to byteCount bytes from r directly into dst's
// segment memory via an unsafe cursor, avoiding an intermediate []byte
// copy. It returns (-1, nil) at end-of-file, matching iobuf.Source.
func readInto(r io.Reader, dst *iobuf.Buffer, byteCount int64) (int64, error) {
	if byteCount <= 0 {
		panic("iofile: readInto: byteCount must be positive")
	}
	want := byteCount
	if want > int64(iobuf.SegmentSize) {
		want = int64(iobuf.SegmentSize)
	}
	var c iobuf.UnsafeCursor
	dst.ReadAndWriteUnsafe(&c)
	defer c.Close()

	added := c.ExpandBuffer(int(want))
	buf := c.Data[c.Start : c.Start+added]
	if len(buf) > int(want) {
		buf = buf[:want]
	}
	n, err := r.Read(buf)
	if n < added {
		c.ResizeBuffer(dst.Size() - int64(added-n))
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

// writeFrom writes exactly byteCount bytes from src to w, reading
// directly out of src's segment memory via an unsafe cursor.
func writeFrom(w io.Writer, src *iobuf.Buffer, byteCount int64) error {
	if byteCount < 0 {
		panic("iofile: writeFrom: negative byteCount")
	}
	var c iobuf.UnsafeCursor
	src.ReadUnsafe(&c)
	defer c.Close()

	remaining := byteCount
	offset := int64(0)
	for remaining > 0 {
		n := c.Seek(offset)
		if n < 0 {
			break
		}
		if int64(n) > remaining {
			n = int(remaining)
		}
		wn, err := w.Write(c.Data[c.Start : c.Start+n])
		if err != nil {
			return err
		}
		remaining -= int64(wn)
		offset += int64(wn)
	}
	return nil
}
