package iofile

import (
	"fmt"

	"github.com/grailbio/iobuf"
)

// ReadFile reads the entire file at path and returns its contents.
func ReadFile(path string) (iobuf.ByteString, error) {
	f, err := Open(path)
	if err != nil {
		return iobuf.ByteString{}, err
	}
	bs := iobuf.NewBufferedSource(f.Source())
	data, err := bs.ReadByteStringAll()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return data, err
}

// WriteFile writes data to path, creating or truncating it.
func WriteFile(path string, data []byte) (err error) {
	f, err := Create(path)
	if err != nil {
		return err
	}
	bsink := iobuf.NewBufferedSink(f.Sink())
	var buf iobuf.Buffer
	buf.WriteByteArray(data)
	if werr := bsink.Write(&buf, buf.Size()); werr != nil {
		_ = f.Discard()
		return werr
	}
	if ferr := bsink.Flush(); ferr != nil {
		_ = f.Discard()
		return ferr
	}
	return f.Close()
}

// CopyFile copies src to dst by streaming src's Source into dst's Sink
// through a BufferedSource and BufferedSink, so large files move through fixed-size buffer segments rather than one giant
// in-memory copy.
func CopyFile(dst, src string) error {
	in, err := Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := Create(dst)
	if err != nil {
		return err
	}

	bsrc := iobuf.NewBufferedSource(in.Source())
	bdst := iobuf.NewBufferedSink(out.Sink())
	if _, err := bsrc.ReadAll(bdst); err != nil {
		_ = out.Discard()
		return fmt.Errorf("iofile: copy %s -> %s: %w", src, dst, err)
	}
	if err := bdst.Close(); err != nil {
		_ = out.Discard()
		return err
	}
	return out.Close()
}
