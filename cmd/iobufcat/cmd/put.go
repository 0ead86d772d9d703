package cmd

import (
	"context"
	"io"
	"os"

	"github.com/grailbio/iobuf"
	"github.com/grailbio/iobuf/errors"
	"github.com/grailbio/iobuf/iofile"
)

// Put streams stdin to the single path given in args.
func Put(ctx context.Context, out io.Writer, args []string) (err error) {
	if len(args) != 1 {
		return errors.E("usage: put <path>")
	}
	path := args[0]
	f, err := iofile.Create(path)
	if err != nil {
		return errors.E(err, "put", path)
	}
	defer func() {
		if err != nil {
			_ = f.Discard()
			return
		}
		err = f.Close()
	}()

	bsink := iobuf.NewBufferedSink(f.Sink())
	if _, err = bsink.WriteAll(newReaderSource(os.Stdin)); err != nil {
		return errors.E(err, "put", path)
	}
	if err = bsink.Close(); err != nil {
		return errors.E(err, "put", path)
	}
	return nil
}
