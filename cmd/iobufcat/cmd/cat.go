package cmd

import (
	"context"
	"flag"
	"io"

	"github.com/grailbio/iobuf"
	"github.com/grailbio/iobuf/errors"
	"github.com/grailbio/iobuf/iocompress"
	"github.com/grailbio/iobuf/iofile"
)

// Cat streams each path's contents to out, auto-detecting gzip/zstd
// framing via iocompress.DetectAndWrap unless -raw suppresses it.
func Cat(ctx context.Context, out io.Writer, args []string) (err error) {
	var (
		flags   flag.FlagSet
		rawFlag = flags.Bool("raw", false, "Do not decompress gzip/zstd even if detected")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	sink := newWriterSink(out)
	for _, path := range expandGlobs(flags.Args()) {
		if cerr := catOne(path, sink, *rawFlag); cerr != nil {
			return errors.E(cerr, "cat", path)
		}
	}
	return nil
}

func catOne(path string, sink iobuf.Sink, raw bool) (err error) {
	f, err := iofile.Open(path)
	if err != nil {
		return err
	}
	defer errors.CleanUp(f.Close, &err)

	bs := iobuf.NewBufferedSource(f.Source())
	if raw {
		_, err = bs.ReadAll(sink)
		return err
	}
	src, derr := iocompress.DetectAndWrap(bs)
	if derr != nil {
		return derr
	}
	_, err = iobuf.NewBufferedSource(src).ReadAll(sink)
	return err
}
