package cmd

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"flag"
	"fmt"
	"hash"
	"io"

	"github.com/grailbio/iobuf"
	"github.com/grailbio/iobuf/errors"
	"github.com/grailbio/iobuf/iofile"
	"github.com/grailbio/iobuf/iohash"
)

func newHashFunc(name string) (func() hash.Hash, error) {
	switch name {
	case "", "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	default:
		return nil, errors.E(errors.InvalidArgument, fmt.Sprintf("unknown hash algorithm %q", name))
	}
}

// Hash streams each path through a digest, printing "<hex digest>  <path>"
// for each, in the style of sha256sum.
func Hash(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags    flag.FlagSet
		algoFlag = flags.String("algo", DefaultHash, "Hash algorithm: sha256, sha512, or blake2b")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	for _, path := range expandGlobs(flags.Args()) {
		digest, err := hashOne(path, *algoFlag)
		if err != nil {
			return errors.E(err, "hash", path)
		}
		fmt.Fprintf(out, "%s  %s\n", hex.EncodeToString(digest), path)
	}
	return nil
}

func hashOne(path, algo string) (digest []byte, err error) {
	f, err := iofile.Open(path)
	if err != nil {
		return nil, err
	}
	defer errors.CleanUp(f.Close, &err)

	var sink *iohash.HashingSink
	if algo == "blake2b" {
		sink, err = iohash.NewBlake2bHashingSink(&discardSink{})
		if err != nil {
			return nil, err
		}
	} else {
		newHash, err := newHashFunc(algo)
		if err != nil {
			return nil, err
		}
		sink = iohash.NewHashingSink(&discardSink{}, newHash)
	}

	bs := iobuf.NewBufferedSource(f.Source())
	if _, err := bs.ReadAll(sink); err != nil {
		return nil, err
	}
	return sink.Sum(), nil
}
