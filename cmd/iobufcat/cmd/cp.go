package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/iobuf"
	"github.com/grailbio/iobuf/errors"
	"github.com/grailbio/iobuf/iofile"
)

// Cp copies files between local paths and s3:// paths, using iofile's
// implementation registry to treat both uniformly. It accepts:
//
//	cp src dst
//	cp src dst/
//	cp src... dstdir
func Cp(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags         flag.FlagSet
		verboseFlag   = flags.Bool("v", false, "Enable verbose logging")
		recursiveFlag = flags.Bool("R", false, "Recursive copy of a local directory")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	args = flags.Args()

	copyContents := func(dst, src iofile.File) error {
		bsink := iobuf.NewBufferedSink(dst.Sink())
		if _, err := bsink.WriteAll(src.Source()); err != nil {
			return err
		}
		return bsink.Close()
	}

	// copyRegularFile copies src to dst as a plain file. existed reports
	// whether src opened successfully as a regular path; when it is
	// false the caller falls back to directory recursion.
	copyRegularFile := func(src, dst string) (existed bool, err error) {
		if *verboseFlag {
			fmt.Fprintf(os.Stderr, "%s -> %s\n", src, dst) // nolint: errcheck
		}
		in, err := iofile.Open(src)
		if err != nil {
			return false, err
		}
		defer errors.CleanUp(in.Close, &err)
		if _, err := in.Stat(); err != nil {
			return false, err
		}
		o, err := iofile.Create(dst)
		if err != nil {
			return true, errors.E(err, fmt.Sprintf("cp %s->%s", src, dst))
		}
		if cerr := copyContents(o, in); cerr != nil {
			_ = o.Discard()
			return true, errors.E(cerr, fmt.Sprintf("cp %s->%s", src, dst))
		}
		return true, nil
	}

	// copyDirLocal recursively copies a local directory src onto dstDir,
	// preserving its relative structure. Only local sources support
	// recursion: iofile's registry has no directory-listing operation
	// for platform variants like s3file.
	copyDirLocal := func(src, dstDir string) error {
		if scheme, _, _ := iofile.ParsePath(src); scheme != "" {
			return fmt.Errorf("cp: -R requires a local source directory, got %s", src)
		}
		var paths []string
		if err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				paths = append(paths, path)
			}
			return nil
		}); err != nil {
			return err
		}
		return parallelEach(len(paths), func(i int) error {
			path := paths[i]
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			_, err = copyRegularFile(path, iofile.Join(dstDir, filepath.ToSlash(rel)))
			return err
		})
	}

	copyFile := func(src, dst string) error {
		existed, err := copyRegularFile(src, dst)
		if existed || !*recursiveFlag {
			return err
		}
		return copyDirLocal(src, dst)
	}

	copyFileInDir := func(src, dstDir string) error {
		return copyFile(src, iofile.Join(dstDir, iofile.Base(src)))
	}

	nArg := len(args)
	if nArg < 2 {
		return errors.E("usage: cp src... dst")
	}
	dst := args[nArg-1]
	if _, hasGlob := parseGlob(dst); hasGlob {
		return fmt.Errorf("cp: destination %s cannot be a glob", dst)
	}
	srcs := expandGlobs(args[:nArg-1])
	if len(srcs) == 1 {
		if !strings.HasSuffix(dst, "/") && copyFile(srcs[0], dst) == nil {
			return nil
		}
		return copyFileInDir(srcs[0], dst)
	}
	return parallelEach(len(srcs), func(i int) error {
		return copyFileInDir(srcs[i], dst)
	})
}
