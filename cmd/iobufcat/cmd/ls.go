package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/kr/pretty"

	"github.com/grailbio/iobuf/errors"
	"github.com/grailbio/iobuf/iofile"
)

// Ls stats each path and prints a line per path. With -long it pretty-prints
// the full iofile.Info struct instead, for debugging metadata such as the
// platform-derived CreatedAt/AccessedAt fields.
func Ls(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags    flag.FlagSet
		longFlag = flags.Bool("long", false, "Print the full Info struct for each path")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	for _, path := range expandGlobs(flags.Args()) {
		info, err := iofile.Stat(path)
		if err != nil {
			return errors.E(err, "ls", path)
		}
		if *longFlag {
			pretty.Fprintf(out, "%s:\n%# v\n", path, info)
			continue
		}
		fmt.Fprintf(out, "%12d %s\n", info.Size, path)
	}
	return nil
}
