// Package cmd implements iobufcat's subcommands: cat, ls, hash, put,
// and cp, each exercising one slice of the iobuf/iofile/iocompress/iohash
// stack end to end.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/gobwas/glob/syntax"
	"github.com/gobwas/glob/syntax/ast"

	"github.com/grailbio/iobuf/errors"
	"github.com/grailbio/iobuf/iofile"
)

// DefaultHash names the hash algorithm "hash" uses when -algo is not
// given on the command line. main sets this from the ini config.
var DefaultHash = "sha256"

var commands = []struct {
	name     string
	callback func(ctx context.Context, out io.Writer, args []string) error
	help     string
}{
	{"cat", Cat, `Cat streams the contents of one or more paths to stdout, decompressing gzip/zstd automatically unless -raw is given. Supports globs (https://github.com/gobwas/glob) over local paths.`},
	{"ls", Ls, `Ls stats one or more paths and prints their size, or with -long the full Info struct.`},
	{"hash", Hash, `Hash streams each path through a digest and prints it next to the path, in the style of sha256sum.`},
	{"put", Put, `Put streams stdin to the given path.`},
	{"cp", Cp, `Cp copies files, locally or to/from s3://, in the forms:

1. cp src dst
2. cp src dst/
3. cp src... dstdir

Supports globs (https://github.com/gobwas/glob) over local source paths.`},
}

// PrintHelp writes a summary of every subcommand to stderr.
func PrintHelp() {
	fmt.Fprintln(os.Stderr, "Subcommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "%s: %s\n", c.name, c.help)
	}
}

// Run dispatches args[0] to the matching subcommand, passing the rest
// of args to it.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		PrintHelp()
		return errors.E("no subcommand given")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.callback(ctx, os.Stdout, args[1:])
		}
	}
	PrintHelp()
	return errors.E("unknown command", args[0])
}

const parallelism = 32

// parallelEach runs callback(i) for i in [0, n) across a bounded
// worker pool, collecting the first error via errors.Once. It is
// cp's analogue of the teacher's forEachFile, sized for a flat list
// of already-known indices rather than a directory walk.
func parallelEach(n int, callback func(i int) error) error {
	if n == 0 {
		return nil
	}
	workers := parallelism
	if workers > n {
		workers = n
	}
	var (
		once errors.Once
		wg   sync.WaitGroup
		next sync.Mutex
		i    = 0
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				next.Lock()
				idx := i
				i++
				next.Unlock()
				if idx >= n {
					return
				}
				once.Set(callback(idx))
			}
		}()
	}
	wg.Wait()
	return once.Err()
}

// parseGlob reports whether str contains a glob metacharacter, and if
// so the literal path-element prefix that precedes the first one.
func parseGlob(str string) (prefix string, hasGlob bool) {
	node, err := syntax.Parse(str)
	if err != nil {
		return str, false
	}
	if node.Kind != ast.KindPattern || len(node.Children) == 0 {
		return str, false
	}
	if node.Children[0].Kind != ast.KindText {
		return "", true
	}
	if len(node.Children) == 1 {
		return str, false
	}
	prefix = node.Children[0].Value.(ast.Text).Text
	if i := strings.LastIndexByte(prefix, '/'); i >= 0 {
		prefix = prefix[:i+1]
	} else {
		prefix = ""
	}
	return prefix, true
}

// expandGlob expands str's glob metacharacters by walking the local
// directory tree rooted at its non-glob prefix. Non-local (scheme://)
// paths are never expanded, since iofile has no directory listing
// operation for platform variants; such paths are returned unchanged.
func expandGlob(str string) []string {
	scheme, _, err := iofile.ParsePath(str)
	if err != nil || scheme != "" {
		return []string{str}
	}
	prefix, hasGlob := parseGlob(str)
	if !hasGlob {
		return []string{str}
	}
	m, err := glob.Compile(str, '/')
	if err != nil {
		return []string{str}
	}
	root := prefix
	if root == "" {
		root = "."
	}
	var matches []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if m.Match(path) {
			matches = append(matches, path)
		}
		return nil
	})
	if len(matches) == 0 {
		return []string{str}
	}
	return matches
}

// expandGlobs calls expandGlob on each pattern and concatenates the
// results in order.
func expandGlobs(patterns []string) []string {
	var matches []string
	for _, p := range patterns {
		matches = append(matches, expandGlob(p)...)
	}
	return matches
}
