package iofile

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/grailbio/iobuf"
	"github.com/grailbio/iobuf/log"

	pkgerrors "github.com/pkg/errors"
)

// localImplementation is the file-system collaborator for the host
// disk, using Go's native os package.
type localImplementation struct{}

func newLocalImplementation() Implementation { return &localImplementation{} }

func wrapStatErr(path string, err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return &iobuf.Error{Kind: iobuf.NotFound, Op: "stat " + path, Err: err}
	}
	if os.IsPermission(err) {
		return &iobuf.Error{Kind: iobuf.PermissionDenied, Op: "stat " + path, Err: err}
	}
	return err
}

// Open implements Implementation.
func (*localImplementation) Open(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &iobuf.Error{Kind: iobuf.NotFound, Op: "open " + path, Err: err}
		}
		if os.IsPermission(err) {
			return nil, &iobuf.Error{Kind: iobuf.PermissionDenied, Op: "open " + path, Err: err}
		}
		return nil, err
	}
	return &localFile{f: f, mode: readonly, path: path}, nil
}

// Create implements Implementation. It writes to a temporary file
// alongside path and renames it into place on Close, so that readers
// never observe a partially-written file.
func (*localImplementation) Create(path string) (File, error) {
	if path == "" {
		return nil, fmt.Errorf("iofile: create: empty path")
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		realPath = path
	}
	dir := filepath.Dir(realPath)
	f, err := ioutil.TempFile(dir, filepath.Base(realPath)+".tmp")
	if err != nil {
		if mkerr := os.MkdirAll(dir, 0777); mkerr != nil {
			log.Error.Printf("iofile: mkdir %v: %v", dir, mkerr)
		}
		f, err = ioutil.TempFile(dir, "iofile-tmp")
		if err != nil {
			return nil, err
		}
	}
	return &localFile{f: f, mode: writeonly, path: path, realPath: realPath}, nil
}

// Stat implements Implementation.
func (*localImplementation) Stat(path string) (Info, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return Info{}, wrapStatErr(path, err)
	}
	return infoFromOS(path, fi), nil
}

// Remove implements Implementation.
func (*localImplementation) Remove(path string) error {
	return os.Remove(path)
}

func infoFromOS(path string, fi os.FileInfo) Info {
	info := Info{
		IsRegular:  fi.Mode().IsRegular(),
		IsDir:      fi.IsDir(),
		IsSymlink:  fi.Mode()&os.ModeSymlink != 0,
		Size:       fi.Size(),
		ModifiedAt: fi.ModTime(),
	}
	if info.IsSymlink {
		if target, err := os.Readlink(path); err == nil {
			info.SymlinkTarget = target
		}
	}
	populatePlatformTimes(&info, fi)
	return info
}

type accessMode int

const (
	readonly accessMode = iota
	writeonly
)

// localFile implements File over an *os.File.
type localFile struct {
	f        *os.File
	mode     accessMode
	path     string
	realPath string
}

// Name implements File.
func (f *localFile) Name() string { return f.path }

// Stat implements File.
func (f *localFile) Stat() (Info, error) {
	fi, err := f.f.Stat()
	if err != nil {
		return Info{}, err
	}
	return infoFromOS(f.path, fi), nil
}

// Source implements File.
func (f *localFile) Source() iobuf.Source {
	if f.mode != readonly {
		return errSource{fmt.Errorf("iofile: %s: not opened for reading", f.path)}
	}
	return &localSource{f: f.f}
}

// Sink implements File.
func (f *localFile) Sink() iobuf.Sink {
	if f.mode != writeonly {
		return errSink{fmt.Errorf("iofile: %s: not opened for writing", f.path)}
	}
	return &localSink{f: f.f}
}

// Handle implements File.
func (f *localFile) Handle() Handle {
	return &localHandle{f: f.f}
}

// Discard implements File.
func (f *localFile) Discard() error {
	if f.mode == readonly {
		return nil
	}
	if err := f.f.Close(); err != nil {
		return err
	}
	return os.Remove(f.f.Name())
}

// Close implements File.
func (f *localFile) Close() error {
	if f.mode == readonly {
		return f.f.Close()
	}
	var primary error
	if err := f.f.Sync(); err != nil {
		primary = err
	}
	if err := f.f.Close(); err != nil && primary == nil {
		primary = err
	}
	if primary != nil {
		_ = os.Remove(f.f.Name())
		return primary
	}
	if err := os.Rename(f.f.Name(), f.realPath); err != nil {
		return pkgerrors.Wrapf(err, "iofile: commit %s", f.path)
	}
	return nil
}

// localSource is a non-positional iobuf.Source over an *os.File,
// reading from wherever the descriptor's position currently is.
type localSource struct {
	f       *os.File
	timeout iobuf.Deadline
}

func (s *localSource) Read(dst *iobuf.Buffer, byteCount int64) (int64, error) {
	return readInto(s.f, dst, byteCount)
}
func (s *localSource) Timeout() *iobuf.Deadline { return &s.timeout }
func (s *localSource) Close() error            { return nil }

var _ iobuf.Source = (*localSource)(nil)

// localSink is a non-positional iobuf.Sink over an *os.File.
type localSink struct {
	f       *os.File
	timeout iobuf.Deadline
}

func (s *localSink) Write(src *iobuf.Buffer, byteCount int64) error {
	return writeFrom(s.f, src, byteCount)
}
func (s *localSink) Flush() error            { return s.f.Sync() }
func (s *localSink) Timeout() *iobuf.Deadline { return &s.timeout }
func (s *localSink) Close() error            { return nil }

var _ iobuf.Sink = (*localSink)(nil)

// localHandle is a positional Handle over an *os.File.
type localHandle struct{ f *os.File }

func (h *localHandle) ReadAt(dst *iobuf.Buffer, offset, byteCount int64) (int64, error) {
	return readInto(&offsetReader{f: h.f, off: offset}, dst, byteCount)
}

func (h *localHandle) WriteAt(src *iobuf.Buffer, offset, byteCount int64) error {
	return writeFrom(&offsetWriter{f: h.f, off: offset}, src, byteCount)
}

func (h *localHandle) Size() (int64, error) {
	fi, err := h.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (h *localHandle) Resize(n int64) error { return h.f.Truncate(n) }
func (h *localHandle) Flush() error         { return h.f.Sync() }
func (h *localHandle) Close() error         { return nil }

var _ Handle = (*localHandle)(nil)

// offsetReader adapts os.File.ReadAt into a stateful io.Reader that
// advances its own offset, so readInto's single-Read-per-call shape
// works for positional reads too.
type offsetReader struct {
	f   *os.File
	off int64
}

func (r *offsetReader) Read(p []byte) (int, error) {
	n, err := r.f.ReadAt(p, r.off)
	r.off += int64(n)
	return n, err
}

// offsetWriter is the write-side counterpart of offsetReader.
type offsetWriter struct {
	f   *os.File
	off int64
}

func (w *offsetWriter) Write(p []byte) (int, error) {
	n, err := w.f.WriteAt(p, w.off)
	w.off += int64(n)
	return n, err
}

// errSource/errSink return a fixed error from every call, used when a
// File method is invoked in the wrong mode.
type errSource struct{ err error }

func (e errSource) Read(*iobuf.Buffer, int64) (int64, error) { return -1, e.err }
func (errSource) Timeout() *iobuf.Deadline                    { return nil }
func (e errSource) Close() error                             { return e.err }

type errSink struct{ err error }

func (e errSink) Write(*iobuf.Buffer, int64) error { return e.err }
func (e errSink) Flush() error                     { return e.err }
func (errSink) Timeout() *iobuf.Deadline            { return nil }
func (e errSink) Close() error                     { return e.err }

var (
	_ io.ReaderAt = (*os.File)(nil)
	_ io.WriterAt = (*os.File)(nil)
)
