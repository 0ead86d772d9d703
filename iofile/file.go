// Package iofile is the file-system collaborator: it opens paths into
// iobuf Sources and Sinks, plus a positional Handle wired to iobuf's
// unsafe cursor for zero-copy reads and writes. A registry keyed by URL
// scheme lets callers address local and cloud paths uniformly.
package iofile

import (
	"fmt"
	"sync"
	"time"

	"github.com/grailbio/iobuf"
)

// File is a single open file. Implementations must be safe for
// concurrent use by multiple goroutines.
type File interface {
	// Name returns the path given to Open or Create.
	Name() string

	// Stat returns the file's metadata.
	//
	// REQUIRES: Close has not been called.
	Stat() (Info, error)

	// Source returns a non-positional iobuf.Source reading from the
	// file's current position onward. Calling Source more than once
	// returns independent sources; each reads from wherever the
	// underlying descriptor's position is when it's first read.
	//
	// REQUIRES: the file was opened by Open.
	Source() iobuf.Source

	// Sink returns a non-positional iobuf.Sink appending to the file
	// from its current position onward.
	//
	// REQUIRES: the file was opened by Create.
	Sink() iobuf.Sink

	// Handle returns a positional handle onto the file, usable
	// concurrently with Source/Sink and with other Handle calls.
	Handle() Handle

	// Discard abandons a file opened for writing, releasing any
	// temporary resources implied by pending writes. Exactly one of
	// Discard or Close should be called. No other method may be called
	// afterward.
	Discard() error

	// Close commits a written file's contents (if any) and releases
	// the underlying descriptor. Exactly one of Discard or Close
	// should be called.
	Close() error
}

// Handle is a positional view onto a file, letting callers read or
// write at an arbitrary offset without disturbing any other Handle's
// or Source's/Sink's position.
type Handle interface {
	// ReadAt reads up to byteCount bytes starting at offset into dst,
	// returning the number of bytes read, using iobuf's unsafe cursor
	// to avoid an intermediate []byte copy where possible. It returns
	// (-1, nil) at end-of-file, matching iobuf.Source's sentinel.
	ReadAt(dst *iobuf.Buffer, offset, byteCount int64) (int64, error)

	// WriteAt writes exactly byteCount bytes from src at offset. Not
	// every implementation supports positional writes (e.g. an
	// immutable object store); such implementations return an error of
	// Kind iobuf.Unsupported.
	WriteAt(src *iobuf.Buffer, offset, byteCount int64) error

	// Size returns the file's current size.
	Size() (int64, error)

	// Resize truncates or extends the file to exactly n bytes.
	Resize(n int64) error

	// Flush pushes any buffered writes to the underlying storage.
	Flush() error

	// Close releases resources held by the handle. It does not commit
	// or discard the File itself.
	Close() error
}

// Info is a file's metadata, as returned by Stat.
type Info struct {
	IsRegular     bool
	IsDir         bool
	IsSymlink     bool
	SymlinkTarget string
	Size          int64
	CreatedAt     time.Time
	ModifiedAt    time.Time
	AccessedAt    time.Time

	// Extras carries implementation-specific metadata (e.g. an S3
	// ETag or storage class) that doesn't fit the common fields above.
	Extras map[string]string
}

// Implementation implements Open/Create/Stat/Remove for one class of
// path (local disk, an object store, ...). Implementations must be
// thread safe.
type Implementation interface {
	// Open opens path for reading. Open returns an error of Kind
	// iobuf.NotFound if no file exists at path.
	Open(path string) (File, error)

	// Create opens path for writing, destroying any existing contents.
	// Parent directories are created as needed.
	Create(path string) (File, error)

	// Stat returns path's metadata without opening it. Stat returns an
	// error of Kind iobuf.NotFound if no file exists at path.
	Stat(path string) (Info, error)

	// Remove deletes path.
	Remove(path string) error
}

type implFactory func() Implementation

var (
	mu            sync.RWMutex
	implFactories = make(map[string]implFactory)
	impls         = make(map[string]Implementation)
	localInstance = newLocalImplementation()
)

// RegisterImplementation arranges for paths of the form "scheme://..."
// to be routed to the Implementation that factory produces. factory is
// invoked at most once, on first use, so registration may precede full
// configuration of the implementation (e.g. parsing flags) as long as
// that happens before the first request.
//
// REQUIRES: scheme has not already been registered.
func RegisterImplementation(scheme string, factory func() Implementation) {
	if scheme == "" {
		panic("iofile: RegisterImplementation: empty scheme")
	}
	if factory == nil {
		panic("iofile: RegisterImplementation: nil factory")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := implFactories[scheme]; ok {
		panic(fmt.Sprintf("iofile: RegisterImplementation: scheme %q already registered", scheme))
	}
	implFactories[scheme] = factory
}

// FindImplementation returns the Implementation registered for scheme,
// or nil if none is registered. An empty scheme returns the local
// file-system implementation.
func FindImplementation(scheme string) Implementation {
	if scheme == "" {
		return localInstance
	}
	mu.RLock()
	if impl, ok := impls[scheme]; ok {
		mu.RUnlock()
		return impl
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if impl, ok := impls[scheme]; ok {
		return impl
	}
	factory, ok := implFactories[scheme]
	if !ok {
		return nil
	}
	impl := factory()
	impls[scheme] = impl
	return impl
}

func findImpl(path string) (Implementation, error) {
	scheme, _, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	impl := FindImplementation(scheme)
	if impl == nil {
		return nil, fmt.Errorf("iofile: no implementation registered for scheme %q (path %q)", scheme, path)
	}
	return impl, nil
}

// Open is a shortcut for ParsePath, then FindImplementation, then
// Implementation.Open.
func Open(path string) (File, error) {
	impl, err := findImpl(path)
	if err != nil {
		return nil, err
	}
	return impl.Open(path)
}

// Create is a shortcut for ParsePath, then FindImplementation, then
// Implementation.Create.
func Create(path string) (File, error) {
	impl, err := findImpl(path)
	if err != nil {
		return nil, err
	}
	return impl.Create(path)
}

// Stat is a shortcut for ParsePath, then FindImplementation, then
// Implementation.Stat.
func Stat(path string) (Info, error) {
	impl, err := findImpl(path)
	if err != nil {
		return Info{}, err
	}
	return impl.Stat(path)
}

// Remove is a shortcut for ParsePath, then FindImplementation, then
// Implementation.Remove.
func Remove(path string) error {
	impl, err := findImpl(path)
	if err != nil {
		return err
	}
	return impl.Remove(path)
}
