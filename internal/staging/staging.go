package staging

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"mbk-go/internal/mb"
)

// ErrSpoolFull is returned by a spool file write that would exceed the
// configured maximum size.
var ErrSpoolFull = errors.New("staging area full")

// Spool implements mb.Spool on top of a pluggable spoolStore. All shared
// logic (size limits, lifecycle) lives here.
type Spool struct {
	store   spoolStore
	maxSize int64
	mu      sync.Mutex
	active  int
}

var _ mb.Spool = (*Spool)(nil)

func newSpool(store spoolStore, maxSize int64) *Spool {
	return &Spool{store: store, maxSize: maxSize}
}

// Create starts a new spooled export.
func (s *Spool) Create() (mb.SpoolFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.store.create()
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}
	s.active++
	return &spoolFile{spool: s, buf: buf}, nil
}

// Active returns the number of spool files created and not yet discarded.
func (s *Spool) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// MaxSize returns the per-file size limit. Zero means unlimited.
func (s *Spool) MaxSize() int64 {
	return s.maxSize
}

type spoolFile struct {
	spool     *Spool
	buf       spoolBuffer
	size      int64
	mu        sync.Mutex
	discarded bool
}

func (f *spoolFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.discarded {
		return 0, errors.New("write to discarded spool file")
	}
	if limit := f.spool.maxSize; limit > 0 && f.size+int64(len(p)) > limit {
		return 0, fmt.Errorf("%w: would exceed max size of %d bytes", ErrSpoolFull, limit)
	}
	n, err := f.buf.Write(p)
	f.size += int64(n)
	return n, err
}

func (f *spoolFile) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *spoolFile) Open() (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.discarded {
		return nil, errors.New("open of discarded spool file")
	}
	return f.buf.reader()
}

// Discard releases the spooled data. Later calls are no-ops.
func (f *spoolFile) Discard() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.discarded {
		return nil
	}
	f.discarded = true

	f.spool.mu.Lock()
	f.spool.active--
	f.spool.mu.Unlock()

	return f.buf.remove()
}
