package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const spoolPattern = "export-*.spool"

// fsStore spools exports to temp files in a directory:
//
//	<staging_dir>/
//	  export-<random>.spool    (one file per export in flight)
type fsStore struct {
	dir string
}

// NewFileSystemSpool creates a spool backed by files in stagingDir.
// Spool files left behind by an interrupted run are removed.
// maxSize is the per-file limit in bytes; zero means unlimited.
func NewFileSystemSpool(stagingDir string, maxSize int64) (*Spool, error) {
	if err := os.MkdirAll(stagingDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	if err := removeStale(stagingDir); err != nil {
		return nil, err
	}
	return newSpool(&fsStore{dir: stagingDir}, maxSize), nil
}

func removeStale(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading staging directory: %w", err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), "export-") && strings.HasSuffix(e.Name(), ".spool") {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("removing stale spool file: %w", err)
			}
		}
	}
	return nil
}

func (s *fsStore) create() (spoolBuffer, error) {
	f, err := os.CreateTemp(s.dir, spoolPattern)
	if err != nil {
		return nil, err
	}
	return &fileBuffer{f: f}, nil
}

type fileBuffer struct {
	f *os.File
}

func (b *fileBuffer) Write(p []byte) (int, error) {
	return b.f.Write(p)
}

// reader opens an independent handle so the writer's offset is untouched.
func (b *fileBuffer) reader() (io.ReadCloser, error) {
	if err := b.f.Sync(); err != nil {
		return nil, fmt.Errorf("syncing spool file: %w", err)
	}
	return os.Open(b.f.Name())
}

func (b *fileBuffer) remove() error {
	closeErr := b.f.Close()
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	if err := os.Remove(b.f.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing spool file: %w", err)
	}
	return closeErr
}
