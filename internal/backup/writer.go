// Package backup reads and writes backup streams: a header and a sequence
// of length-prefixed frames, gzip-compressed and carried by the
// authenticated cipher layer.
package backup

import (
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"mbk-go/internal/frame"
	"mbk-go/internal/stream"
)

// maxFrameSize bounds a single encoded frame.
const maxFrameSize = 16 << 20

var (
	errHeaderMissing = errors.New("backup: header must be written before frames")
	errHeaderTwice   = errors.New("backup: header already written")
	errWriterClosed  = errors.New("backup: writer is closed")
)

// Writer produces a backup stream. Close must run on every exit path; it
// finalizes the compression layer and appends the authentication tag.
type Writer struct {
	cipher *stream.Writer
	gz     *gzip.Writer
	header bool
	frames int
	closed bool
	err    error
	prefix []byte
}

// NewWriter starts a stream on sink keyed for one account.
func NewWriter(sink io.Writer, keys *stream.Keys) (*Writer, error) {
	cw, err := stream.NewWriter(sink, keys, nil)
	if err != nil {
		return nil, fmt.Errorf("opening cipher stream: %w", err)
	}
	return &Writer{
		cipher: cw,
		gz:     gzip.NewWriter(cw),
		prefix: make([]byte, 0, binary.MaxVarintLen64),
	}, nil
}

// WriteHeader writes the stream header. It must be called exactly once,
// before any frame.
func (w *Writer) WriteHeader(info *frame.BackupInfo) error {
	if w.header {
		return errHeaderTwice
	}
	if err := w.writeUnit(frame.MarshalBackupInfo(info)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	w.header = true
	return nil
}

// WriteFrame encodes and writes one frame. Frames may be written in any
// order after the header.
func (w *Writer) WriteFrame(f *frame.Frame) error {
	if !w.header {
		return errHeaderMissing
	}
	b, err := frame.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", f.Kind(), err)
	}
	if err := w.writeUnit(b); err != nil {
		return fmt.Errorf("writing %s frame: %w", f.Kind(), err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	return w.frames
}

func (w *Writer) writeUnit(b []byte) error {
	if w.closed {
		return errWriterClosed
	}
	if w.err != nil {
		return w.err
	}
	if len(b) > maxFrameSize {
		return fmt.Errorf("unit of %d bytes exceeds limit of %d", len(b), maxFrameSize)
	}
	w.prefix = binary.AppendUvarint(w.prefix[:0], uint64(len(b)))
	if _, err := w.gz.Write(w.prefix); err != nil {
		w.err = err
		return err
	}
	if _, err := w.gz.Write(b); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Close flushes and authenticates the stream. It is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	gzErr := w.gz.Close()
	cipherErr := w.cipher.Close()
	switch {
	case w.err != nil:
	case gzErr != nil:
		w.err = fmt.Errorf("closing compression: %w", gzErr)
	case cipherErr != nil:
		w.err = fmt.Errorf("closing cipher stream: %w", cipherErr)
	}
	return w.err
}
