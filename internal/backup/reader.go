package backup

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"mbk-go/internal/frame"
	"mbk-go/internal/stream"
)

var (
	// ErrNoSuchElement is returned by Next once the stream is exhausted.
	ErrNoSuchElement = errors.New("backup: no more frames")

	// ErrUnsupportedVersion is a schema violation for a header version this
	// reader does not understand.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported backup version", frame.ErrSchemaViolation)
)

// Reader is a forward-only iterator over the frames of a backup stream.
// Frames are handed out before the stream is authenticated; HasNext only
// reports false after the tag has verified, so a consumer must treat its
// work as provisional until then.
type Reader struct {
	cipher  *stream.Reader
	gz      *gzip.Reader
	br      *unitReader
	header  *frame.BackupInfo
	next    *frame.Frame
	pending error
	done    bool
	err     error
	frames  int
}

// NewReader opens a stream of declared total length and reads its header.
func NewReader(source io.Reader, keys *stream.Keys, length int64) (*Reader, error) {
	cr, err := stream.NewReader(source, keys, length)
	if err != nil {
		return nil, err
	}
	r := &Reader{cipher: cr}

	gz, err := gzip.NewReader(cr)
	if err != nil {
		return nil, r.fail(err)
	}
	r.gz = gz
	r.br = &unitReader{Reader: bufio.NewReader(gz)}

	b, err := r.readUnit()
	if errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: stream has no header", frame.ErrSchemaViolation)
	}
	if err != nil {
		return nil, r.fail(err)
	}
	info, err := frame.UnmarshalBackupInfo(b)
	if err != nil {
		return nil, r.fail(err)
	}
	if info.Version != frame.Version {
		return nil, r.fail(fmt.Errorf("%w %d", ErrUnsupportedVersion, info.Version))
	}
	r.header = info
	return r, nil
}

// Header returns the stream header.
func (r *Reader) Header() *frame.BackupInfo {
	return r.header
}

// HasNext reports whether Next will return a frame or an error. It returns
// false only after the stream has been read to the end and authenticated.
func (r *Reader) HasNext() bool {
	if r.next != nil || r.pending != nil {
		return true
	}
	if r.done {
		return false
	}
	r.advance()
	return r.next != nil || r.pending != nil
}

// Next returns the next frame. After the stream is exhausted it returns
// ErrNoSuchElement; after a failure it returns that failure once and then
// ErrNoSuchElement.
func (r *Reader) Next() (*frame.Frame, error) {
	if !r.HasNext() {
		return nil, ErrNoSuchElement
	}
	if r.pending != nil {
		err := r.pending
		r.pending = nil
		r.err = err
		return nil, err
	}
	f := r.next
	r.next = nil
	r.frames++
	return f, nil
}

// Err returns the failure that ended iteration, if any.
func (r *Reader) Err() error {
	return r.err
}

// Frames returns the number of frames handed out so far.
func (r *Reader) Frames() int {
	return r.frames
}

// Close releases the decompressor. It does not close the source.
func (r *Reader) Close() error {
	return r.gz.Close()
}

func (r *Reader) advance() {
	b, err := r.readUnit()
	if errors.Is(err, io.EOF) {
		r.done = true
		// A clean end of the compressed stream should coincide with a
		// verified tag; confirm before reporting exhaustion.
		if err := r.cipher.Drain(); err != nil {
			r.pending = err
		}
		return
	}
	if err != nil {
		r.done = true
		r.pending = r.fail(err)
		return
	}
	f, err := frame.Unmarshal(b)
	if err != nil {
		r.done = true
		r.pending = r.fail(err)
		return
	}
	r.next = f
}

// readUnit reads one length-prefixed unit. io.EOF is returned only at a
// clean unit boundary.
func (r *Reader) readUnit() ([]byte, error) {
	n, err := binary.ReadUvarint(r.br)
	if err != nil {
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, fmt.Errorf("%w: truncated unit length", frame.ErrSchemaViolation)
		case errors.Is(err, io.EOF):
			return nil, err
		case r.br.err == nil:
			return nil, fmt.Errorf("%w: unit length overflows", frame.ErrSchemaViolation)
		}
		return nil, err
	}
	if n > maxFrameSize {
		return nil, fmt.Errorf("%w: unit of %d bytes exceeds limit", frame.ErrSchemaViolation, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.br, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated unit", frame.ErrSchemaViolation)
		}
		return nil, err
	}
	return b, nil
}

// unitReader remembers the last error of the decompressed stream, which
// tells a malformed length varint apart from a failing source.
type unitReader struct {
	*bufio.Reader
	err error
}

func (u *unitReader) ReadByte() (byte, error) {
	c, err := u.Reader.ReadByte()
	u.err = err
	return c, err
}

// Verify ends iteration, discards the rest of the stream and checks its
// tag. A consumer that rejects a frame calls it so that content which does
// not authenticate is reported as such.
func (r *Reader) Verify() error {
	r.done = true
	r.next = nil
	r.pending = nil
	if r.cipher.Verified() {
		return nil
	}
	return r.cipher.Drain()
}

// fail classifies a decode failure. The rest of the stream is drained
// first: a tag mismatch or a short source is reported instead of whatever
// symptom surfaced in the plaintext.
func (r *Reader) fail(err error) error {
	r.done = true
	if !r.cipher.Verified() {
		if derr := r.cipher.Drain(); derr != nil {
			return derr
		}
	}
	if errors.Is(err, frame.ErrSchemaViolation) {
		return err
	}
	return fmt.Errorf("%w: %v", stream.ErrDecryption, err)
}

// ReadAll reads a whole stream into memory.
func ReadAll(source io.Reader, keys *stream.Keys, length int64) (*frame.BackupInfo, []*frame.Frame, error) {
	r, err := NewReader(source, keys, length)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var frames []*frame.Frame
	for r.HasNext() {
		f, err := r.Next()
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, f)
	}
	return r.Header(), frames, nil
}
