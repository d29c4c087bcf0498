package staging

import (
	"bytes"
	"io"
)

// memoryStore keeps spooled exports in memory, making it useful for testing.
type memoryStore struct{}

// NewMemorySpool creates a spool whose files live in memory.
// maxSize is the per-file limit in bytes; zero means unlimited.
func NewMemorySpool(maxSize int64) *Spool {
	return newSpool(memoryStore{}, maxSize)
}

func (memoryStore) create() (spoolBuffer, error) {
	return &memoryBuffer{}, nil
}

type memoryBuffer struct {
	buf bytes.Buffer
}

func (b *memoryBuffer) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

func (b *memoryBuffer) reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.buf.Bytes())), nil
}

func (b *memoryBuffer) remove() error {
	b.buf = bytes.Buffer{}
	return nil
}
