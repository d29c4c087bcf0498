package stream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"math"
)

var errWriteAfterClose = errors.New("stream: write after close")

// Writer enciphers plaintext into an authenticated stream. The tag is only
// written by Close, so a stream that was never closed does not verify.
type Writer struct {
	w      io.Writer
	block  cipher.Block
	mac    hash.Hash
	nonce  []byte
	buf    []byte
	chunk  uint32
	closed bool
	err    error
}

// NewWriter writes the preamble to w and returns a Writer. random supplies
// the stream nonce; nil means crypto/rand.
func NewWriter(w io.Writer, keys *Keys, random io.Reader) (*Writer, error) {
	if random == nil {
		random = rand.Reader
	}
	block, err := aes.NewCipher(keys.cipherKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(random, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	preamble := make([]byte, 0, preambleSize)
	preamble = append(preamble, magic[:]...)
	preamble = append(preamble, formatV1)
	preamble = append(preamble, nonce...)

	mac := hmac.New(sha256.New, keys.macKey)
	mac.Write(preamble)
	if _, err := w.Write(preamble); err != nil {
		return nil, fmt.Errorf("writing preamble: %w", err)
	}

	return &Writer{
		w:     w,
		block: block,
		mac:   mac,
		nonce: nonce,
		buf:   make([]byte, 0, ChunkSize),
	}, nil
}

// Write buffers p and emits every full chunk.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errWriteAfterClose
	}
	if w.err != nil {
		return 0, w.err
	}

	n := 0
	for len(p) > 0 {
		k := min(ChunkSize-len(w.buf), len(p))
		w.buf = append(w.buf, p[:k]...)
		p = p[k:]
		n += k
		if len(w.buf) == ChunkSize {
			if err := w.flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// flush enciphers the buffered chunk in place and writes it out.
func (w *Writer) flush() error {
	if w.chunk == math.MaxUint32 {
		w.err = fmt.Errorf("stream: too many chunks")
		return w.err
	}
	ctr := cipher.NewCTR(w.block, chunkIV(w.nonce, w.chunk))
	ctr.XORKeyStream(w.buf, w.buf)
	w.mac.Write(w.buf)
	if _, err := w.w.Write(w.buf); err != nil {
		w.err = fmt.Errorf("writing chunk %d: %w", w.chunk, err)
		return w.err
	}
	w.buf = w.buf[:0]
	w.chunk++
	return nil
}

// Close flushes the final partial chunk and appends the tag. It is safe to
// call more than once; later calls return the first result.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}
	if len(w.buf) > 0 {
		if err := w.flush(); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(w.mac.Sum(nil)); err != nil {
		w.err = fmt.Errorf("writing tag: %w", err)
	}
	return w.err
}
