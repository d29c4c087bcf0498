package stream

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
)

// Reader deciphers an authenticated stream of known length. Plaintext is
// released before the tag is checked; Read returns io.EOF only once the tag
// has verified, so callers must not act on the content before then.
type Reader struct {
	src       io.Reader
	block     cipher.Block
	mac       hash.Hash
	nonce     []byte
	remaining int64
	chunk     uint32
	raw       []byte
	buf       []byte
	pos       int
	verified  bool
	err       error
}

// NewReader reads and checks the preamble. length is the declared total
// size of the stream, preamble and tag included.
func NewReader(src io.Reader, keys *Keys, length int64) (*Reader, error) {
	if length < int64(preambleSize+TagSize) {
		return nil, fmt.Errorf("%w: declared length %d is shorter than preamble and tag", ErrDecryption, length)
	}
	block, err := aes.NewCipher(keys.cipherKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	preamble := make([]byte, preambleSize)
	if _, err := io.ReadFull(src, preamble); err != nil {
		return nil, readErr("reading preamble", err)
	}
	if !bytes.Equal(preamble[:len(magic)], magic[:]) {
		return nil, fmt.Errorf("%w: not a backup stream", ErrDecryption)
	}
	if v := preamble[len(magic)]; v != formatV1 {
		return nil, fmt.Errorf("%w: unsupported stream format %d", ErrDecryption, v)
	}

	mac := hmac.New(sha256.New, keys.macKey)
	mac.Write(preamble)

	return &Reader{
		src:       src,
		block:     block,
		mac:       mac,
		nonce:     preamble[len(magic)+1:],
		remaining: length - int64(preambleSize+TagSize),
		raw:       make([]byte, ChunkSize),
	}, nil
}

func readErr(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncatedStream, op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	for r.pos == len(r.buf) {
		if r.err != nil {
			return 0, r.err
		}
		if r.remaining == 0 {
			r.err = r.finish()
			if r.err == nil {
				r.err = io.EOF
			}
			continue
		}
		r.err = r.nextChunk()
	}
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

func (r *Reader) nextChunk() error {
	size := int(min(int64(ChunkSize), r.remaining))
	raw := r.raw[:size]
	if _, err := io.ReadFull(r.src, raw); err != nil {
		return readErr(fmt.Sprintf("reading chunk %d", r.chunk), err)
	}
	r.mac.Write(raw)
	ctr := cipher.NewCTR(r.block, chunkIV(r.nonce, r.chunk))
	ctr.XORKeyStream(raw, raw)

	r.buf = raw
	r.pos = 0
	r.remaining -= int64(size)
	r.chunk++
	return nil
}

func (r *Reader) finish() error {
	tag := make([]byte, TagSize)
	if _, err := io.ReadFull(r.src, tag); err != nil {
		return readErr("reading tag", err)
	}
	if !hmac.Equal(tag, r.mac.Sum(nil)) {
		return ErrIntegrity
	}
	r.verified = true
	return nil
}

// Verified reports whether the whole stream has been read and its tag
// matched.
func (r *Reader) Verified() bool {
	return r.verified
}

// Drain discards the rest of the plaintext and checks the tag.
func (r *Reader) Drain() error {
	_, err := io.Copy(io.Discard, r)
	return err
}

// Verify checks the tag of a stream without keeping any plaintext.
func Verify(src io.Reader, keys *Keys, length int64) error {
	r, err := NewReader(src, keys, length)
	if err != nil {
		return err
	}
	return r.Drain()
}
