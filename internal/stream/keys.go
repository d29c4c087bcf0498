// Package stream implements the authenticated cipher layer of a backup: a
// short preamble, AES-256-CTR ciphertext in fixed-size chunks, and an
// HMAC-SHA256 tag over everything before it.
package stream

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required length of a backup key.
	KeySize = 32

	// ChunkSize is the plaintext size of every chunk except the last.
	ChunkSize = 64 << 10

	// TagSize is the length of the trailing authentication tag.
	TagSize = sha256.Size

	nonceSize    = 8
	preambleSize = len(magic) + 1 + nonceSize
	formatV1     = 1
)

var magic = [3]byte{'M', 'B', 'K'}

var (
	// ErrTruncatedStream means the source ended before the declared length.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrDecryption means the stream is malformed and cannot be deciphered.
	ErrDecryption = errors.New("decryption error")

	// ErrIntegrity means the authentication tag did not match.
	ErrIntegrity = errors.New("integrity failure")
)

const hkdfInfo = "mbk backup stream v1"

// Keys are the cipher and MAC keys for one account's backups.
type Keys struct {
	cipherKey []byte
	macKey    []byte
}

// DeriveKeys expands a backup key into cipher and MAC keys bound to the
// account id. A stream written for one account fails authentication under
// another account's keys.
func DeriveKeys(backupKey, accountID []byte) (*Keys, error) {
	if len(backupKey) != KeySize {
		return nil, fmt.Errorf("backup key must be %d bytes, got %d", KeySize, len(backupKey))
	}
	if len(accountID) == 0 {
		return nil, fmt.Errorf("account id is required")
	}

	info := append([]byte(hkdfInfo), accountID...)
	r := hkdf.New(sha256.New, backupKey, nil, info)

	material := make([]byte, 64)
	if _, err := io.ReadFull(r, material); err != nil {
		return nil, fmt.Errorf("deriving keys: %w", err)
	}
	return &Keys{cipherKey: material[:32], macKey: material[32:]}, nil
}

// chunkIV returns the CTR IV for chunk i. The low 32 bits are the block
// counter within a chunk; a chunk holds far fewer than 2^32 blocks.
func chunkIV(nonce []byte, i uint32) []byte {
	iv := make([]byte, 16)
	copy(iv, nonce)
	binary.BigEndian.PutUint32(iv[nonceSize:], i)
	return iv
}
