package stream_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"mbk-go/internal/stream"
)

func testKeys(t *testing.T, account string) *stream.Keys {
	t.Helper()
	keys, err := stream.DeriveKeys(bytes.Repeat([]byte{0x42}, stream.KeySize), []byte(account))
	if err != nil {
		t.Fatalf("DeriveKeys() error = %v", err)
	}
	return keys
}

func encrypt(t *testing.T, keys *stream.Keys, plaintext []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := stream.NewWriter(&buf, keys, nil)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	// Uneven writes exercise chunk buffering.
	for p := plaintext; len(p) > 0; {
		n := min(len(p), 1000)
		if _, err := w.Write(p[:n]); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		p = p[n:]
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func decrypt(keys *stream.Keys, data []byte, length int64) ([]byte, error) {
	r, err := stream.NewReader(bytes.NewReader(data), keys, length)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	keys := testKeys(t, "account-1")

	sizes := []int{0, 1, stream.ChunkSize - 1, stream.ChunkSize, stream.ChunkSize + 1, 3*stream.ChunkSize + 17}
	for _, size := range sizes {
		plaintext := pattern(size)
		data := encrypt(t, keys, plaintext)

		got, err := decrypt(keys, data, int64(len(data)))
		if err != nil {
			t.Fatalf("size %d: decrypt error = %v", size, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("size %d: plaintext mismatch", size)
		}
	}
}

func TestReader_DetectsTampering(t *testing.T) {
	t.Parallel()
	keys := testKeys(t, "account-1")
	data := encrypt(t, keys, pattern(2*stream.ChunkSize+100))

	positions := []int{0, 3, 5, 11, 12, stream.ChunkSize, 2*stream.ChunkSize + 20, len(data) - 1}
	for _, pos := range positions {
		tampered := bytes.Clone(data)
		tampered[pos] ^= 0x01

		_, err := decrypt(keys, tampered, int64(len(tampered)))
		if !errors.Is(err, stream.ErrIntegrity) && !errors.Is(err, stream.ErrDecryption) {
			t.Errorf("flip at %d: error = %v, want integrity or decryption failure", pos, err)
		}
	}
}

func TestReader_DetectsSwappedChunks(t *testing.T) {
	t.Parallel()
	keys := testKeys(t, "account-1")
	data := encrypt(t, keys, pattern(2*stream.ChunkSize))

	const preamble = 12
	swapped := bytes.Clone(data)
	first := swapped[preamble : preamble+stream.ChunkSize]
	second := swapped[preamble+stream.ChunkSize : preamble+2*stream.ChunkSize]
	tmp := bytes.Clone(first)
	copy(first, second)
	copy(second, tmp)

	if _, err := decrypt(keys, swapped, int64(len(swapped))); !errors.Is(err, stream.ErrIntegrity) {
		t.Errorf("decrypt() error = %v, want ErrIntegrity", err)
	}
}

func TestReader_DetectsTruncation(t *testing.T) {
	t.Parallel()
	keys := testKeys(t, "account-1")
	data := encrypt(t, keys, pattern(stream.ChunkSize+500))

	for _, cut := range []int{1, stream.TagSize, 600, len(data) - 5} {
		short := data[:len(data)-cut]
		if _, err := decrypt(keys, short, int64(len(data))); !errors.Is(err, stream.ErrTruncatedStream) {
			t.Errorf("cut %d: error = %v, want ErrTruncatedStream", cut, err)
		}
	}
}

func TestReader_RejectsShortDeclaredLength(t *testing.T) {
	t.Parallel()
	keys := testKeys(t, "account-1")
	data := encrypt(t, keys, nil)

	if _, err := stream.NewReader(bytes.NewReader(data), keys, 10); !errors.Is(err, stream.ErrDecryption) {
		t.Errorf("NewReader() error = %v, want ErrDecryption", err)
	}

	// A declared length that is wrong but large enough shifts the tag.
	longer := encrypt(t, keys, pattern(100))
	if _, err := decrypt(keys, longer, int64(len(longer)-1)); !errors.Is(err, stream.ErrIntegrity) {
		t.Errorf("decrypt() error = %v, want ErrIntegrity", err)
	}
}

func TestReader_WrongAccountFailsIntegrity(t *testing.T) {
	t.Parallel()
	data := encrypt(t, testKeys(t, "account-1"), pattern(5000))

	if _, err := decrypt(testKeys(t, "account-2"), data, int64(len(data))); !errors.Is(err, stream.ErrIntegrity) {
		t.Errorf("decrypt() error = %v, want ErrIntegrity", err)
	}
}

func TestReader_VerifiedOnlyAfterEOF(t *testing.T) {
	t.Parallel()
	keys := testKeys(t, "account-1")
	data := encrypt(t, keys, pattern(100))

	r, err := stream.NewReader(bytes.NewReader(data), keys, int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	buf := make([]byte, 100)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if r.Verified() {
		t.Error("Verified() = true before the tag was read")
	}
	if err := r.Drain(); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if !r.Verified() {
		t.Error("Verified() = false after Drain")
	}
}

func TestWriter_CloseIsIdempotent(t *testing.T) {
	t.Parallel()
	keys := testKeys(t, "account-1")

	var buf bytes.Buffer
	w, err := stream.NewWriter(&buf, keys, nil)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	size := buf.Len()
	if err := w.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if buf.Len() != size {
		t.Errorf("second Close() wrote %d more bytes", buf.Len()-size)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("Write() after Close succeeded")
	}
	if err := stream.Verify(bytes.NewReader(buf.Bytes()), keys, int64(buf.Len())); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestWriter_NonceMakesStreamsDistinct(t *testing.T) {
	t.Parallel()
	keys := testKeys(t, "account-1")
	a := encrypt(t, keys, pattern(64))
	b := encrypt(t, keys, pattern(64))
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same plaintext are identical")
	}
}

func TestDeriveKeys_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     []byte
		account []byte
	}{
		{name: "short key", key: []byte("short"), account: []byte("a")},
		{name: "empty account", key: bytes.Repeat([]byte{1}, stream.KeySize), account: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := stream.DeriveKeys(tt.key, tt.account); err == nil {
				t.Error("DeriveKeys() succeeded, want error")
			}
		})
	}
}
