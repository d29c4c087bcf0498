package backup_test

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"testing"

	"mbk-go/internal/backup"
	"mbk-go/internal/frame"
	"mbk-go/internal/stream"
)

func testKeys(t *testing.T) *stream.Keys {
	t.Helper()
	keys, err := stream.DeriveKeys(bytes.Repeat([]byte{7}, stream.KeySize), []byte("acct"))
	if err != nil {
		t.Fatalf("DeriveKeys() error = %v", err)
	}
	return keys
}

// noiseText returns text that does not compress, so the frame spans several
// cipher chunks.
func noiseText(n int) string {
	r := rand.New(rand.NewPCG(1, 2))
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(r.IntN(26))
	}
	return string(b)
}

func testFrames() []*frame.Frame {
	return []*frame.Frame{
		{Account: &frame.AccountData{Username: "me.42", AccountSettings: &frame.AccountSettings{PreferredReactionEmoji: []string{"a", "b", "c"}}}},
		{Recipient: &frame.Recipient{ID: 1, Self: &frame.Self{}}},
		{Recipient: &frame.Recipient{ID: 2, Contact: &frame.Contact{E164: 15550001}}},
		{Chat: &frame.Chat{ID: 1, RecipientID: 2, PinnedOrder: 1}},
		{ChatItem: &frame.ChatItem{
			ChatID: 1, AuthorID: 2, DateSent: 10,
			Incoming:        &frame.IncomingMessageDetails{DateReceived: 11},
			StandardMessage: &frame.StandardMessage{Text: noiseText(3 * stream.ChunkSize)},
		}},
		{Call: &frame.Call{CallID: 9, ConversationRecipientID: 2, Event: frame.CallEventOngoing}},
	}
}

func writeStream(t *testing.T, keys *stream.Keys, info *frame.BackupInfo, frames []*frame.Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := backup.NewWriter(&buf, keys)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	defer w.Close()

	if err := w.WriteHeader(info); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	for _, f := range frames {
		if err := w.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestWriterReader_RoundTrip(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	info := &frame.BackupInfo{Version: frame.Version, BackupTimeMs: 123456}
	want := testFrames()
	data := writeStream(t, keys, info, want)

	r, err := backup.NewReader(bytes.NewReader(data), keys, int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer r.Close()

	if got := r.Header(); *got != *info {
		t.Errorf("Header() = %+v, want %+v", got, info)
	}

	var got []*frame.Frame
	for r.HasNext() {
		f, err := r.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, f)
	}
	if r.Err() != nil {
		t.Fatalf("Err() = %v", r.Err())
	}
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Kind() != want[i].Kind() {
			t.Errorf("frame %d kind = %v, want %v", i, got[i].Kind(), want[i].Kind())
		}
	}
	if got[4].ChatItem.StandardMessage.Text != want[4].ChatItem.StandardMessage.Text {
		t.Error("large message body changed in transit")
	}

	if _, err := r.Next(); !errors.Is(err, backup.ErrNoSuchElement) {
		t.Errorf("Next() after exhaustion error = %v, want ErrNoSuchElement", err)
	}
	if r.HasNext() {
		t.Error("HasNext() = true after exhaustion")
	}
}

func TestReader_EmptyBody(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	data := writeStream(t, keys, &frame.BackupInfo{Version: frame.Version}, nil)

	info, frames, err := backup.ReadAll(bytes.NewReader(data), keys, int64(len(data)))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if info.Version != frame.Version || len(frames) != 0 {
		t.Errorf("ReadAll() = %+v, %d frames", info, len(frames))
	}
}

func TestReader_TamperedStreamNeverYieldsTrust(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	data := writeStream(t, keys, &frame.BackupInfo{Version: frame.Version, BackupTimeMs: 1}, testFrames())

	step := len(data) / 97
	for pos := 0; pos < len(data); pos += step {
		tampered := bytes.Clone(data)
		tampered[pos] ^= 0x80

		_, _, err := backup.ReadAll(bytes.NewReader(tampered), keys, int64(len(tampered)))
		if !errors.Is(err, stream.ErrIntegrity) && !errors.Is(err, stream.ErrDecryption) {
			t.Fatalf("flip at %d of %d: error = %v, want integrity or decryption failure", pos, len(data), err)
		}
	}
}

func TestReader_TruncatedStream(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	data := writeStream(t, keys, &frame.BackupInfo{Version: frame.Version}, testFrames())

	for _, size := range []int{5, 40, len(data) / 2, len(data) - 1} {
		_, _, err := backup.ReadAll(bytes.NewReader(data[:size]), keys, int64(len(data)))
		if !errors.Is(err, stream.ErrTruncatedStream) {
			t.Errorf("truncated to %d: error = %v, want ErrTruncatedStream", size, err)
		}
	}
}

func TestReader_UnsupportedVersion(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	data := writeStream(t, keys, &frame.BackupInfo{Version: 2}, nil)

	_, err := backup.NewReader(bytes.NewReader(data), keys, int64(len(data)))
	if !errors.Is(err, backup.ErrUnsupportedVersion) || !errors.Is(err, frame.ErrSchemaViolation) {
		t.Errorf("NewReader() error = %v, want ErrUnsupportedVersion", err)
	}
}

// writePlaintext enciphers already-compressed plaintext made of the header
// unit followed by raw.
func writePlaintext(t *testing.T, keys *stream.Keys, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	cw, err := stream.NewWriter(&buf, keys, nil)
	if err != nil {
		t.Fatalf("stream.NewWriter() error = %v", err)
	}
	gz := gzip.NewWriter(cw)
	header := frame.MarshalBackupInfo(&frame.BackupInfo{Version: frame.Version})
	gz.Write(binary.AppendUvarint(nil, uint64(len(header))))
	gz.Write(header)
	gz.Write(raw)
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close() error = %v", err)
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("stream Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestReader_AuthenticatedGarbageIsSchemaViolation(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)

	garbage := []byte{0x0a, 0x00, 0x2a, 0x00}
	data := writePlaintext(t, keys, append(binary.AppendUvarint(nil, uint64(len(garbage))), garbage...))

	r, err := backup.NewReader(bytes.NewReader(data), keys, int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if !r.HasNext() {
		t.Fatal("HasNext() = false, want pending error")
	}
	if _, err := r.Next(); !errors.Is(err, frame.ErrSchemaViolation) {
		t.Errorf("Next() error = %v, want ErrSchemaViolation", err)
	}
	if !errors.Is(r.Err(), frame.ErrSchemaViolation) {
		t.Errorf("Err() = %v", r.Err())
	}
	if r.HasNext() {
		t.Error("HasNext() = true after failure")
	}
}

func TestWriter_HeaderDiscipline(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)

	var buf bytes.Buffer
	w, err := backup.NewWriter(&buf, keys)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.WriteFrame(testFrames()[1]); err == nil {
		t.Error("WriteFrame() before header succeeded")
	}
	if err := w.WriteHeader(&frame.BackupInfo{Version: frame.Version}); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	if err := w.WriteHeader(&frame.BackupInfo{Version: frame.Version}); err == nil {
		t.Error("second WriteHeader() succeeded")
	}
	if err := w.WriteFrame(&frame.Frame{}); !errors.Is(err, frame.ErrSchemaViolation) {
		t.Errorf("WriteFrame(empty) error = %v, want ErrSchemaViolation", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.WriteFrame(testFrames()[1]); err == nil {
		t.Error("WriteFrame() after Close succeeded")
	}
	if err := stream.Verify(bytes.NewReader(buf.Bytes()), keys, int64(buf.Len())); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestReader_StreamWithoutHeader(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)

	var buf bytes.Buffer
	w, err := backup.NewWriter(&buf, keys)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := backup.NewReader(bytes.NewReader(buf.Bytes()), keys, int64(buf.Len())); !errors.Is(err, frame.ErrSchemaViolation) {
		t.Errorf("NewReader() error = %v, want ErrSchemaViolation", err)
	}
}

func TestReader_OverflowingUnitLength(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	data := writePlaintext(t, keys, bytes.Repeat([]byte{0xff}, 11))

	r, err := backup.NewReader(bytes.NewReader(data), keys, int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer r.Close()

	_, err = r.Next()
	if !errors.Is(err, frame.ErrSchemaViolation) || errors.Is(err, stream.ErrDecryption) {
		t.Errorf("Next() error = %v, want ErrSchemaViolation", err)
	}
}

func TestReader_Verify(t *testing.T) {
	t.Parallel()
	keys := testKeys(t)
	data := writeStream(t, keys, &frame.BackupInfo{Version: frame.Version, BackupTimeMs: 1}, testFrames())

	tests := []struct {
		name    string
		flip    int
		wantErr error
	}{
		{name: "intact", flip: -1},
		{name: "last ciphertext byte", flip: len(data) - stream.TagSize - 1, wantErr: stream.ErrIntegrity},
		{name: "tag", flip: len(data) - 1, wantErr: stream.ErrIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := bytes.Clone(data)
			if tt.flip >= 0 {
				input[tt.flip] ^= 0x01
			}
			r, err := backup.NewReader(bytes.NewReader(input), keys, int64(len(input)))
			if err != nil {
				t.Fatalf("NewReader() error = %v", err)
			}
			defer r.Close()

			if _, err := r.Next(); err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			err = r.Verify()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Verify() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if r.HasNext() {
				t.Error("HasNext() = true after Verify")
			}
		})
	}
}
