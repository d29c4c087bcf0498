package mb_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"mbk-go/internal/backup"
	"mbk-go/internal/compare"
	"mbk-go/internal/database"
	"mbk-go/internal/frame"
	"mbk-go/internal/mb"
	"mbk-go/internal/stream"
	"mbk-go/internal/testutil"
)

func opener(data []byte) mb.SourceFactory {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

func importBytes(t *testing.T, store mb.Store, keys *stream.Keys, data []byte) (*mb.Importer, *mb.Summary, error) {
	t.Helper()
	im := mb.NewImporter(store, keys, nil)
	summary, err := im.Import(context.Background(), int64(len(data)), opener(data), testutil.SampleSelf())
	return im, summary, err
}

// mustImportSample restores SampleFrames into store.
func mustImportSample(t *testing.T, store mb.Store, keys *stream.Keys) {
	t.Helper()
	data := testutil.WriteBackup(t, keys, testutil.SampleHeader(), testutil.SampleFrames())
	if _, _, err := importBytes(t, store, keys, data); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
}

// exportFrames exports store and decodes the result again.
func exportFrames(t *testing.T, store mb.Store, keys *stream.Keys) (*frame.BackupInfo, []*frame.Frame) {
	t.Helper()
	ctx := context.Background()

	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	var buf bytes.Buffer
	_, err = mb.NewExporter(keys, testutil.FixedClock(), nil).Export(ctx, snap, &buf)
	snap.Close()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	header, frames, err := backup.ReadAll(bytes.NewReader(buf.Bytes()), keys, int64(buf.Len()))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return header, frames
}

// assertState fails unless store exports frames equivalent to want.
func assertState(t *testing.T, store mb.Store, keys *stream.Keys, want []*frame.Frame) {
	t.Helper()
	_, got := exportFrames(t, store, keys)
	d, err := compare.Diff(want, got)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if d != "" {
		t.Errorf("exported state mismatch (-want +got):\n%s", d)
	}
}

func newStore(t *testing.T) *database.SQLiteDatabase {
	t.Helper()
	return testutil.NewTestStore(t)
}

func deriveKeys(t *testing.T, km *mb.KeyMaterial) *stream.Keys {
	t.Helper()
	k, err := stream.DeriveKeys(km.BackupKey, km.AccountID)
	if err != nil {
		t.Fatalf("DeriveKeys() error = %v", err)
	}
	return k
}
