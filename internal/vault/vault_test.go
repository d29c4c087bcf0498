package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"mbk-go/internal/mb"
)

// exerciseVault runs the behaviour every Vault implementation shares.
func exerciseVault(t *testing.T, v mb.Vault) {
	t.Helper()
	ctx := context.Background()

	if err := v.ValidateSetup(ctx); err != nil {
		t.Fatalf("ValidateSetup() error = %v", err)
	}

	list, err := v.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("ListBackups() on empty vault = %v, want none", list)
	}

	backups := map[string]string{
		"20260102T030405Z-bbbbbbbb.mbk": "second backup",
		"20260101T030405Z-aaaaaaaa.mbk": "first",
	}
	for name, data := range backups {
		if err := v.PutBackup(ctx, name, strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutBackup(%s) error = %v", name, err)
		}
	}

	for name, data := range backups {
		size, err := v.BackupSize(ctx, name)
		if err != nil {
			t.Fatalf("BackupSize(%s) error = %v", name, err)
		}
		if size != int64(len(data)) {
			t.Errorf("BackupSize(%s) = %d, want %d", name, size, len(data))
		}

		rc, err := v.OpenBackup(ctx, name)
		if err != nil {
			t.Fatalf("OpenBackup(%s) error = %v", name, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if string(got) != data {
			t.Errorf("OpenBackup(%s) content = %q, want %q", name, got, data)
		}
	}

	list, err = v.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListBackups() returned %d entries, want 2", len(list))
	}
	if list[0].Name != "20260101T030405Z-aaaaaaaa.mbk" || list[1].Name != "20260102T030405Z-bbbbbbbb.mbk" {
		t.Errorf("ListBackups() order = [%s %s], want oldest first", list[0].Name, list[1].Name)
	}
	if list[0].Size != 5 {
		t.Errorf("ListBackups()[0].Size = %d, want 5", list[0].Size)
	}

	// Overwrite keeps a single entry.
	replacement := []byte("replaced")
	if err := v.PutBackup(ctx, list[0].Name, bytes.NewReader(replacement), int64(len(replacement))); err != nil {
		t.Fatalf("PutBackup() overwrite error = %v", err)
	}
	if size, _ := v.BackupSize(ctx, list[0].Name); size != int64(len(replacement)) {
		t.Errorf("BackupSize() after overwrite = %d, want %d", size, len(replacement))
	}

	if _, err := v.OpenBackup(ctx, "missing.mbk"); !errors.Is(err, mb.ErrBackupNotFound) {
		t.Errorf("OpenBackup(missing) error = %v, want ErrBackupNotFound", err)
	}
	if _, err := v.BackupSize(ctx, "missing.mbk"); !errors.Is(err, mb.ErrBackupNotFound) {
		t.Errorf("BackupSize(missing) error = %v, want ErrBackupNotFound", err)
	}

	if err := v.PutBackup(ctx, "short.mbk", strings.NewReader("abc"), 10); err == nil {
		t.Error("PutBackup() with wrong size succeeded, want error")
	}
	if _, err := v.BackupSize(ctx, "short.mbk"); !errors.Is(err, mb.ErrBackupNotFound) {
		t.Errorf("BackupSize(short) error = %v, want ErrBackupNotFound after failed put", err)
	}
}

func TestCheckName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wantErr bool
	}{
		{"20260101T000000Z-0123abcd.mbk", false},
		{"plain", false},
		{"", true},
		{".", true},
		{"..", true},
		{".hidden", true},
		{"a/b", true},
		{`a\b`, true},
		{"../escape", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := checkName(tt.name); (err != nil) != tt.wantErr {
				t.Errorf("checkName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
