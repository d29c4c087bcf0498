package mb

import (
	"context"
	"io"
	"time"
)

// BackupObject describes a backup file held by a vault.
type BackupObject struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}

// Vault stores finished backup files. All operations stream so backups are
// never held in memory whole.
type Vault interface {
	// PutBackup stores a backup under name. size is the number of bytes
	// that will be read from r.
	PutBackup(ctx context.Context, name string, r io.Reader, size int64) error

	// OpenBackup returns a reader over a stored backup. It returns
	// ErrBackupNotFound for unknown names.
	OpenBackup(ctx context.Context, name string) (io.ReadCloser, error)

	// BackupSize returns the stored length of a backup.
	BackupSize(ctx context.Context, name string) (int64, error)

	// ListBackups returns the stored backups, oldest first.
	ListBackups(ctx context.Context) ([]BackupObject, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}

// Spool holds an export while it is being written so its final size is
// known before it is handed to a vault.
type Spool interface {
	Create() (SpoolFile, error)
}

// SpoolFile is one spooled export.
type SpoolFile interface {
	io.Writer

	// Size returns the number of bytes written so far.
	Size() int64

	// Open returns a reader over everything written.
	Open() (io.ReadCloser, error)

	// Discard releases the spooled data.
	Discard() error
}
