package mb

import (
	"context"
	"fmt"
	"io"

	"mbk-go/internal/backup"
	"mbk-go/internal/frame"
	"mbk-go/internal/model"
)

// BackupRecord describes a backup stored by ExportToVault.
type BackupRecord struct {
	Name    string
	Size    int64
	Summary *Summary
}

// BackupService is the orchestration layer that moves backups between the
// local store and a vault for the CLI.
type BackupService struct {
	store  Store
	vault  Vault
	spool  Spool
	keys   KeyProvider
	coord  *Coordinator
	logger Logger
	clock  Clock
	idgen  IDGenerator
}

// NewBackupService creates a BackupService with the provided dependencies.
// A nil coord gets a process-local Coordinator.
func NewBackupService(store Store, vault Vault, spool Spool, keys KeyProvider, coord *Coordinator, logger Logger, clock Clock, idgen IDGenerator) *BackupService {
	if coord == nil {
		coord = NewCoordinator(nil)
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	return &BackupService{
		store:  store,
		vault:  vault,
		spool:  spool,
		keys:   keys,
		coord:  coord,
		logger: logger,
		clock:  clock,
		idgen:  idgen,
	}
}

// backupName is sortable by time; the id suffix keeps names from two
// exports in the same second apart.
func (s *BackupService) backupName() string {
	id := s.idgen.New()
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s.mbk", s.clock.Now().UTC().Format("20060102T150405Z"), id)
}

// ExportToVault writes a backup of the current local state and stores it in
// the vault. The backup is spooled first so its size is known on upload.
func (s *BackupService) ExportToVault(ctx context.Context) (*BackupRecord, error) {
	release, err := s.coord.BeginExport()
	if err != nil {
		return nil, err
	}
	defer release()

	keys, err := streamKeys(s.keys)
	if err != nil {
		return nil, err
	}

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer snap.Close()

	spooled, err := s.spool.Create()
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}
	defer func() {
		if err := spooled.Discard(); err != nil {
			s.logger.Warn("discarding spool file", "error", err)
		}
	}()

	summary, err := NewExporter(keys, s.clock, s.logger).Export(ctx, snap, spooled)
	if err != nil {
		return nil, err
	}

	content, err := spooled.Open()
	if err != nil {
		return nil, fmt.Errorf("reading spool file: %w", err)
	}
	defer content.Close()

	record := &BackupRecord{Name: s.backupName(), Size: spooled.Size(), Summary: summary}
	if err := s.vault.PutBackup(ctx, record.Name, content, record.Size); err != nil {
		return nil, fmt.Errorf("uploading to vault: %w", err)
	}

	s.logger.Info("backup exported", "name", record.Name, "size", record.Size, "frames", summary.Total())
	return record, nil
}

// ImportFromVault replaces local state with the named backup. self is the
// identity the restored self recipient keeps.
func (s *BackupService) ImportFromVault(ctx context.Context, name string, self model.SelfIdentity) (*Summary, error) {
	release, err := s.coord.BeginImport()
	if err != nil {
		return nil, err
	}
	defer release()

	keys, err := streamKeys(s.keys)
	if err != nil {
		return nil, err
	}

	size, err := s.vault.BackupSize(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("looking up backup %s: %w", name, err)
	}

	open := func() (io.ReadCloser, error) {
		return s.vault.OpenBackup(ctx, name)
	}
	summary, err := NewImporter(s.store, keys, s.logger).Import(ctx, size, open, self)
	if err != nil {
		return nil, err
	}

	s.logger.Info("backup imported", "name", name, "frames", summary.Total())
	return summary, nil
}

// Verify reads the named backup to the end without touching local state.
func (s *BackupService) Verify(ctx context.Context, name string) (*Summary, error) {
	keys, err := streamKeys(s.keys)
	if err != nil {
		return nil, err
	}

	size, err := s.vault.BackupSize(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("looking up backup %s: %w", name, err)
	}
	rc, err := s.vault.OpenBackup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("opening backup %s: %w", name, err)
	}
	defer rc.Close()

	return VerifyStream(rc, keys, size)
}

// ReadBackup decodes every frame of the named backup. The frames are only
// returned once the stream has verified.
func (s *BackupService) ReadBackup(ctx context.Context, name string) (*frame.BackupInfo, []*frame.Frame, error) {
	keys, err := streamKeys(s.keys)
	if err != nil {
		return nil, nil, err
	}

	size, err := s.vault.BackupSize(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up backup %s: %w", name, err)
	}
	rc, err := s.vault.OpenBackup(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("opening backup %s: %w", name, err)
	}
	defer rc.Close()

	return backup.ReadAll(rc, keys, size)
}

// ListBackups returns the backups held by the vault, oldest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupObject, error) {
	objs, err := s.vault.ListBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	return objs, nil
}

// GetHistory returns the most recent backup operations, ordered newest first.
func (s *BackupService) GetHistory(ctx context.Context, limit int) ([]*model.BackupOperation, error) {
	ops, err := s.store.ListBackupOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing backup operations: %w", err)
	}
	return ops, nil
}
