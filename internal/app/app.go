package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"mbk-go/internal/compare"
	"mbk-go/internal/config"
	"mbk-go/internal/database"
	"mbk-go/internal/frame"
	"mbk-go/internal/keys"
	"mbk-go/internal/lock"
	"mbk-go/internal/mb"
	"mbk-go/internal/model"
	"mbk-go/internal/staging"
	"mbk-go/internal/vault"
)

// MBKApp is the application layer between the CLI and BackupService.
// It constructs all dependencies from config, records mutating operations,
// and manages the DB lifecycle on Close.
type MBKApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	vault   mb.Vault
	keys    keys.KeyStore
	service *mb.BackupService
	logger  *slog.Logger
	op      *BackupOperation
	logFile *os.File
}

// NewMBKApp creates a fully wired MBKApp from the given config.
// operation identifies the CLI command being run (e.g. "export", "import").
// The caller must call Close when done.
func NewMBKApp(ctx context.Context, cfg *config.Config, operation string) (*MBKApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	aci := uuid.MustParse(cfg.Account.ACI)

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	spool, err := staging.NewSpoolFromConfig(cfg.Staging)
	if err != nil {
		return nil, fmt.Errorf("creating staging area: %w", err)
	}

	ks, err := keys.NewKeyStoreFromConfig(cfg.Keys, aci[:])
	if err != nil {
		return nil, fmt.Errorf("creating key store: %w", err)
	}

	proc, err := lock.New(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("creating process lock: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := mb.NewBackupService(db, v, spool, ks, mb.NewCoordinator(proc), &slogAdapter{l: logger}, mb.RealClock{}, mb.UUIDGenerator{})

	return &MBKApp{
		cfg:     cfg,
		db:      db,
		vault:   v,
		keys:    ks,
		service: svc,
		logger:  logger,
		op:      NewBackupOperation(operation),
		logFile: logFile,
	}, nil
}

// Check verifies that the vault is reachable and configured.
func (a *MBKApp) Check(ctx context.Context) error {
	if err := a.vault.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("validating vault: %w", err)
	}
	return nil
}

// Keys returns the key store so the CLI can set it up or unlock it.
func (a *MBKApp) Keys() keys.KeyStore {
	return a.keys
}

// persistOperation saves the backup operation to the database, giving it an auto-increment ID.
// This should only be called for DB-mutating commands.
func (a *MBKApp) persistOperation(ctx context.Context, parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateBackupOperation(ctx, a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting backup operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

func (a *MBKApp) track(err error) error {
	a.op.Fail(err)
	return err
}

// Export writes a backup of local state to the vault.
func (a *MBKApp) Export(ctx context.Context) (*mb.BackupRecord, error) {
	if err := a.persistOperation(ctx, ""); err != nil {
		return nil, err
	}
	record, err := a.service.ExportToVault(ctx)
	return record, a.track(err)
}

// Import replaces local state with the named backup. The self recipient
// keeps its stored identity, or the configured account on a fresh store.
func (a *MBKApp) Import(ctx context.Context, name string) (*mb.Summary, error) {
	if err := a.persistOperation(ctx, name); err != nil {
		return nil, err
	}
	self, err := a.selfIdentity(ctx)
	if err != nil {
		return nil, a.track(err)
	}
	summary, err := a.service.ImportFromVault(ctx, name, *self)
	return summary, a.track(err)
}

func (a *MBKApp) selfIdentity(ctx context.Context) (*model.SelfIdentity, error) {
	stored, err := a.db.SelfIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading self identity: %w", err)
	}
	if stored != nil {
		return stored, nil
	}
	return SelfIdentityFromConfig(a.cfg.Account)
}

// SelfIdentityFromConfig builds the identity a fresh store's self recipient
// is created with.
func SelfIdentityFromConfig(cfg config.AccountConfig) (*model.SelfIdentity, error) {
	aci, err := uuid.Parse(cfg.ACI)
	if err != nil {
		return nil, fmt.Errorf("account.aci: %w", err)
	}
	self := &model.SelfIdentity{ACI: aci, E164: cfg.E164}
	if cfg.PNI != "" {
		pni, err := uuid.Parse(cfg.PNI)
		if err != nil {
			return nil, fmt.Errorf("account.pni: %w", err)
		}
		self.PNI = uuid.NullUUID{UUID: pni, Valid: true}
	}
	return self, nil
}

// Verify checks the named backup end to end without touching local state.
func (a *MBKApp) Verify(ctx context.Context, name string) (*mb.Summary, error) {
	return a.service.Verify(ctx, name)
}

// ListBackups returns the backups in the vault, oldest first.
func (a *MBKApp) ListBackups(ctx context.Context) ([]mb.BackupObject, error) {
	return a.service.ListBackups(ctx)
}

// GetHistory returns the most recent backup operations.
func (a *MBKApp) GetHistory(ctx context.Context, limit int) ([]*model.BackupOperation, error) {
	return a.service.GetHistory(ctx, limit)
}

// Diff reports how the content of backup b differs from backup a. An
// empty result means they hold the same state.
func (a *MBKApp) Diff(ctx context.Context, nameA, nameB string) (string, error) {
	want, err := a.frames(ctx, nameA)
	if err != nil {
		return "", err
	}
	got, err := a.frames(ctx, nameB)
	if err != nil {
		return "", err
	}
	return compare.Diff(want, got)
}

func (a *MBKApp) frames(ctx context.Context, name string) ([]*frame.Frame, error) {
	_, frames, err := a.service.ReadBackup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return frames, nil
}

// Close finalizes the operation record and closes all resources.
func (a *MBKApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if a.op.Err != nil {
			a.logger.Error("operation failed", "operation", a.op.Operation, "id", a.op.ID, "error", a.op.Err)
		} else {
			a.logger.Info("operation finished", "operation", a.op.Operation, "id", a.op.ID)
		}
		if err := a.db.FinishBackupOperation(context.Background(), a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing backup operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
