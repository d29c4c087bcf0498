package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mbk-go/internal/database/migrations"
	"mbk-go/internal/mb"
	"mbk-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements mb.Store on SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

var _ mb.Store = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens the database at path. ":memory:" opens a private
// in-memory database. The schema is not migrated; call Migrate.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection pool. Foreign keys
// are enforced on every connection; file databases use WAL so export
// snapshots do not block writers.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	memory := path == ":memory:"
	if memory {
		dsn = "file::memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Migrate brings the schema up to date.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations returns an error if the schema is not current.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Snapshot opens a read transaction that the export reads through.
func (s *SQLiteDatabase) Snapshot(ctx context.Context) (mb.ExportSnapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting snapshot: %w", err)
	}
	return &snapshot{tx: tx}, nil
}

// BeginRestore starts the write transaction an import runs in.
func (s *SQLiteDatabase) BeginRestore(ctx context.Context) (mb.RestoreTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting restore transaction: %w", err)
	}
	return &restoreTx{tx: tx}, nil
}

func (s *SQLiteDatabase) SelfIdentity(ctx context.Context) (*model.SelfIdentity, error) {
	var (
		self model.SelfIdentity
		aci  sql.NullString
		e164 int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT aci, pni, e164, profile_key FROM recipients WHERE kind = ? ORDER BY id LIMIT 1`,
		model.RecipientSelf,
	).Scan(&aci, &self.PNI, &e164, &self.ProfileKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding self recipient: %w", err)
	}
	if !aci.Valid {
		return nil, nil
	}
	if err := self.ACI.Scan(aci.String); err != nil {
		return nil, fmt.Errorf("parsing self aci: %w", err)
	}
	self.E164 = uint64(e164)
	return &self, nil
}

// Backup operations

func (s *SQLiteDatabase) CreateBackupOperation(ctx context.Context, operation, parameters string) (*model.BackupOperation, error) {
	op := &model.BackupOperation{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  time.Now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO backup_operations (operation, parameters, started_at) VALUES (?, ?, ?)`,
		op.Operation, op.Parameters, op.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating backup operation: %w", err)
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("creating backup operation: %w", err)
	}
	return op, nil
}

func (s *SQLiteDatabase) FinishBackupOperation(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE backup_operations SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing backup operation: %w", err)
	}
	return nil
}

// ListBackupOperations returns up to limit operations, newest first.
func (s *SQLiteDatabase) ListBackupOperations(ctx context.Context, limit int) ([]*model.BackupOperation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, operation, parameters, status, started_at, finished_at
		 FROM backup_operations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing backup operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.BackupOperation
	for rows.Next() {
		var (
			op       model.BackupOperation
			finished sql.NullTime
		)
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("listing backup operations: %w", err)
		}
		if finished.Valid {
			op.FinishedAt = &finished.Time
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing backup operations: %w", err)
	}
	return ops, nil
}

var countableTables = map[string]bool{
	"account":                   true,
	"preferred_reaction_emoji":  true,
	"recipients":                true,
	"distribution_list_members": true,
	"threads":                   true,
	"messages":                  true,
	"message_send_status":       true,
	"reactions":                 true,
	"calls":                     true,
	"sticker_packs":             true,
	"stickers":                  true,
	"backup_operations":         true,
}

// CountRows returns the number of rows in one of the store's tables.
func (s *SQLiteDatabase) CountRows(ctx context.Context, table string) (int64, error) {
	if !countableTables[table] {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}
