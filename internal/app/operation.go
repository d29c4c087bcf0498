package app

// Statuses written to backup_operations when an operation finishes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BackupOperation is the in-memory record of one CLI command. Only export
// and import persist it; the row is finished with the final status when
// the app closes.
type BackupOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	Err        error
}

// NewBackupOperation creates an unpersisted operation that has not failed.
func NewBackupOperation(operation string) *BackupOperation {
	return &BackupOperation{Operation: operation, Status: StatusSuccess}
}

// Persisted returns true if this operation has been saved to the database.
func (op *BackupOperation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation failed. The first error is kept.
func (op *BackupOperation) Fail(err error) {
	if err == nil {
		return
	}
	op.Status = StatusError
	if op.Err == nil {
		op.Err = err
	}
}
