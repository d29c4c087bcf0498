package mb

import (
	"errors"

	"mbk-go/internal/backup"
	"mbk-go/internal/frame"
	"mbk-go/internal/stream"
)

// Failure sentinels of the codec, re-exported so callers need only this
// package for errors.Is checks.
var (
	ErrTruncatedStream = stream.ErrTruncatedStream
	ErrDecryption      = stream.ErrDecryption
	ErrIntegrity       = stream.ErrIntegrity
	ErrSchemaViolation = frame.ErrSchemaViolation
	ErrNoSuchElement   = backup.ErrNoSuchElement
)

var (
	// ErrBusy is returned when an export or import cannot start because a
	// conflicting operation is in flight.
	ErrBusy = errors.New("another backup operation is in progress")

	// ErrNoSelfRecipient means local state has no self recipient to export.
	ErrNoSelfRecipient = errors.New("no self recipient in local store")

	// ErrBackupNotFound is returned by vaults for a missing backup.
	ErrBackupNotFound = errors.New("backup not found")
)

// FailureKind is the user-facing category of a failed backup operation.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTampered
	FailureTruncated
	FailureUnsupported
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "ok"
	case FailureTampered:
		return "backup corrupted or tampered"
	case FailureTruncated:
		return "backup truncated or incomplete"
	case FailureUnsupported:
		return "backup format unsupported"
	default:
		return "backup failed"
	}
}

// Classify maps an error from an export, import or verify run to its
// FailureKind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrIntegrity), errors.Is(err, ErrDecryption):
		return FailureTampered
	case errors.Is(err, ErrTruncatedStream):
		return FailureTruncated
	case errors.Is(err, ErrSchemaViolation):
		return FailureUnsupported
	default:
		return FailureOther
	}
}
