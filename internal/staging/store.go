package staging

import "io"

// spoolStore provides the storage mechanics for a spool. Implementations
// need not be safe for concurrent use; the Spool serialises access.
type spoolStore interface {
	// create allocates backing storage for one export.
	create() (spoolBuffer, error)
}

// spoolBuffer is the backing storage of a single spooled export.
type spoolBuffer interface {
	io.Writer

	// reader returns a reader over everything written so far.
	reader() (io.ReadCloser, error)

	// remove releases the storage. It is safe to call more than once.
	remove() error
}
