package testutil

import (
	"mbk-go/internal/staging"
)

const (
	// DefaultSpoolMaxSize is the default max size for test spools (10MB).
	DefaultSpoolMaxSize = 10 * 1024 * 1024
)

// NewTestSpool creates a new in-memory spool for testing.
func NewTestSpool() *staging.Spool {
	return staging.NewMemorySpool(DefaultSpoolMaxSize)
}

// NewTestSpoolWithSize creates a new in-memory spool with a custom max size.
func NewTestSpoolWithSize(maxSize int64) *staging.Spool {
	return staging.NewMemorySpool(maxSize)
}
