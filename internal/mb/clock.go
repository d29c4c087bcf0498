package mb

import (
	"time"

	"github.com/google/uuid"
)

// Clock stamps backup headers and backup names.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator supplies the random suffix that keeps backup names from two
// exports in the same second distinct.
type IDGenerator interface {
	New() string
}

// UUIDGenerator returns random version 4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
