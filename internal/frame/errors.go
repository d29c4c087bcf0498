package frame

import (
	"errors"
	"fmt"
)

// ErrSchemaViolation is returned when a header or frame does not conform to
// the backup schema: malformed wire data, a missing required field, a bad
// identifier length, or a oneof with zero or several populated variants.
var ErrSchemaViolation = errors.New("schema violation")

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaViolation, fmt.Sprintf(format, args...))
}
