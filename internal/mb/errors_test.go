package mb

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureNone},
		{"integrity", fmt.Errorf("frame 3: %w", ErrIntegrity), FailureTampered},
		{"decryption", ErrDecryption, FailureTampered},
		{"truncated", fmt.Errorf("reading: %w", ErrTruncatedStream), FailureTruncated},
		{"schema", violationf("second self recipient"), FailureUnsupported},
		{"busy", fmt.Errorf("import: %w", ErrBusy), FailureOther},
		{"cancelled", context.Canceled, FailureOther},
		{"io", errors.New("connection reset"), FailureOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFailureKind_String(t *testing.T) {
	t.Parallel()

	tests := map[FailureKind]string{
		FailureNone:        "ok",
		FailureTampered:    "backup corrupted or tampered",
		FailureTruncated:   "backup truncated or incomplete",
		FailureUnsupported: "backup format unsupported",
		FailureOther:       "backup failed",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("FailureKind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
