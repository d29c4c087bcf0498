package testutil

import (
	"testing"

	"mbk-go/internal/keys"
	"mbk-go/internal/stream"
)

// NewTestKeyStore returns an unlocked key store bound to SampleSelf's ACI.
func NewTestKeyStore() *keys.TestKeyStore {
	return keys.NewTestKeyStore(AccountID())
}

// AccountID is the account identifier all sample streams are bound to.
func AccountID() []byte {
	id := SelfACI
	return id[:]
}

// StreamKeys derives the cipher keys NewTestKeyStore's material yields.
func StreamKeys(t *testing.T) *stream.Keys {
	t.Helper()
	km, err := NewTestKeyStore().KeyMaterial()
	if err != nil {
		t.Fatalf("KeyMaterial() error = %v", err)
	}
	k, err := stream.DeriveKeys(km.BackupKey, km.AccountID)
	if err != nil {
		t.Fatalf("DeriveKeys() error = %v", err)
	}
	return k
}
