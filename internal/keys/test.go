package keys

import (
	"bytes"

	"mbk-go/internal/mb"
	"mbk-go/internal/stream"
)

// TestKeyStore is an always-unlocked KeyStore with a fixed, deterministic
// key. It is meant for tests and throwaway configurations only.
type TestKeyStore struct {
	key       []byte
	accountID []byte
}

var _ KeyStore = (*TestKeyStore)(nil)

// NewTestKeyStore creates a TestKeyStore whose key is 0x01 0x02 ... 0x20.
func NewTestKeyStore(accountID []byte) *TestKeyStore {
	key := make([]byte, stream.KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return &TestKeyStore{key: key, accountID: accountID}
}

func (s *TestKeyStore) Setup(string) error { return nil }

func (s *TestKeyStore) SetupWithKey(_ string, key []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.key = bytes.Clone(key)
	return nil
}

func (s *TestKeyStore) Unlock(string) error { return nil }

func (s *TestKeyStore) IsConfigured() bool { return true }

func (s *TestKeyStore) KeyMaterial() (*mb.KeyMaterial, error) {
	return &mb.KeyMaterial{BackupKey: bytes.Clone(s.key), AccountID: bytes.Clone(s.accountID)}, nil
}
