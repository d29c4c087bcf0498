// Package keys stores and unlocks the backup key. The key itself never
// leaves this package unencrypted except as mb.KeyMaterial in memory.
package keys

import (
	"errors"
	"fmt"

	"mbk-go/internal/config"
	"mbk-go/internal/mb"
	"mbk-go/internal/stream"
)

// ErrLocked is returned by KeyMaterial before a successful Unlock.
var ErrLocked = errors.New("key store is locked")

// KeyStore is a KeyProvider whose key is created once and unlocked per
// session with a passphrase.
type KeyStore interface {
	mb.KeyProvider

	// Setup creates and stores a new random backup key. It fails if a key
	// already exists.
	Setup(passphrase string) error

	// SetupWithKey stores an existing backup key, e.g. when restoring on a
	// new device.
	SetupWithKey(passphrase string, backupKey []byte) error

	// Unlock decrypts the stored key for the rest of the session.
	Unlock(passphrase string) error

	IsConfigured() bool
}

// NewKeyStoreFromConfig creates a KeyStore based on the configuration type.
// accountID binds derived stream keys to one account.
func NewKeyStoreFromConfig(cfg config.KeysConfig, accountID []byte) (KeyStore, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.KeyPath == "" {
			return nil, fmt.Errorf("key_path required for age key store")
		}
		return NewAgeKeyStore(cfg.KeyPath, accountID), nil
	case "test":
		return NewTestKeyStore(accountID), nil
	default:
		return nil, fmt.Errorf("unknown key store type: %q", cfg.Type)
	}
}

func checkKey(k []byte) error {
	if len(k) != stream.KeySize {
		return fmt.Errorf("backup key must be %d bytes, got %d", stream.KeySize, len(k))
	}
	return nil
}
