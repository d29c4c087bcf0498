package mb

import (
	"fmt"

	"mbk-go/internal/stream"
)

// KeyMaterial is what the cipher layer needs: the backup key and the
// account identifier the stream is bound to.
type KeyMaterial struct {
	BackupKey []byte
	AccountID []byte
}

// KeyProvider supplies key material. How the key is stored or unlocked is
// up to the implementation.
type KeyProvider interface {
	KeyMaterial() (*KeyMaterial, error)
}

func streamKeys(p KeyProvider) (*stream.Keys, error) {
	km, err := p.KeyMaterial()
	if err != nil {
		return nil, fmt.Errorf("loading key material: %w", err)
	}
	keys, err := stream.DeriveKeys(km.BackupKey, km.AccountID)
	if err != nil {
		return nil, fmt.Errorf("deriving stream keys: %w", err)
	}
	return keys, nil
}
