package keys

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"

	"mbk-go/internal/mb"
	"mbk-go/internal/stream"
)

// AgeKeyStore keeps the backup key in a file encrypted with the user's
// passphrase using age's scrypt-based passphrase encryption.
type AgeKeyStore struct {
	path      string
	accountID []byte

	mu       sync.Mutex
	unlocked []byte
}

var _ KeyStore = (*AgeKeyStore)(nil)

// NewAgeKeyStore creates an AgeKeyStore backed by the file at path.
func NewAgeKeyStore(path string, accountID []byte) *AgeKeyStore {
	return &AgeKeyStore{path: path, accountID: accountID}
}

// Setup generates a random backup key and stores it.
func (s *AgeKeyStore) Setup(passphrase string) error {
	key := make([]byte, stream.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return fmt.Errorf("generating backup key: %w", err)
	}
	return s.SetupWithKey(passphrase, key)
}

// SetupWithKey encrypts backupKey with passphrase and writes it to the key
// file. An existing key file is never overwritten.
func (s *AgeKeyStore) SetupWithKey(passphrase string, backupKey []byte) error {
	if err := checkKey(backupKey); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(backupKey); err != nil {
		return fmt.Errorf("writing encrypted key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted key: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("key file already exists at %s", s.path)
		}
		return fmt.Errorf("creating key file: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(s.path)
		return fmt.Errorf("writing key file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(s.path)
		return fmt.Errorf("writing key file: %w", err)
	}

	s.mu.Lock()
	s.unlocked = bytes.Clone(backupKey)
	s.mu.Unlock()
	return nil
}

// Unlock decrypts the key file with passphrase. A wrong passphrase fails
// and leaves the store locked.
func (s *AgeKeyStore) Unlock(passphrase string) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading key file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return fmt.Errorf("decrypting key file: %w", err)
	}
	key, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading decrypted key: %w", err)
	}
	if err := checkKey(key); err != nil {
		return fmt.Errorf("key file %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.unlocked = key
	s.mu.Unlock()
	return nil
}

// IsConfigured returns true if the key file exists.
func (s *AgeKeyStore) IsConfigured() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *AgeKeyStore) KeyMaterial() (*mb.KeyMaterial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unlocked == nil {
		return nil, ErrLocked
	}
	return &mb.KeyMaterial{BackupKey: bytes.Clone(s.unlocked), AccountID: bytes.Clone(s.accountID)}, nil
}
