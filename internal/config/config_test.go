package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testACI = "5f8e3c1a-9b2d-4e7f-8a6c-1d2e3f4a5b6c"

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/mbk",
		LogDir:  "/home/user/.local/share/mbk/log",
		Account: AccountConfig{ACI: testACI, E164: 15551234567},
		Keys:    KeysConfig{Type: "age", KeyPath: "/home/user/.local/share/mbk/keys/backup.key.age"},
		Vault: VaultConfig{
			Type:     "s3",
			Name:     "offsite",
			S3Bucket: "backups",
			S3Prefix: "phone/",
			S3Region: "eu-west-1",
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: "/home/user/.local/share/mbk/db"},
		Staging:  StagingConfig{Type: "filesystem", StagingDir: "/tmp/mbk", MaxSize: 2048},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if *got != *original {
		t.Errorf("Read() = %+v, want %+v", got, original)
	}
}

func TestManager_Read_UnknownKey(t *testing.T) {
	input := "base_dir = \"/data\"\n[vault]\ntype = \"memory\"\nbucket = \"typo\"\n"

	_, err := (&Manager{}).Read(strings.NewReader(input))
	if err == nil {
		t.Fatal("Read() expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "vault.bucket") {
		t.Errorf("Read() error = %v, want it to name vault.bucket", err)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(testACI, "/data/mbk")

	if cfg.Account.ACI != testACI {
		t.Errorf("Account.ACI = %q, want %q", cfg.Account.ACI, testACI)
	}
	if cfg.BaseDir != "/data/mbk" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/mbk")
	}
	if cfg.LogDir != "/data/mbk/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/mbk/log")
	}
	if cfg.Keys.KeyPath != "/data/mbk/keys/backup.key.age" {
		t.Errorf("Keys.KeyPath = %q, want %q", cfg.Keys.KeyPath, "/data/mbk/keys/backup.key.age")
	}
	if cfg.Vault.Type != "filesystem" || cfg.Vault.FSVaultRoot != "/data/mbk/vault" {
		t.Errorf("Vault = %+v, want filesystem vault under /data/mbk/vault", cfg.Vault)
	}
	if cfg.Database.DataDir != "/data/mbk/data" {
		t.Errorf("Database.DataDir = %q, want %q", cfg.Database.DataDir, "/data/mbk/data")
	}
	if cfg.Staging.StagingDir != "/data/mbk/staging" {
		t.Errorf("Staging.StagingDir = %q, want %q", cfg.Staging.StagingDir, "/data/mbk/staging")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing aci", func(c *Config) { c.Account.ACI = "" }, true},
		{"malformed aci", func(c *Config) { c.Account.ACI = "not-a-uuid" }, true},
		{"malformed pni", func(c *Config) { c.Account.PNI = "nope" }, true},
		{"valid pni", func(c *Config) { c.Account.PNI = testACI }, false},
		{"negative max size", func(c *Config) { c.Staging.MaxSize = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(testACI, "/data")
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "mbk.toml")

		if err := Init(path, NewConfig(testACI, dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mbk.toml")
		cfg := NewConfig(testACI, dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mbk.toml")
		cfg := NewConfig(testACI, dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Account.ACI != testACI {
			t.Errorf("Account.ACI = %q, want %q", got.Account.ACI, testACI)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/mbk.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
