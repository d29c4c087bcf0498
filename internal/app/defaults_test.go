package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	homeDir, _ := os.UserHomeDir()
	wantBase := filepath.Join(homeDir, ".local", "share", "mbk")

	tests := []struct {
		name       string
		configPath string
		home       string
		want       Defaults
	}{
		{
			name:       "uses env vars when set",
			configPath: "/custom/config.toml",
			home:       "/custom/mbk",
			want:       Defaults{ConfigPath: "/custom/config.toml", BaseDir: "/custom/mbk", LogDir: "/custom/mbk/log"},
		},
		{
			name: "falls back to home dir defaults",
			want: Defaults{
				ConfigPath: filepath.Join(homeDir, ".config", "mbk.toml"),
				BaseDir:    wantBase,
				LogDir:     filepath.Join(wantBase, "log"),
			},
		},
		{
			name: "mixes env and defaults",
			home: "/srv/mbk",
			want: Defaults{ConfigPath: filepath.Join(homeDir, ".config", "mbk.toml"), BaseDir: "/srv/mbk", LogDir: "/srv/mbk/log"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigPath, tt.configPath)
			t.Setenv(EnvHome, tt.home)

			got, err := GetDefaults()
			if err != nil {
				t.Fatalf("GetDefaults() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("GetDefaults() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
