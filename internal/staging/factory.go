package staging

import (
	"fmt"

	"mbk-go/internal/config"
	"mbk-go/internal/mb"
)

// NewSpoolFromConfig creates a Spool implementation based on the config type.
func NewSpoolFromConfig(cfg config.StagingConfig) (mb.Spool, error) {
	if cfg.MaxSize < 0 {
		return nil, fmt.Errorf("staging max_size must not be negative, got %d", cfg.MaxSize)
	}

	switch cfg.Type {
	case "memory":
		return NewMemorySpool(cfg.MaxSize), nil
	case "filesystem":
		if cfg.StagingDir == "" {
			return nil, fmt.Errorf("filesystem staging area requires staging_dir to be set")
		}
		s, err := NewFileSystemSpool(cfg.StagingDir, cfg.MaxSize)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown staging area type: %s", cfg.Type)
	}
}
