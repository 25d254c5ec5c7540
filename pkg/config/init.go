package config

import (
	"fmt"
	"os"
)

// InitConfig writes a default configuration file to the default location.
// If force is false and a file already exists there, it returns an error.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a default configuration file to path.
// If force is false and a file already exists at path, it returns an error.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s\n\nUse --force to overwrite", path)
		}
	}

	cfg := GetDefaultConfig()
	return SaveConfig(cfg, path)
}
