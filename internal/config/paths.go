package config

import "path/filepath"

// ConfigFilePath is the config file name under OPTEEE_HOME.
const ConfigFilePath = "config.toml"

func homeConfigPath(home string) string {
	return filepath.Join(home, ConfigFilePath)
}

func defaultHomePath(home string) string {
	return filepath.Join(home, ".opteee")
}

func (c *Config) ConfigPath() string {
	return homeConfigPath(c.HomeDir)
}

// StoreDir returns the configured vector-store directory; relative paths
// resolve against the working directory.
func (c *Config) StoreDir() string {
	return c.Store.Dir
}
