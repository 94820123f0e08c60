package azure

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// CLIConfig holds the settings azcost reads from the az CLI configuration directory
type CLIConfig struct {
	// Cloud is the active cloud name, e.g. AzureCloud
	Cloud string
}

// CLIConfigDir returns the az CLI configuration directory
func CLIConfigDir() (string, error) {
	if dir := os.Getenv("AZURE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}
	return filepath.Join(home, ".azure"), nil
}

// LoadCLIConfig reads the active cloud from the config file in dir. A missing
// file is not an error and selects the public cloud.
func LoadCLIConfig(dir string) (CLIConfig, error) {
	cfg := CLIConfig{Cloud: "AzureCloud"}

	configPath := filepath.Join(dir, "config")
	if _, err := os.Stat(configPath); err == nil {
		file, err := ini.Load(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load az CLI config file: %w", err)
		}
		if name := file.Section("cloud").Key("name").String(); name != "" {
			cfg.Cloud = name
		}
	}

	return cfg, nil
}

// PortalHost returns the portal host of the configured cloud
func (c CLIConfig) PortalHost() string {
	return PortalHostForCloud(c.Cloud)
}
