package app

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// BackupDirName is the backup folder created next to a source file.
const BackupDirName = "backup_history"

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SAVEKEEP_CONFIG_PATH: config file location (default: ~/.config/savekeep.toml)
//   - SAVEKEEP_HOME: base directory for savekeep data (default: ~/.local/share/savekeep)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking SAVEKEEP_CONFIG_PATH env var first,
// then falling back to the default ~/.config/savekeep.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("SAVEKEEP_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "savekeep.toml"), nil
}

// getBaseDir returns the base directory for savekeep data, checking SAVEKEEP_HOME env var first,
// then falling back to the XDG default ~/.local/share/savekeep.
func getBaseDir() (string, error) {
	if path := os.Getenv("SAVEKEEP_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "savekeep"), nil
}

// DefaultBackupDir returns the backup folder for source: backup_history next
// to it, or the game's application-data folder when no source is known.
func DefaultBackupDir(source string) string {
	if source != "" {
		return filepath.Join(filepath.Dir(source), BackupDirName)
	}
	home, _ := os.UserHomeDir()
	return appDataBackupDir(runtime.GOOS, os.Getenv("APPDATA"), home)
}

func appDataBackupDir(goos, appData, home string) string {
	if goos == "windows" {
		if appData == "" {
			appData = home
		}
		return filepath.Join(appData, "Glaiel Games", "Mewgenics", BackupDirName)
	}
	return filepath.Join(home, ".local", "share", "Glaiel Games", "Mewgenics", BackupDirName)
}
