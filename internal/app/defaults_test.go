package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("SAVEKEEP_CONFIG_PATH", "/custom/config.toml")
		t.Setenv("SAVEKEEP_HOME", "/custom/savekeep")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if defaults["config_path"] != "/custom/config.toml" {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], "/custom/config.toml")
		}
		if defaults["base_dir"] != "/custom/savekeep" {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], "/custom/savekeep")
		}
		if want := filepath.Join("/custom/savekeep", "log"); defaults["log_dir"] != want {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], want)
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("SAVEKEEP_CONFIG_PATH", "")
		t.Setenv("SAVEKEEP_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "savekeep.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "savekeep")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}

		wantLog := filepath.Join(wantBase, "log")
		if defaults["log_dir"] != wantLog {
			t.Errorf("log_dir = %q, want %q", defaults["log_dir"], wantLog)
		}
	})
}

func TestDefaultBackupDir(t *testing.T) {
	source := filepath.Join("/games", "saves", "slot1.sav")
	want := filepath.Join("/games", "saves", BackupDirName)
	if got := DefaultBackupDir(source); got != want {
		t.Errorf("DefaultBackupDir(%q) = %q, want %q", source, got, want)
	}
}

func TestAppDataBackupDir(t *testing.T) {
	tests := []struct {
		name    string
		goos    string
		appData string
		home    string
		want    string
	}{
		{
			name:    "windows uses APPDATA",
			goos:    "windows",
			appData: "/appdata",
			home:    "/home/u",
			want:    filepath.Join("/appdata", "Glaiel Games", "Mewgenics", BackupDirName),
		},
		{
			name: "windows without APPDATA falls back to home",
			goos: "windows",
			home: "/home/u",
			want: filepath.Join("/home/u", "Glaiel Games", "Mewgenics", BackupDirName),
		},
		{
			name:    "other systems use local share",
			goos:    "linux",
			appData: "/ignored",
			home:    "/home/u",
			want:    filepath.Join("/home/u", ".local", "share", "Glaiel Games", "Mewgenics", BackupDirName),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := appDataBackupDir(tt.goos, tt.appData, tt.home); got != tt.want {
				t.Errorf("appDataBackupDir() = %q, want %q", got, tt.want)
			}
		})
	}
}
