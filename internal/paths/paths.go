// Package paths resolves where the appraiser keeps its configuration, its
// record store data and its local form cache.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user platform directories.
const AppName = "appraiser"

// Directory names used when no override is set.
const (
	DefaultDataDirName   = ".appraisal-db"
	DefaultExportDirName = "exports"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "APPRAISAL_CONFIG_DIR"
	EnvDataDir   = "APPRAISAL_DATA_DIR"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/appraiser (fallback ~/.config/appraiser)
// macOS:   ~/Library/Application Support/appraiser
// Windows: %APPDATA%/appraiser
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/appraiser (fallback ~/.local/share/appraiser)
// macOS:   ~/Library/Application Support/appraiser
// Windows: %APPDATA%/appraiser
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

func xdgDir(env, homeRel string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppName), nil
}

// ResolveConfigDir applies flag > APPRAISAL_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config data_dir > APPRAISAL_DATA_DIR >
// $(CWD)/.appraisal-db. The platform data directory is not consulted; the
// working-directory default keeps each workspace's records separate.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ExportDir resolves the filesystem export directory. A relative
// configValue is taken relative to dataDir; empty means dataDir/exports.
func ExportDir(dataDir, configValue string) string {
	switch {
	case configValue == "":
		return filepath.Join(dataDir, DefaultExportDirName)
	case filepath.IsAbs(configValue):
		return configValue
	default:
		return filepath.Join(dataDir, configValue)
	}
}
