// Package paths resolves where estates keeps its configuration, its SQLite
// database and its exports.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Working-directory relative defaults.
const (
	DefaultConfigDirName = ".estates"
	DefaultDataDirName   = ".estates-db"
	DefaultExportDirName = "estates-export"
)

// Environment variables that override the defaults.
const (
	EnvConfigDir = "ESTATES_CONFIG_DIR"
	EnvDataDir   = "ESTATES_DATA_DIR"
)

const appName = "estates"

// platformDir holds platform lookups that tests replace.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// UserConfigDir returns the per-user configuration directory that is searched
// for config.yaml after the working-directory one.
//
// Linux:   $XDG_CONFIG_HOME/estates (fallback ~/.config/estates)
// macOS:   ~/Library/Application Support/estates
// Windows: %APPDATA%/estates
func UserConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// ResolveConfigDir returns the configuration directory: flag, then
// ESTATES_CONFIG_DIR, then ./.estates. The result is absolute.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(DefaultConfigDirName, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir returns the SQLite data directory: flag, then the config
// file value, then ESTATES_DATA_DIR, then ./.estates-db. The result is
// absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(DefaultDataDirName, flag, configValue, os.Getenv(EnvDataDir))
}

// ResolveExportDir returns the export directory: flag, then ./estates-export.
func ResolveExportDir(flag string) (string, error) {
	return resolve(DefaultExportDirName, flag)
}

// resolve returns the first non-empty candidate made absolute, or name under
// the working directory.
func resolve(name string, candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, name), nil
}
