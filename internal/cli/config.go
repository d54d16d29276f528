// Config loading for the estates CLI.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/estates/internal/paths"
	"github.com/mesh-intelligence/estates/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend   = "backend"
	cfgKeyDSN       = "dsn"
	cfgKeyDataDir   = "data_dir"
	cfgKeyCascade   = "cascade"
	cfgKeyPageSize  = "page_size"
	cfgKeyLogLevel  = "log_level"
	cfgKeyLogFormat = "log_format"

	envPrefix = "ESTATES"
)

// envKeys are the settings that ESTATES_<KEY> overrides. data_dir has its
// own precedence in the paths package.
var envKeys = []string{cfgKeyBackend, cfgKeyDSN, cfgKeyCascade, cfgKeyPageSize, cfgKeyLogLevel, cfgKeyLogFormat}

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	Backend  string `yaml:"backend"`
	DSN      string `yaml:"dsn,omitempty"`
	DataDir  string `yaml:"data_dir,omitempty"`
	Cascade  string `yaml:"cascade"`
	PageSize int    `yaml:"page_size"`
	LogLevel string `yaml:"log_level"`
}

// loadConfig reads config.yaml from the resolved config directory, falling
// back to the per-user config directory. A .env file in the working
// directory is loaded into the environment first; variables already set
// win. A missing config.yaml is not an error.
func (a *app) loadConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return sysErr("load .env", err)
	}

	configDir, err := a.resolveConfigDir()
	if err != nil {
		return sysErr("resolve config dir", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyCascade, types.CascadeNative)
	v.SetDefault(cfgKeyPageSize, types.DefaultPageSize)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if userDir, err := paths.UserConfigDir(); err == nil {
		v.AddConfigPath(userDir)
	}

	v.SetEnvPrefix(envPrefix)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return sysErr("bind env", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return sysErr("read config", err)
		}
	}

	a.cfg = v
	return nil
}

// storeConfig builds the store configuration from the loaded settings.
func (a *app) storeConfig() (types.Config, error) {
	dataDir, err := a.resolveDataDir()
	if err != nil {
		return types.Config{}, sysErr("resolve data dir", err)
	}
	raw := a.cfg.Get(cfgKeyPageSize)
	pageSize, err := cast.ToIntE(raw)
	if err != nil {
		return types.Config{}, fmt.Errorf("config: %w",
			&types.ValidationError{Field: cfgKeyPageSize, Reason: fmt.Sprintf("%v is not a whole number", raw)})
	}
	cfg := types.Config{
		Backend:  a.cfg.GetString(cfgKeyBackend),
		DSN:      a.cfg.GetString(cfgKeyDSN),
		DataDir:  dataDir,
		Cascade:  a.cfg.GetString(cfgKeyCascade),
		PageSize: pageSize,
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config: %w", &types.ValidationError{Field: "config", Reason: err.Error()})
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left alone.
func writeConfigIfMissing(path string, cfg types.Config) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&configFile{
		Backend:  cfg.Backend,
		DSN:      cfg.DSN,
		DataDir:  cfg.DataDir,
		Cascade:  cfg.GetCascade(),
		PageSize: cfg.GetPageSize(),
		LogLevel: "warn",
	})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
