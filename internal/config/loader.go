package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/npratt/gimme/internal/exercise"
)

// ConfigPaths defines the search locations for config files.
const (
	// GlobalConfigDir is the XDG config directory name
	GlobalConfigDir = "gimme"
	// GlobalConfigFile is the global config file name
	GlobalConfigFile = "config.yaml"
	// ProjectConfigDir is the project-local config directory
	ProjectConfigDir = ".gimme"
	// ProjectConfigFile is the project-local config file name
	ProjectConfigFile = "config.yaml"
)

// LoadConfig loads configuration from files and viper settings.
// Precedence (later overrides earlier):
//  1. Default() values
//  2. ~/.config/gimme/config.yaml (global)
//  3. .gimme/config.yaml (project)
//  4. Environment variables (GIMME_*)
//  5. CLI flags (already bound to viper)
//
// Missing config files are silently ignored.
func LoadConfig(v *viper.Viper) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Marshal defaults to map for viper
	defaultMap, err := structToMap(cfg)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(defaultMap); err != nil {
		return nil, err
	}

	// Load global config (~/.config/gimme/config.yaml)
	globalPath := globalConfigPath()
	if globalPath != "" {
		if err := loadConfigFile(v, globalPath); err != nil {
			return nil, err
		}
	}

	// Load project config (.gimme/config.yaml)
	projectPath := projectConfigPath()
	if projectPath != "" {
		if err := loadConfigFile(v, projectPath); err != nil {
			return nil, err
		}
	}

	// Explicit config file (from --config flag or GIMME_CONFIG env)
	if explicitPath := v.GetString("config"); explicitPath != "" {
		// Explicit config must exist
		if _, err := os.Stat(explicitPath); err != nil {
			return nil, err
		}
		if err := loadConfigFile(v, explicitPath); err != nil {
			return nil, err
		}
	}

	// A fresh struct keeps file lists from appending to default lists.
	cfg = &Config{}
	if err := v.Unmarshal(cfg, viperDecodeHook()); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ActivePath returns the highest-precedence config file that exists, or ""
// if only defaults apply.
func ActivePath(v *viper.Viper) string {
	if explicitPath := v.GetString("config"); explicitPath != "" {
		return explicitPath
	}
	if p := projectConfigPath(); p != "" {
		return p
	}
	return globalConfigPath()
}

// globalConfigPath returns the global config file path if it exists.
func globalConfigPath() string {
	path := GlobalPath()
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// GlobalPath returns where the global config file lives, whether or not it
// exists.
func GlobalPath() string {
	// Try XDG_CONFIG_HOME first
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		// Fall back to ~/.config
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, GlobalConfigDir, GlobalConfigFile)
}

// projectConfigPath returns the project config file path if it exists.
func projectConfigPath() string {
	path := filepath.Join(ProjectConfigDir, ProjectConfigFile)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// loadConfigFile loads a YAML config file and merges it into viper.
// Returns nil if the file doesn't exist.
func loadConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	// Create a temporary viper to read the file
	fileViper := viper.New()
	fileViper.SetConfigType("yaml")
	if err := fileViper.ReadConfig(file); err != nil {
		return err
	}

	// Merge into main viper
	return v.MergeConfigMap(fileViper.AllSettings())
}

// Watch reloads the full configuration whenever the file at path changes
// and hands the result to onChange. Reload failures are logged and the
// previous settings stay in effect.
func Watch(v *viper.Viper, path string, logger *slog.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	w := viper.New()
	w.SetConfigFile(path)
	if err := w.ReadInConfig(); err != nil {
		return err
	}
	w.OnConfigChange(reloadHandler(v, logger, onChange))
	w.WatchConfig()
	logger.Debug("watching config file", "path", path)
	return nil
}

func reloadHandler(v *viper.Viper, logger *slog.Logger, onChange func(*Config)) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
			return
		}
		cfg, err := LoadConfig(v)
		if err != nil {
			logger.Warn("config reload failed", "path", e.Name, "error", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			logger.Warn("reloaded config is invalid", "path", e.Name, "error", err)
			return
		}
		logger.Info("config reloaded", "path", e.Name)
		onChange(cfg)
	}
}

// viperDecodeHook returns the decoder config with duration and beat slot hooks.
func viperDecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToPatternHook(),
		mapstructure.StringToSliceHookFunc(","),
		beatSlotHook(),
	))
}

var (
	patternType  = reflect.TypeOf(exercise.Pattern(nil))
	beatSlotType = reflect.TypeOf(exercise.BeatSlot(""))
)

// stringToPatternHook parses "root,1st,2nd,rest" style strings from flags
// and environment variables.
func stringToPatternHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != patternType {
			return data, nil
		}
		return exercise.ParsePattern(reflect.ValueOf(data).String())
	}
}

// beatSlotHook normalizes slot aliases such as "first" or "?".
func beatSlotHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != beatSlotType {
			return data, nil
		}
		return exercise.ParseBeatSlot(reflect.ValueOf(data).String())
	}
}

// structToMap converts a struct to a map for viper.MergeConfigMap.
func structToMap(cfg *Config) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  &result,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationToStringHook(),
		),
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(cfg); err != nil {
		return nil, err
	}

	return result, nil
}

// durationToStringHook converts time.Duration to string for YAML compatibility.
func durationToStringHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if from != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return data.(time.Duration).String(), nil
	}
}
