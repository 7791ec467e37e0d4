package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/hubble/internal/storage"
)

const (
	envPrefix          = "HUBBLE_"
	settingsEnvVar     = envPrefix + "SETTINGS"
	defaultShell       = "/bin/sh"
	defaultLogLevel    = "warn"
	defaultLaunchRPS   = 10.0
	defaultLaunchBurst = 5
)

// ErrInvalid is returned when the merged settings fail validation.
var ErrInvalid = errors.New("invalid settings")

// Config aggregates the tool settings resolved from every source.
// Precedence: CLI flags > Environment variables > YAML settings > Defaults
type Config struct {
	RCFiles         []string
	DefaultEnv      string
	IncludeLocalEnv bool
	Shell           string
	LogLevel        string
	Vault           VaultConfig
	Launch          LaunchConfig
	// SettingsFile is the YAML file that was read, empty when none was.
	SettingsFile string
}

// VaultConfig locates the encrypted secret store.
type VaultConfig struct {
	Path       string
	Identity   string
	Passphrase string
}

// LaunchConfig paces process start-up when an environment fans out.
// An RPS of zero disables pacing.
type LaunchConfig struct {
	RPS   float64
	Burst int
}

// settings is one source layer. Pointer fields tell "unset" apart from a
// deliberate zero so a higher layer can switch a default off.
type settings struct {
	RCFiles         []string       `yaml:"rc_files" env:"RC_FILES" envSeparator:":"`
	DefaultEnv      string         `yaml:"default_env" env:"DEFAULT_ENV"`
	IncludeLocalEnv *bool          `yaml:"include_local_env" env:"INCLUDE_LOCAL_ENV"`
	Shell           string         `yaml:"shell" env:"SHELL"`
	LogLevel        string         `yaml:"log_level" env:"LOG_LEVEL"`
	Vault           vaultSettings  `yaml:"vault" envPrefix:"VAULT_"`
	Launch          launchSettings `yaml:"launch" envPrefix:"LAUNCH_"`
}

type vaultSettings struct {
	Path       string `yaml:"path" env:"PATH"`
	Identity   string `yaml:"identity" env:"IDENTITY"`
	Passphrase string `yaml:"-" env:"PASSPHRASE"`
}

type launchSettings struct {
	RPS   *float64 `yaml:"rps" env:"RPS"`
	Burst *int     `yaml:"burst" env:"BURST"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	SettingsFile string
	RCFiles      []string
	LogLevel     *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML settings > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	layers := make([]*settings, 0, 4)

	if overrides != nil {
		layers = append(layers, cliSettings(overrides))
	}

	envLayer, err := loadFromEnv()
	if err != nil {
		return Config{}, err
	}
	layers = append(layers, envLayer)

	path, explicit := settingsPath(overrides)
	yamlLayer, err := loadFromFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// The default settings file is optional.
		path = ""
	case err != nil:
		return Config{}, fmt.Errorf("load settings file: %w", err)
	default:
		layers = append(layers, yamlLayer)
	}

	layers = append(layers, defaultSettings())

	merged := new(settings)
	for _, layer := range layers {
		if err := mergo.Merge(merged, layer, mergo.WithoutDereference); err != nil {
			return Config{}, fmt.Errorf("merge settings: %w", err)
		}
	}

	cfg := merged.toConfig()
	cfg.SettingsFile = path

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// defaultSettings returns the lowest precedence layer.
func defaultSettings() *settings {
	include := true
	rps := defaultLaunchRPS
	burst := defaultLaunchBurst
	return &settings{
		RCFiles:         storage.DefaultLocations(),
		IncludeLocalEnv: &include,
		Shell:           defaultShell,
		LogLevel:        defaultLogLevel,
		Vault: vaultSettings{
			Path: filepath.Join("~", ".config", "hubble", "vault.age"),
		},
		Launch: launchSettings{RPS: &rps, Burst: &burst},
	}
}

// DefaultSettingsFile is read when neither --settings nor HUBBLE_SETTINGS is given.
func DefaultSettingsFile() string {
	return filepath.Join("~", ".config", "hubble", "settings.yaml")
}

func settingsPath(overrides *CLIOverrides) (string, bool) {
	if overrides != nil && overrides.SettingsFile != "" {
		return storage.ExpandHome(overrides.SettingsFile), true
	}
	if path := strings.TrimSpace(os.Getenv(settingsEnvVar)); path != "" {
		return storage.ExpandHome(path), true
	}
	return storage.ExpandHome(DefaultSettingsFile()), false
}

// loadFromFile loads settings from a YAML file.
func loadFromFile(path string) (*settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var s settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", path, err)
	}
	return &s, nil
}

// loadFromEnv reads HUBBLE_* variables.
func loadFromEnv() (*settings, error) {
	var s settings
	if err := env.ParseWithOptions(&s, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse %s* environment: %w", envPrefix, err)
	}
	return &s, nil
}

func cliSettings(overrides *CLIOverrides) *settings {
	s := &settings{RCFiles: overrides.RCFiles}
	if overrides.LogLevel != nil {
		s.LogLevel = *overrides.LogLevel
	}
	return s
}

func (s *settings) toConfig() Config {
	cfg := Config{
		RCFiles:    s.RCFiles,
		DefaultEnv: strings.TrimSpace(s.DefaultEnv),
		Shell:      s.Shell,
		LogLevel:   strings.ToLower(strings.TrimSpace(s.LogLevel)),
		Vault: VaultConfig{
			Path:       storage.ExpandHome(s.Vault.Path),
			Identity:   storage.ExpandHome(s.Vault.Identity),
			Passphrase: s.Vault.Passphrase,
		},
	}
	if s.IncludeLocalEnv != nil {
		cfg.IncludeLocalEnv = *s.IncludeLocalEnv
	}
	if s.Launch.RPS != nil {
		cfg.Launch.RPS = *s.Launch.RPS
	}
	if s.Launch.Burst != nil {
		cfg.Launch.Burst = *s.Launch.Burst
	}
	return cfg
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if len(cfg.RCFiles) == 0 {
		return fmt.Errorf("%w: rc_files cannot be empty", ErrInvalid)
	}
	if cfg.Shell == "" {
		return fmt.Errorf("%w: shell cannot be empty", ErrInvalid)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	if cfg.Launch.RPS < 0 {
		return fmt.Errorf("%w: launch.rps must be >= 0", ErrInvalid)
	}
	if cfg.Launch.Burst < 0 {
		return fmt.Errorf("%w: launch.burst must be >= 0", ErrInvalid)
	}
	return nil
}
