// Package config loads the pixelci tool configuration. Settings come from,
// in increasing precedence: built-in defaults, a pixelci.yaml config file,
// PIXELCI_* environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the tool configuration.
type Config struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	Interpreter struct {
		TriggerCount int `mapstructure:"trigger_count" yaml:"trigger_count"`
		ChunkSize    int `mapstructure:"chunk_size" yaml:"chunk_size"`
	} `mapstructure:"interpreter" yaml:"interpreter"`

	Monitor struct {
		Dir       string   `mapstructure:"dir" yaml:"dir"`
		Recursive bool     `mapstructure:"recursive" yaml:"recursive"`
		Suffixes  []string `mapstructure:"suffixes" yaml:"suffixes"`
		Timeout   string   `mapstructure:"timeout" yaml:"timeout"`

		SMTP struct {
			Addr     string   `mapstructure:"addr" yaml:"addr"`
			From     string   `mapstructure:"from" yaml:"from"`
			To       []string `mapstructure:"to" yaml:"to"`
			Username string   `mapstructure:"username" yaml:"username"`
			Password string   `mapstructure:"password" yaml:"password"`
		} `mapstructure:"smtp" yaml:"smtp"`
	} `mapstructure:"monitor" yaml:"monitor"`

	Calibration struct {
		FitLow  int `mapstructure:"fit_low" yaml:"fit_low"`
		FitHigh int `mapstructure:"fit_high" yaml:"fit_high"`
	} `mapstructure:"calibration" yaml:"calibration"`

	Device struct {
		Transport string `mapstructure:"transport" yaml:"transport"` // "loopback"
		Serial    uint32 `mapstructure:"serial" yaml:"serial"`
	} `mapstructure:"device" yaml:"device"`
}

// Defaults are the built-in settings applied before any file or
// environment override.
func Defaults() map[string]any {
	return map[string]any{
		"interpreter.trigger_count": 16,
		"interpreter.chunk_size":    1 << 20,
		"monitor.suffixes":          []string{".raw", ".raw.zst"},
		"monitor.timeout":           "5m",
		"calibration.fit_low":       50,
		"calibration.fit_high":      800,
		"device.transport":          "loopback",
	}
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "pixelci")
		default:
			configDir = "/etc/pixelci"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "pixelci")
	}

	return filepath.Join(configDir, "pixelci.yaml"), nil
}

// Load reads the configuration for a command. An explicit file path, when
// non-nil, takes precedence over the standard search locations.
func Load(cmd *cobra.Command, explicitPath *string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("pixelci")
	v.SetConfigType("yaml")

	if explicitPath != nil && *explicitPath != "" {
		v.SetConfigFile(*explicitPath)
	}

	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing file falls back to defaults; other errors are fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("pixelci")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// WriteFile persists the configuration to the user (or system) location.
func WriteFile(c *Config, system bool) error {
	path, err := getConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600 because the monitor SMTP section may hold credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}

	return nil
}
