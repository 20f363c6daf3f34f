// Package config loads lingo's tool settings from .lingo.yaml and LINGO_* environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lf-lang/lingo/pkg/result"
)

// FileName is the settings file looked up in the project root
const FileName = ".lingo.yaml"

// Settings are the tool-level options that are not part of the manifest
type Settings struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn warning error"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file,omitempty"`
	// Workers bounds parallel code generation; 0 means one per CPU
	Workers       int           `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=256"`
	Notifications bool          `mapstructure:"notifications" yaml:"notifications"`
	CMakePath     string        `mapstructure:"cmake_path" yaml:"cmake_path" validate:"required"`
	BuildSystem   string        `mapstructure:"build_system" yaml:"build_system" validate:"omitempty,oneof=lfc cmake LFC CMake"`
	SettlingDelay time.Duration `mapstructure:"settling_delay" yaml:"settling_delay" validate:"gte=0"`
}

var validate = validator.New()

// Load reads settings for projectRoot. An explicit path must exist; otherwise
// a missing .lingo.yaml is fine and defaults apply. Environment variables
// (LINGO_WORKERS, LINGO_LOG_LEVEL, ...) take precedence over the file.
func Load(projectRoot, explicitPath string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, result.Configf("error loading config file %s: %v", explicitPath, err)
		}
	} else {
		v.AddConfigPath(projectRoot)
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, result.Configf("error loading config file: %v", err)
			}
		}
	}

	v.SetEnvPrefix("LINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Settings
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, result.Configf("error unmarshaling config: %v", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, result.Configf("config validation failed: %v", err)
	}

	return &cfg, nil
}

// Default returns the settings used when nothing is configured
func Default() *Settings {
	v := viper.New()
	setDefaults(v)

	var cfg Settings
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Dump renders the settings as YAML
func (s *Settings) Dump() ([]byte, error) {
	return yaml.Marshal(s)
}

// Save writes the settings as YAML to path
func (s *Settings) Save(path string) error {
	data, err := s.Dump()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("workers", 0)
	v.SetDefault("notifications", false)
	v.SetDefault("cmake_path", "cmake")
	v.SetDefault("build_system", "")
	v.SetDefault("settling_delay", "500ms")
}
