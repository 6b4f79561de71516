package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Troge-dev/Transfory/internal/logger"
	"github.com/Troge-dev/Transfory/internal/persistence"
	"github.com/Troge-dev/Transfory/pkg/errhandling"
)

// envPrefix namespaces environment overrides, e.g. TRANSFORY_LOG_LEVEL.
const envPrefix = "TRANSFORY"

// configName is the optional settings file looked up in the working directory and
// in $HOME/.config/transfory (transfory.yaml, transfory.json, ...).
const configName = "transfory"

// settings holds the CLI defaults resolved from flags, environment and the
// optional settings file, in that order of precedence.
type settings struct {
	LogLevel  slog.Level
	LogFormat logger.OutputFormat
	LogFile   string
	StateDir  string
}

// flagKeys maps settings keys to the persistent flags that override them.
var flagKeys = map[string]string{
	"log.level":  "log-level",
	"log.format": "log-format",
	"log.file":   "log-file",
	"state.dir":  "state-dir",
}

func loadSettings(cmd *cobra.Command, configFile string) (*settings, error) {
	v := viper.New()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "human")
	v.SetDefault("log.file", "")
	v.SetDefault("state.dir", persistence.DefaultStatePath)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errhandling.NewConfigurationError("settings", fmt.Sprintf("reading %s: %v", configFile, err))
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errhandling.NewConfigurationError("settings", fmt.Sprintf("reading settings file: %v", err))
			}
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
		return nil, errhandling.NewConfigurationError("settings", fmt.Sprintf("invalid log level %q", v.GetString("log.level")))
	}
	format, err := logger.ParseFormat(v.GetString("log.format"))
	if err != nil {
		return nil, errhandling.NewConfigurationError("settings", err.Error())
	}

	s := &settings{
		LogLevel:  level,
		LogFormat: format,
		LogFile:   v.GetString("log.file"),
		StateDir:  v.GetString("state.dir"),
	}
	if strings.TrimSpace(s.StateDir) == "" {
		s.StateDir = persistence.DefaultStatePath
	}
	return s, nil
}

// applyLogging configures the package logger. verbose and quiet override the
// configured level.
func (s *settings) applyLogging(verbose, quiet bool) error {
	level := s.LogLevel
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelError
	}
	if s.LogFile != "" {
		if err := logger.SetLogFile(s.LogFile, level, s.LogFormat); err != nil {
			return errhandling.NewIOError("settings", "opening log file", err)
		}
		return nil
	}
	logger.SetLevelAndFormat(level, s.LogFormat)
	return nil
}
