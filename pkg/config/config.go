package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pushit/pkg/log"
	"pushit/pkg/model"
	"pushit/pkg/system"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory when
// no explicit path is given.
const DefaultFile = ".pushit.yaml"

// Environment variables that override file settings.
const (
	EnvRemote         = "PUSHIT_REMOTE"
	EnvBranch         = "PUSHIT_BRANCH"
	EnvDefaultMessage = "PUSHIT_DEFAULT_MESSAGE"
	EnvAbortRebase    = "PUSHIT_ABORT_REBASE"
	EnvLogLevel       = "PUSHIT_LOG_LEVEL"
	EnvLogFile        = "PUSHIT_LOG_FILE"
)

// fileSettings mirrors model.Settings with optional fields so a later
// file can tell "unset" apart from "set to the zero value".
type fileSettings struct {
	Includes             []string `yaml:"includes,omitempty"`
	Remote               *string  `yaml:"remote"`
	Branch               *string  `yaml:"branch"`
	DefaultMessage       *string  `yaml:"default-message"`
	AbortRebaseOnFailure *bool    `yaml:"abort-rebase-on-failure"`
	LogLevel             *string  `yaml:"log-level"`
	LogFile              *string  `yaml:"log-file"`
}

// LoadConfig builds settings from the built-in defaults, the YAML file at
// filename and the PUSHIT_* environment, in that order of precedence.
// A missing file is only an error when required is set.
func LoadConfig(filename string, required bool, logger log.Logger) (model.Settings, error) {
	return load(filename, required, os.LookupEnv, logger)
}

func load(filename string, required bool, lookupEnv func(string) (string, bool), logger log.Logger) (model.Settings, error) {
	settings := model.DefaultSettings()

	cfg, err := loadConfigFile(filename)
	switch {
	case err == nil:
		if errs := validateIncludes(cfg.Includes); len(errs) > 0 {
			return model.Settings{}, errs
		}
		if len(cfg.Includes) > 0 {
			cfg, err = processIncludes(cfg, filename, logger)
			if err != nil {
				return model.Settings{}, err
			}
		}
		applyFile(&settings, cfg)
		logger.Debug("Loaded config file", "path", filename)
	case errors.Is(err, fs.ErrNotExist) && !required:
		logger.Debug("No config file, using defaults", "path", filename)
	default:
		return model.Settings{}, fmt.Errorf("failed to load config %s: %w", filename, err)
	}

	if errs := applyEnv(&settings, lookupEnv); len(errs) > 0 {
		return model.Settings{}, errs
	}

	return settings, nil
}

// processIncludes loads and merges included configuration files
// recursively. The including file takes priority over what it includes.
func processIncludes(cfg fileSettings, baseFile string, logger log.Logger) (fileSettings, error) {
	visited := make(map[string]bool) // For cycle detection
	return processIncludesRecursive(cfg, baseFile, visited, logger)
}

func processIncludesRecursive(cfg fileSettings, baseFile string, visited map[string]bool, logger log.Logger) (fileSettings, error) {
	result := fileSettings{}

	absBase, err := filepath.Abs(baseFile)
	if err != nil {
		return fileSettings{}, fmt.Errorf("failed to resolve absolute path for %s: %w", baseFile, err)
	}
	if visited[absBase] {
		return fileSettings{}, fmt.Errorf("circular include detected: %s", baseFile)
	}
	visited[absBase] = true

	for _, includePath := range cfg.Includes {
		resolvedPath := resolveIncludePath(baseFile, includePath)

		includedCfg, err := loadConfigFile(resolvedPath)
		if err != nil {
			return fileSettings{}, fmt.Errorf("failed to load include '%s': %w", includePath, err)
		}

		if len(includedCfg.Includes) > 0 {
			includedCfg, err = processIncludesRecursive(includedCfg, resolvedPath, visited, logger)
			if err != nil {
				return fileSettings{}, err
			}
		}

		result = mergeConfigs(result, includedCfg, resolvedPath, logger)
	}

	return mergeConfigs(result, cfg, baseFile, logger), nil
}

func loadConfigFile(filename string) (fileSettings, error) {
	f, err := afero.ReadFile(system.AppFs, filename)
	if err != nil {
		return fileSettings{}, err
	}

	var cfg fileSettings
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return fileSettings{}, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	return cfg, nil
}

func resolveIncludePath(baseFile, includePath string) string {
	if filepath.IsAbs(includePath) {
		return includePath
	}
	return filepath.Join(filepath.Dir(baseFile), includePath)
}

// mergeConfigs overlays every field set in override onto base.
// Includes are not merged; they have already been processed.
func mergeConfigs(base, override fileSettings, source string, logger log.Logger) fileSettings {
	result := base
	result.Includes = nil

	result.Remote = mergeField(logger, source, "remote", base.Remote, override.Remote)
	result.Branch = mergeField(logger, source, "branch", base.Branch, override.Branch)
	result.DefaultMessage = mergeField(logger, source, "default-message", base.DefaultMessage, override.DefaultMessage)
	result.AbortRebaseOnFailure = mergeField(logger, source, "abort-rebase-on-failure", base.AbortRebaseOnFailure, override.AbortRebaseOnFailure)
	result.LogLevel = mergeField(logger, source, "log-level", base.LogLevel, override.LogLevel)
	result.LogFile = mergeField(logger, source, "log-file", base.LogFile, override.LogFile)

	return result
}

func mergeField[T comparable](logger log.Logger, source, field string, base, override *T) *T {
	if override == nil {
		return base
	}
	if base != nil && *base != *override {
		logger.Debug("Config value overridden", "field", field, "file", source, "was", *base, "now", *override)
	}
	return override
}

func applyFile(settings *model.Settings, cfg fileSettings) {
	if cfg.Remote != nil {
		settings.Remote = *cfg.Remote
	}
	if cfg.Branch != nil {
		settings.Branch = *cfg.Branch
	}
	if cfg.DefaultMessage != nil {
		settings.DefaultMessage = *cfg.DefaultMessage
	}
	if cfg.AbortRebaseOnFailure != nil {
		settings.AbortRebaseOnFailure = *cfg.AbortRebaseOnFailure
	}
	if cfg.LogLevel != nil {
		settings.LogLevel = *cfg.LogLevel
	}
	if cfg.LogFile != nil {
		settings.LogFile = *cfg.LogFile
	}
}

func applyEnv(settings *model.Settings, lookupEnv func(string) (string, bool)) model.ValidationErrors {
	var errs model.ValidationErrors

	if v, ok := lookupEnv(EnvRemote); ok {
		settings.Remote = v
	}
	if v, ok := lookupEnv(EnvBranch); ok {
		settings.Branch = v
	}
	if v, ok := lookupEnv(EnvDefaultMessage); ok {
		settings.DefaultMessage = v
	}
	if v, ok := lookupEnv(EnvAbortRebase); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, model.ValidationError{Field: EnvAbortRebase, Message: fmt.Sprintf("invalid boolean '%s'", v)})
		} else {
			settings.AbortRebaseOnFailure = b
		}
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		settings.LogLevel = v
	}
	if v, ok := lookupEnv(EnvLogFile); ok {
		settings.LogFile = v
	}

	return errs
}

func validateIncludes(includes []string) model.ValidationErrors {
	var errs model.ValidationErrors
	for i, include := range includes {
		if strings.TrimSpace(include) == "" {
			errs = append(errs, model.ValidationError{Field: fmt.Sprintf("includes[%d]", i), Message: "include path cannot be empty"})
		}
	}
	return errs
}

// Marshal renders settings as the YAML a config file would contain.
func Marshal(settings model.Settings) (string, error) {
	settings.Includes = nil
	out, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settings: %w", err)
	}
	return string(out), nil
}
