package model

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	DefaultRemote  = "origin"
	DefaultBranch  = "main"
	DefaultMessage = "Auto commit from pushit.py"
)

// ValidLogLevels are the level names accepted by log-level.
var ValidLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

type ValidationError struct {
	Field   string
	Message string
	Line    int
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Field, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	if len(es) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, e := range es {
		sb.WriteString(fmt.Sprintf("  - %s\n", e.Error()))
	}
	return sb.String()
}

// Settings is everything a run needs besides the commit message.
type Settings struct {
	Includes             []string `yaml:"includes,omitempty"`
	Remote               string   `yaml:"remote"`
	Branch               string   `yaml:"branch"`
	DefaultMessage       string   `yaml:"default-message"`
	AbortRebaseOnFailure bool     `yaml:"abort-rebase-on-failure"`
	LogLevel             string   `yaml:"log-level"`
	LogFile              string   `yaml:"log-file,omitempty"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		Remote:         DefaultRemote,
		Branch:         DefaultBranch,
		DefaultMessage: DefaultMessage,
		LogLevel:       "info",
	}
}

func (s Settings) Validate() ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, validateRefName("remote", s.Remote)...)
	errs = append(errs, validateRefName("branch", s.Branch)...)

	if strings.TrimSpace(s.DefaultMessage) == "" {
		errs = append(errs, ValidationError{Field: "default-message", Message: "cannot be empty"})
	}
	if !ValidLogLevels[strings.ToLower(s.LogLevel)] {
		errs = append(errs, ValidationError{Field: "log-level", Message: fmt.Sprintf("invalid log level '%s'", s.LogLevel)})
	}
	for i, include := range s.Includes {
		if strings.TrimSpace(include) == "" {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("includes[%d]", i), Message: "include path cannot be empty"})
		}
	}

	return errs
}

// validateRefName rejects values git would read as something other than
// a plain remote or branch name.
func validateRefName(field, value string) ValidationErrors {
	if value == "" {
		return ValidationErrors{{Field: field, Message: "cannot be empty"}}
	}
	var errs ValidationErrors
	if strings.HasPrefix(value, "-") {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("'%s' must not start with '-'", value)})
	}
	if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("'%s' must not contain whitespace", value)})
	}
	return errs
}
